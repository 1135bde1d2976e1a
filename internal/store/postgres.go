package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mesahub/mesa-backend/internal/model"
	"github.com/mesahub/mesa-backend/internal/rules"
	"github.com/mesahub/mesa-backend/pkg/types"
)

// Postgres is the gorm-backed Store.
type Postgres struct {
	db *gorm.DB
}

var _ Store = (*Postgres)(nil)

func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Migrate creates or updates every table in the schema.
func (p *Postgres) Migrate() error {
	return p.db.AutoMigrate(model.All()...)
}

func wrapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (p *Postgres) CreateUser(ctx context.Context, id, nickname string, isMaster bool, characterID string) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u := model.User{
			ID:              id,
			Nickname:        nickname,
			IsMaster:        isMaster,
			CharacterID:     characterID,
			HealthPoints:    10,
			MaxHealthPoints: 10,
			CreatedAt:       time.Now(),
		}
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		attrs := types.DefaultAttributes()
		if err := tx.Create(&model.AttributeSet{
			OwnerID:      id,
			Strength:     attrs.Strength,
			Dexterity:    attrs.Dexterity,
			Constitution: attrs.Constitution,
			Intelligence: attrs.Intelligence,
			Wisdom:       attrs.Wisdom,
			Charisma:     attrs.Charisma,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&model.Currency{OwnerID: id}).Error
	})
}

func (p *Postgres) userDoc(ctx context.Context, u model.User) (types.User, error) {
	var rolls []model.DiceResult
	err := p.db.WithContext(ctx).
		Where("user_id = ?", u.ID).
		Order("timestamp DESC").
		Limit(DiceHistoryLimit).
		Find(&rolls).Error
	if err != nil {
		return types.User{}, err
	}
	dice := make([]int, 0, len(rolls))
	for _, r := range rolls {
		dice = append(dice, r.Result)
	}
	return types.User{
		ID:              u.ID,
		Nickname:        u.Nickname,
		IsMaster:        u.IsMaster,
		CharacterID:     u.CharacterID,
		HealthPoints:    u.HealthPoints,
		MaxHealthPoints: u.MaxHealthPoints,
		DiceResults:     dice,
		CreatedAt:       u.CreatedAt,
	}, nil
}

func (p *Postgres) GetUser(ctx context.Context, id string) (types.User, error) {
	var u model.User
	if err := p.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return types.User{}, wrapErr(err)
	}
	return p.userDoc(ctx, u)
}

func (p *Postgres) GetUsers(ctx context.Context) ([]types.User, error) {
	var rows []model.User
	if err := p.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.User, 0, len(rows))
	for _, row := range rows {
		doc, err := p.userDoc(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (p *Postgres) GetUserByCharacterID(ctx context.Context, characterID string) (types.User, error) {
	var u model.User
	err := p.db.WithContext(ctx).
		Where("character_id = ? AND character_id <> ''", characterID).
		First(&u).Error
	if err != nil {
		return types.User{}, wrapErr(err)
	}
	return p.userDoc(ctx, u)
}

func (p *Postgres) UpdateUserNickname(ctx context.Context, id, nickname string) error {
	res := p.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("nickname", nickname)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) UpdateUserHealth(ctx context.Context, id string, healthPoints int) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u model.User
		if err := tx.First(&u, "id = ?", id).Error; err != nil {
			return wrapErr(err)
		}
		hp := rules.ClampHealth(healthPoints, u.MaxHealthPoints)
		return tx.Model(&u).Update("health_points", hp).Error
	})
}

func (p *Postgres) UpdateUserMaxHealth(ctx context.Context, id string, maxHealthPoints int) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u model.User
		if err := tx.First(&u, "id = ?", id).Error; err != nil {
			return wrapErr(err)
		}
		hp, maxHP := rules.ApplyMaxHealth(u.HealthPoints, maxHealthPoints)
		return tx.Model(&u).Updates(map[string]any{
			"health_points":     hp,
			"max_health_points": maxHP,
		}).Error
	})
}

func (p *Postgres) DeleteUser(ctx context.Context, id string) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.User{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return deleteSheet(tx, id)
	})
}

func deleteSheet(tx *gorm.DB, ownerID string) error {
	for _, m := range []any{&model.AttributeSet{}, &model.Skill{}, &model.Ability{}, &model.InventoryItem{}, &model.Currency{}} {
		if err := tx.Where("owner_id = ?", ownerID).Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) CreateMessage(ctx context.Context, msg types.ChatMessage) error {
	return p.db.WithContext(ctx).Create(&model.Message{
		ID:         msg.ID,
		UserID:     msg.UserID,
		Nickname:   msg.Nickname,
		Content:    msg.Content,
		Timestamp:  msg.Timestamp,
		IsDiceRoll: msg.IsDiceRoll,
		DiceType:   msg.DiceType,
		DiceResult: msg.DiceResult,
	}).Error
}

func (p *Postgres) GetMessages(ctx context.Context, limit int) ([]types.ChatMessage, error) {
	var rows []model.Message
	q := p.db.WithContext(ctx).Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	// rows came newest-first; the transcript reads oldest-first
	out := make([]types.ChatMessage, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = types.ChatMessage{
			ID:         row.ID,
			UserID:     row.UserID,
			Nickname:   row.Nickname,
			Content:    row.Content,
			Timestamp:  row.Timestamp,
			IsDiceRoll: row.IsDiceRoll,
			DiceType:   row.DiceType,
			DiceResult: row.DiceResult,
		}
	}
	return out, nil
}

func (p *Postgres) AddDiceResult(ctx context.Context, userID string, result int) error {
	return p.db.WithContext(ctx).Create(&model.DiceResult{
		UserID:    userID,
		Result:    result,
		Timestamp: time.Now(),
	}).Error
}

func (p *Postgres) loadSheet(ctx context.Context, ownerID string) (types.Attributes, []types.Skill, []types.Ability, []types.Item, error) {
	db := p.db.WithContext(ctx)

	attrs := types.DefaultAttributes()
	var attrRow model.AttributeSet
	err := db.First(&attrRow, "owner_id = ?", ownerID).Error
	switch {
	case err == nil:
		attrs = types.Attributes{
			Strength:     attrRow.Strength,
			Dexterity:    attrRow.Dexterity,
			Constitution: attrRow.Constitution,
			Intelligence: attrRow.Intelligence,
			Wisdom:       attrRow.Wisdom,
			Charisma:     attrRow.Charisma,
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fresh sheet, defaults stand
	default:
		return types.Attributes{}, nil, nil, nil, err
	}

	var skillRows []model.Skill
	if err := db.Where("owner_id = ?", ownerID).Order("id").Find(&skillRows).Error; err != nil {
		return types.Attributes{}, nil, nil, nil, err
	}
	skills := make([]types.Skill, 0, len(skillRows))
	for _, s := range skillRows {
		skills = append(skills, types.Skill{Name: s.Name, Value: s.Value, Proficient: s.Proficient})
	}

	var abilityRows []model.Ability
	if err := db.Where("owner_id = ?", ownerID).Order("id").Find(&abilityRows).Error; err != nil {
		return types.Attributes{}, nil, nil, nil, err
	}
	abilities := make([]types.Ability, 0, len(abilityRows))
	for _, a := range abilityRows {
		abilities = append(abilities, types.Ability{
			ID: a.ID, Name: a.Name, Description: a.Description,
			Type: a.Type, Cost: a.Cost, Range: a.Range, Duration: a.Duration, Effect: a.Effect,
		})
	}

	var itemRows []model.InventoryItem
	if err := db.Where("owner_id = ?", ownerID).Order("id").Find(&itemRows).Error; err != nil {
		return types.Attributes{}, nil, nil, nil, err
	}
	items := make([]types.Item, 0, len(itemRows))
	for _, it := range itemRows {
		items = append(items, types.Item{
			ID: it.ID, Name: it.Name, Description: it.Description, Quantity: it.Quantity,
			Type: it.Type, Rarity: it.Rarity, Value: it.Value, Weight: it.Weight, Effect: it.Effect,
		})
	}
	return attrs, skills, abilities, items, nil
}

func (p *Postgres) GetCharacter(ctx context.Context, userID string) (types.Character, error) {
	var u model.User
	if err := p.db.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		return types.Character{}, wrapErr(err)
	}
	attrs, skills, abilities, items, err := p.loadSheet(ctx, userID)
	if err != nil {
		return types.Character{}, err
	}
	var cur model.Currency
	currency := types.Currency{}
	if err := p.db.WithContext(ctx).First(&cur, "owner_id = ?", userID).Error; err == nil {
		currency = types.Currency{Bronze: cur.Bronze, Silver: cur.Silver, Gold: cur.Gold}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Character{}, err
	}
	return types.Character{
		UserID:          userID,
		CharacterID:     u.CharacterID,
		Attributes:      attrs,
		Skills:          skills,
		Abilities:       abilities,
		Inventory:       items,
		Currency:        currency,
		HealthPoints:    u.HealthPoints,
		MaxHealthPoints: u.MaxHealthPoints,
	}, nil
}

func (p *Postgres) UpdateAttributes(ctx context.Context, ownerID string, attrs types.Attributes) error {
	row := model.AttributeSet{
		OwnerID:      ownerID,
		Strength:     attrs.Strength,
		Dexterity:    attrs.Dexterity,
		Constitution: attrs.Constitution,
		Intelligence: attrs.Intelligence,
		Wisdom:       attrs.Wisdom,
		Charisma:     attrs.Charisma,
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (p *Postgres) ReplaceSkills(ctx context.Context, ownerID string, skills []types.Skill) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", ownerID).Delete(&model.Skill{}).Error; err != nil {
			return err
		}
		if len(skills) == 0 {
			return nil
		}
		rows := make([]model.Skill, 0, len(skills))
		for _, s := range skills {
			rows = append(rows, model.Skill{OwnerID: ownerID, Name: s.Name, Value: s.Value, Proficient: s.Proficient})
		}
		return tx.Create(&rows).Error
	})
}

func (p *Postgres) ReplaceAbilities(ctx context.Context, ownerID string, abilities []types.Ability) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", ownerID).Delete(&model.Ability{}).Error; err != nil {
			return err
		}
		if len(abilities) == 0 {
			return nil
		}
		rows := make([]model.Ability, 0, len(abilities))
		for _, a := range abilities {
			rows = append(rows, model.Ability{
				ID: a.ID, OwnerID: ownerID, Name: a.Name, Description: a.Description,
				Type: a.Type, Cost: a.Cost, Range: a.Range, Duration: a.Duration, Effect: a.Effect,
			})
		}
		return tx.Create(&rows).Error
	})
}

func (p *Postgres) ReplaceInventory(ctx context.Context, ownerID string, items []types.Item) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", ownerID).Delete(&model.InventoryItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		rows := make([]model.InventoryItem, 0, len(items))
		for _, it := range items {
			rows = append(rows, model.InventoryItem{
				ID: it.ID, OwnerID: ownerID, Name: it.Name, Description: it.Description, Quantity: it.Quantity,
				Type: it.Type, Rarity: it.Rarity, Value: it.Value, Weight: it.Weight, Effect: it.Effect,
			})
		}
		return tx.Create(&rows).Error
	})
}

func (p *Postgres) UpdateCurrency(ctx context.Context, ownerID string, currency types.Currency) error {
	row := model.Currency{OwnerID: ownerID, Bronze: currency.Bronze, Silver: currency.Silver, Gold: currency.Gold}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (p *Postgres) AddItemToCharacter(ctx context.Context, userID string, item types.Item) error {
	return p.db.WithContext(ctx).Create(&model.InventoryItem{
		ID: item.ID, OwnerID: userID, Name: item.Name, Description: item.Description, Quantity: item.Quantity,
		Type: item.Type, Rarity: item.Rarity, Value: item.Value, Weight: item.Weight, Effect: item.Effect,
	}).Error
}

func (p *Postgres) AddAbilityToCharacter(ctx context.Context, userID string, ability types.Ability) error {
	return p.db.WithContext(ctx).Create(&model.Ability{
		ID: ability.ID, OwnerID: userID, Name: ability.Name, Description: ability.Description,
		Type: ability.Type, Cost: ability.Cost, Range: ability.Range, Duration: ability.Duration, Effect: ability.Effect,
	}).Error
}

func (p *Postgres) CreateNPC(ctx context.Context, npc types.NPC) error {
	hp, maxHP := rules.ApplyMaxHealth(npc.HealthPoints, npc.MaxHealthPoints)
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := model.NPC{
			ID:              npc.ID,
			MasterID:        npc.MasterID,
			Nickname:        npc.Nickname,
			HealthPoints:    hp,
			MaxHealthPoints: maxHP,
			ShowHealthBar:   npc.ShowHealthBar,
			HealthBarColor:  npc.HealthBarColor,
			ShowInChat:      npc.ShowInChat,
			Notes:           npc.Notes,
			CreatedAt:       time.Now(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return p.saveNPCSheet(tx, npc)
	})
}

func (p *Postgres) saveNPCSheet(tx *gorm.DB, npc types.NPC) error {
	attrs := npc.Attributes
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&model.AttributeSet{
		OwnerID:      npc.ID,
		Strength:     attrs.Strength,
		Dexterity:    attrs.Dexterity,
		Constitution: attrs.Constitution,
		Intelligence: attrs.Intelligence,
		Wisdom:       attrs.Wisdom,
		Charisma:     attrs.Charisma,
	}).Error; err != nil {
		return err
	}
	if err := tx.Where("owner_id = ?", npc.ID).Delete(&model.Skill{}).Error; err != nil {
		return err
	}
	for _, s := range npc.Skills {
		if err := tx.Create(&model.Skill{OwnerID: npc.ID, Name: s.Name, Value: s.Value, Proficient: s.Proficient}).Error; err != nil {
			return err
		}
	}
	if err := tx.Where("owner_id = ?", npc.ID).Delete(&model.Ability{}).Error; err != nil {
		return err
	}
	for _, a := range npc.Abilities {
		if err := tx.Create(&model.Ability{ID: a.ID, OwnerID: npc.ID, Name: a.Name, Description: a.Description}).Error; err != nil {
			return err
		}
	}
	if err := tx.Where("owner_id = ?", npc.ID).Delete(&model.InventoryItem{}).Error; err != nil {
		return err
	}
	for _, it := range npc.Inventory {
		if err := tx.Create(&model.InventoryItem{ID: it.ID, OwnerID: npc.ID, Name: it.Name, Description: it.Description, Quantity: it.Quantity}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) GetNPCs(ctx context.Context, masterID string) ([]types.NPC, error) {
	var rows []model.NPC
	if err := p.db.WithContext(ctx).Where("master_id = ?", masterID).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.NPC, 0, len(rows))
	for _, row := range rows {
		attrs, skills, abilities, items, err := p.loadSheet(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, types.NPC{
			ID:              row.ID,
			MasterID:        row.MasterID,
			Nickname:        row.Nickname,
			HealthPoints:    row.HealthPoints,
			MaxHealthPoints: row.MaxHealthPoints,
			ShowHealthBar:   row.ShowHealthBar,
			HealthBarColor:  row.HealthBarColor,
			ShowInChat:      row.ShowInChat,
			Notes:           row.Notes,
			IsNPC:           true,
			Attributes:      attrs,
			Skills:          skills,
			Abilities:       abilities,
			Inventory:       items,
			CreatedAt:       row.CreatedAt,
		})
	}
	return out, nil
}

func (p *Postgres) UpdateNPC(ctx context.Context, npc types.NPC) error {
	hp, maxHP := rules.ApplyMaxHealth(npc.HealthPoints, npc.MaxHealthPoints)
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.NPC{}).Where("id = ?", npc.ID).Updates(map[string]any{
			"nickname":          npc.Nickname,
			"health_points":     hp,
			"max_health_points": maxHP,
			"show_health_bar":   npc.ShowHealthBar,
			"health_bar_color":  npc.HealthBarColor,
			"show_in_chat":      npc.ShowInChat,
			"notes":             npc.Notes,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return p.saveNPCSheet(tx, npc)
	})
}

func (p *Postgres) DeleteNPC(ctx context.Context, id string) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.NPC{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return deleteSheet(tx, id)
	})
}

func (p *Postgres) GetSharedItems(ctx context.Context) ([]types.Item, error) {
	var rows []model.SharedItem
	if err := p.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Item, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.Item{
			ID: row.ID, Name: row.Name, Description: row.Description,
			Type: row.Type, Rarity: row.Rarity, Value: row.Value, Weight: row.Weight, Effect: row.Effect,
			IsPublic: row.IsPublic, CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

func (p *Postgres) CreateSharedItem(ctx context.Context, masterID string, item types.Item) error {
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return p.db.WithContext(ctx).Create(&model.SharedItem{
		ID: item.ID, MasterID: masterID, Name: item.Name, Description: item.Description,
		Type: item.Type, Rarity: item.Rarity, Value: item.Value, Weight: item.Weight, Effect: item.Effect,
		IsPublic: item.IsPublic, CreatedAt: createdAt,
	}).Error
}

func (p *Postgres) UpdateSharedItem(ctx context.Context, item types.Item) error {
	res := p.db.WithContext(ctx).Model(&model.SharedItem{}).Where("id = ?", item.ID).Updates(map[string]any{
		"name":        item.Name,
		"description": item.Description,
		"type":        item.Type,
		"rarity":      item.Rarity,
		"value":       item.Value,
		"weight":      item.Weight,
		"effect":      item.Effect,
		"is_public":   item.IsPublic,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteSharedItem(ctx context.Context, id string) error {
	res := p.db.WithContext(ctx).Delete(&model.SharedItem{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetSharedAbilities(ctx context.Context) ([]types.Ability, error) {
	var rows []model.SharedAbility
	if err := p.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Ability, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.Ability{
			ID: row.ID, Name: row.Name, Description: row.Description,
			Type: row.Type, Cost: row.Cost, Range: row.Range, Duration: row.Duration, Effect: row.Effect,
			IsPublic: row.IsPublic, CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

func (p *Postgres) CreateSharedAbility(ctx context.Context, masterID string, ability types.Ability) error {
	createdAt := ability.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return p.db.WithContext(ctx).Create(&model.SharedAbility{
		ID: ability.ID, MasterID: masterID, Name: ability.Name, Description: ability.Description,
		Type: ability.Type, Cost: ability.Cost, Range: ability.Range, Duration: ability.Duration, Effect: ability.Effect,
		IsPublic: ability.IsPublic, CreatedAt: createdAt,
	}).Error
}

func (p *Postgres) UpdateSharedAbility(ctx context.Context, ability types.Ability) error {
	res := p.db.WithContext(ctx).Model(&model.SharedAbility{}).Where("id = ?", ability.ID).Updates(map[string]any{
		"name":        ability.Name,
		"description": ability.Description,
		"type":        ability.Type,
		"cost":        ability.Cost,
		"range":       ability.Range,
		"duration":    ability.Duration,
		"effect":      ability.Effect,
		"is_public":   ability.IsPublic,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteSharedAbility(ctx context.Context, id string) error {
	res := p.db.WithContext(ctx).Delete(&model.SharedAbility{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) CreateMasterNote(ctx context.Context, note types.MasterNote) error {
	createdAt := note.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return p.db.WithContext(ctx).Create(&model.MasterNote{
		ID: note.ID, MasterID: note.MasterID, Title: note.Title, Content: note.Content, CreatedAt: createdAt,
	}).Error
}

func (p *Postgres) GetMasterNotes(ctx context.Context, masterID string) ([]types.MasterNote, error) {
	var rows []model.MasterNote
	if err := p.db.WithContext(ctx).Where("master_id = ?", masterID).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.MasterNote, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.MasterNote{
			ID: row.ID, MasterID: row.MasterID, Title: row.Title, Content: row.Content, CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

func (p *Postgres) UpdateMasterNote(ctx context.Context, note types.MasterNote) error {
	res := p.db.WithContext(ctx).Model(&model.MasterNote{}).Where("id = ?", note.ID).Updates(map[string]any{
		"title":   note.Title,
		"content": note.Content,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteMasterNote(ctx context.Context, id string) error {
	res := p.db.WithContext(ctx).Delete(&model.MasterNote{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
