package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mesahub/mesa-backend/internal/rules"
	"github.com/mesahub/mesa-backend/pkg/types"
)

// Memory is the map-backed Store used when no DATABASE_URL is configured and
// throughout the tests. Everything is deep-copied on the way in and out so
// callers never alias internal state.
type Memory struct {
	mu              sync.Mutex
	users           map[string]*types.User
	messages        []types.ChatMessage
	sheets          map[string]*sheet
	npcs            map[string]types.NPC
	sharedItems     map[string]types.Item
	sharedAbilities map[string]types.Ability
	catalogOwners   map[string]string
	notes           map[string]types.MasterNote
}

type sheet struct {
	attributes types.Attributes
	skills     []types.Skill
	abilities  []types.Ability
	inventory  []types.Item
	currency   types.Currency
}

func NewMemory() *Memory {
	return &Memory{
		users:           make(map[string]*types.User),
		sheets:          make(map[string]*sheet),
		npcs:            make(map[string]types.NPC),
		sharedItems:     make(map[string]types.Item),
		sharedAbilities: make(map[string]types.Ability),
		catalogOwners:   make(map[string]string),
		notes:           make(map[string]types.MasterNote),
	}
}

var _ Store = (*Memory)(nil)

func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func (m *Memory) CreateUser(_ context.Context, id, nickname string, isMaster bool, characterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = &types.User{
		ID:              id,
		Nickname:        nickname,
		IsMaster:        isMaster,
		CharacterID:     characterID,
		HealthPoints:    10,
		MaxHealthPoints: 10,
		DiceResults:     []int{},
		CreatedAt:       time.Now(),
	}
	m.sheets[id] = &sheet{attributes: types.DefaultAttributes()}
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	out := *u
	out.DiceResults = cloneSlice(u.DiceResults)
	return out, nil
}

func (m *Memory) GetUsers(_ context.Context) ([]types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.User, 0, len(m.users))
	for _, u := range m.users {
		c := *u
		c.DiceResults = cloneSlice(u.DiceResults)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetUserByCharacterID(_ context.Context, characterID string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.CharacterID != "" && u.CharacterID == characterID {
			out := *u
			out.DiceResults = cloneSlice(u.DiceResults)
			return out, nil
		}
	}
	return types.User{}, ErrNotFound
}

func (m *Memory) UpdateUserNickname(_ context.Context, id, nickname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Nickname = nickname
	return nil
}

func (m *Memory) UpdateUserHealth(_ context.Context, id string, healthPoints int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.HealthPoints = rules.ClampHealth(healthPoints, u.MaxHealthPoints)
	return nil
}

func (m *Memory) UpdateUserMaxHealth(_ context.Context, id string, maxHealthPoints int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.HealthPoints, u.MaxHealthPoints = rules.ApplyMaxHealth(u.HealthPoints, maxHealthPoints)
	return nil
}

func (m *Memory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	delete(m.sheets, id)
	return nil
}

func (m *Memory) CreateMessage(_ context.Context, msg types.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *Memory) GetMessages(_ context.Context, limit int) ([]types.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return cloneSlice(msgs), nil
}

func (m *Memory) AddDiceResult(_ context.Context, userID string, result int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.DiceResults = append([]int{result}, u.DiceResults...)
	if len(u.DiceResults) > DiceHistoryLimit {
		u.DiceResults = u.DiceResults[:DiceHistoryLimit]
	}
	return nil
}

func (m *Memory) GetCharacter(_ context.Context, userID string) (types.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return types.Character{}, ErrNotFound
	}
	sh, ok := m.sheets[userID]
	if !ok {
		return types.Character{}, ErrNotFound
	}
	return types.Character{
		UserID:          userID,
		CharacterID:     u.CharacterID,
		Attributes:      sh.attributes,
		Skills:          cloneSlice(sh.skills),
		Abilities:       cloneSlice(sh.abilities),
		Inventory:       cloneSlice(sh.inventory),
		Currency:        sh.currency,
		HealthPoints:    u.HealthPoints,
		MaxHealthPoints: u.MaxHealthPoints,
	}, nil
}

func (m *Memory) ownerSheet(ownerID string) *sheet {
	sh, ok := m.sheets[ownerID]
	if !ok {
		sh = &sheet{attributes: types.DefaultAttributes()}
		m.sheets[ownerID] = sh
	}
	return sh
}

func (m *Memory) UpdateAttributes(_ context.Context, ownerID string, attrs types.Attributes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ownerSheet(ownerID).attributes = attrs
	return nil
}

func (m *Memory) ReplaceSkills(_ context.Context, ownerID string, skills []types.Skill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ownerSheet(ownerID).skills = cloneSlice(skills)
	return nil
}

func (m *Memory) ReplaceAbilities(_ context.Context, ownerID string, abilities []types.Ability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ownerSheet(ownerID).abilities = cloneSlice(abilities)
	return nil
}

func (m *Memory) ReplaceInventory(_ context.Context, ownerID string, items []types.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ownerSheet(ownerID).inventory = cloneSlice(items)
	return nil
}

func (m *Memory) UpdateCurrency(_ context.Context, ownerID string, currency types.Currency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ownerSheet(ownerID).currency = currency
	return nil
}

func (m *Memory) AddItemToCharacter(_ context.Context, userID string, item types.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return ErrNotFound
	}
	sh := m.ownerSheet(userID)
	sh.inventory = append(sh.inventory, item)
	return nil
}

func (m *Memory) AddAbilityToCharacter(_ context.Context, userID string, ability types.Ability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return ErrNotFound
	}
	sh := m.ownerSheet(userID)
	sh.abilities = append(sh.abilities, ability)
	return nil
}

func (m *Memory) CreateNPC(_ context.Context, npc types.NPC) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if npc.CreatedAt.IsZero() {
		npc.CreatedAt = time.Now()
	}
	npc.HealthPoints, npc.MaxHealthPoints = rules.ClampHealth(npc.HealthPoints, rules.ClampMaxHealth(npc.MaxHealthPoints)), rules.ClampMaxHealth(npc.MaxHealthPoints)
	m.npcs[npc.ID] = npc
	m.sheets[npc.ID] = &sheet{
		attributes: npc.Attributes,
		skills:     cloneSlice(npc.Skills),
		abilities:  cloneSlice(npc.Abilities),
		inventory:  cloneSlice(npc.Inventory),
	}
	return nil
}

func (m *Memory) GetNPCs(_ context.Context, masterID string) ([]types.NPC, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.NPC, 0)
	for _, npc := range m.npcs {
		if npc.MasterID != masterID {
			continue
		}
		if sh, ok := m.sheets[npc.ID]; ok {
			npc.Attributes = sh.attributes
			npc.Skills = cloneSlice(sh.skills)
			npc.Abilities = cloneSlice(sh.abilities)
			npc.Inventory = cloneSlice(sh.inventory)
		}
		npc.IsNPC = true
		out = append(out, npc)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) UpdateNPC(_ context.Context, npc types.NPC) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.npcs[npc.ID]
	if !ok {
		return ErrNotFound
	}
	npc.MasterID = prev.MasterID
	npc.CreatedAt = prev.CreatedAt
	npc.HealthPoints, npc.MaxHealthPoints = rules.ApplyMaxHealth(npc.HealthPoints, npc.MaxHealthPoints)
	m.npcs[npc.ID] = npc
	m.sheets[npc.ID] = &sheet{
		attributes: npc.Attributes,
		skills:     cloneSlice(npc.Skills),
		abilities:  cloneSlice(npc.Abilities),
		inventory:  cloneSlice(npc.Inventory),
	}
	return nil
}

func (m *Memory) DeleteNPC(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.npcs[id]; !ok {
		return ErrNotFound
	}
	delete(m.npcs, id)
	delete(m.sheets, id)
	return nil
}

func (m *Memory) GetSharedItems(_ context.Context) ([]types.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Item, 0, len(m.sharedItems))
	for _, it := range m.sharedItems {
		out = append(out, it)
	}
	sortByCreated(out, func(i types.Item) (time.Time, string) { return i.CreatedAt, i.ID })
	return out, nil
}

func (m *Memory) CreateSharedItem(_ context.Context, masterID string, item types.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	item.Quantity = 0 // catalog entries carry no quantity
	m.sharedItems[item.ID] = item
	m.catalogOwners[item.ID] = masterID
	return nil
}

func (m *Memory) UpdateSharedItem(_ context.Context, item types.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.sharedItems[item.ID]
	if !ok {
		return ErrNotFound
	}
	item.CreatedAt = prev.CreatedAt
	item.Quantity = 0
	m.sharedItems[item.ID] = item
	return nil
}

func (m *Memory) DeleteSharedItem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sharedItems[id]; !ok {
		return ErrNotFound
	}
	delete(m.sharedItems, id)
	delete(m.catalogOwners, id)
	return nil
}

func (m *Memory) GetSharedAbilities(_ context.Context) ([]types.Ability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Ability, 0, len(m.sharedAbilities))
	for _, ab := range m.sharedAbilities {
		out = append(out, ab)
	}
	sortByCreated(out, func(a types.Ability) (time.Time, string) { return a.CreatedAt, a.ID })
	return out, nil
}

func (m *Memory) CreateSharedAbility(_ context.Context, masterID string, ability types.Ability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ability.CreatedAt.IsZero() {
		ability.CreatedAt = time.Now()
	}
	m.sharedAbilities[ability.ID] = ability
	m.catalogOwners[ability.ID] = masterID
	return nil
}

func (m *Memory) UpdateSharedAbility(_ context.Context, ability types.Ability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.sharedAbilities[ability.ID]
	if !ok {
		return ErrNotFound
	}
	ability.CreatedAt = prev.CreatedAt
	m.sharedAbilities[ability.ID] = ability
	return nil
}

func (m *Memory) DeleteSharedAbility(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sharedAbilities[id]; !ok {
		return ErrNotFound
	}
	delete(m.sharedAbilities, id)
	delete(m.catalogOwners, id)
	return nil
}

func (m *Memory) CreateMasterNote(_ context.Context, note types.MasterNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now()
	}
	m.notes[note.ID] = note
	return nil
}

func (m *Memory) GetMasterNotes(_ context.Context, masterID string) ([]types.MasterNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.MasterNote, 0)
	for _, n := range m.notes {
		if n.MasterID == masterID {
			out = append(out, n)
		}
	}
	sortByCreated(out, func(n types.MasterNote) (time.Time, string) { return n.CreatedAt, n.ID })
	return out, nil
}

func (m *Memory) UpdateMasterNote(_ context.Context, note types.MasterNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.notes[note.ID]
	if !ok {
		return ErrNotFound
	}
	note.MasterID = prev.MasterID
	note.CreatedAt = prev.CreatedAt
	m.notes[note.ID] = note
	return nil
}

func (m *Memory) DeleteMasterNote(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return ErrNotFound
	}
	delete(m.notes, id)
	return nil
}

func sortByCreated[T any](s []T, key func(T) (time.Time, string)) {
	sort.Slice(s, func(i, j int) bool {
		ti, idi := key(s[i])
		tj, idj := key(s[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return idi < idj
	})
}
