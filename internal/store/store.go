// Package store persists session state. Postgres (via gorm) backs real
// deployments; Memory backs development without a DATABASE_URL and the tests.
package store

import (
	"context"
	"errors"

	"github.com/mesahub/mesa-backend/pkg/types"
)

var ErrNotFound = errors.New("store: not found")

// DiceHistoryLimit caps how many recent rolls ride along on each roster entry.
const DiceHistoryLimit = 10

// Store is the persistence surface the session table and HTTP API run on.
// Health writes clamp at the store: current health stays in [0, max], max
// stays >= 1, and lowering max drags current health down with it.
//
// Sheet-section methods take an ownerID, which is a user id for player
// characters and an npc id for NPC sheets.
type Store interface {
	CreateUser(ctx context.Context, id, nickname string, isMaster bool, characterID string) error
	GetUser(ctx context.Context, id string) (types.User, error)
	GetUsers(ctx context.Context) ([]types.User, error)
	GetUserByCharacterID(ctx context.Context, characterID string) (types.User, error)
	UpdateUserNickname(ctx context.Context, id, nickname string) error
	UpdateUserHealth(ctx context.Context, id string, healthPoints int) error
	UpdateUserMaxHealth(ctx context.Context, id string, maxHealthPoints int) error
	DeleteUser(ctx context.Context, id string) error

	CreateMessage(ctx context.Context, msg types.ChatMessage) error
	GetMessages(ctx context.Context, limit int) ([]types.ChatMessage, error)
	AddDiceResult(ctx context.Context, userID string, result int) error

	GetCharacter(ctx context.Context, userID string) (types.Character, error)
	UpdateAttributes(ctx context.Context, ownerID string, attrs types.Attributes) error
	ReplaceSkills(ctx context.Context, ownerID string, skills []types.Skill) error
	ReplaceAbilities(ctx context.Context, ownerID string, abilities []types.Ability) error
	ReplaceInventory(ctx context.Context, ownerID string, items []types.Item) error
	UpdateCurrency(ctx context.Context, ownerID string, currency types.Currency) error
	AddItemToCharacter(ctx context.Context, userID string, item types.Item) error
	AddAbilityToCharacter(ctx context.Context, userID string, ability types.Ability) error

	CreateNPC(ctx context.Context, npc types.NPC) error
	GetNPCs(ctx context.Context, masterID string) ([]types.NPC, error)
	UpdateNPC(ctx context.Context, npc types.NPC) error
	DeleteNPC(ctx context.Context, id string) error

	GetSharedItems(ctx context.Context) ([]types.Item, error)
	CreateSharedItem(ctx context.Context, masterID string, item types.Item) error
	UpdateSharedItem(ctx context.Context, item types.Item) error
	DeleteSharedItem(ctx context.Context, id string) error

	GetSharedAbilities(ctx context.Context) ([]types.Ability, error)
	CreateSharedAbility(ctx context.Context, masterID string, ability types.Ability) error
	UpdateSharedAbility(ctx context.Context, ability types.Ability) error
	DeleteSharedAbility(ctx context.Context, id string) error

	CreateMasterNote(ctx context.Context, note types.MasterNote) error
	GetMasterNotes(ctx context.Context, masterID string) ([]types.MasterNote, error)
	UpdateMasterNote(ctx context.Context, note types.MasterNote) error
	DeleteMasterNote(ctx context.Context, id string) error
}

// ApplyCharacterUpdate applies the non-nil sections of upd to a user's sheet.
// Both the channel and the REST surface funnel sheet edits through here.
func ApplyCharacterUpdate(ctx context.Context, s Store, userID string, upd types.CharacterUpdate) error {
	if upd.Attributes != nil {
		if err := s.UpdateAttributes(ctx, userID, *upd.Attributes); err != nil {
			return err
		}
	}
	if upd.Skills != nil {
		if err := s.ReplaceSkills(ctx, userID, upd.Skills); err != nil {
			return err
		}
	}
	if upd.Abilities != nil {
		if err := s.ReplaceAbilities(ctx, userID, upd.Abilities); err != nil {
			return err
		}
	}
	if upd.Inventory != nil {
		if err := s.ReplaceInventory(ctx, userID, upd.Inventory); err != nil {
			return err
		}
	}
	if upd.Currency != nil {
		if err := s.UpdateCurrency(ctx, userID, *upd.Currency); err != nil {
			return err
		}
	}
	if upd.MaxHealthPoints != nil {
		if err := s.UpdateUserMaxHealth(ctx, userID, *upd.MaxHealthPoints); err != nil {
			return err
		}
	}
	if upd.HealthPoints != nil {
		if err := s.UpdateUserHealth(ctx, userID, *upd.HealthPoints); err != nil {
			return err
		}
	}
	return nil
}
