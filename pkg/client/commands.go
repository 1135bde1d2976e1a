package client

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mesahub/mesa-backend/internal/rules"
	"github.com/mesahub/mesa-backend/pkg/types"
)

var (
	idMu     sync.Mutex
	lastIDMs int64
)

// provisionalID stamps the client-side id a new catalog or inventory entry
// carries until the server acknowledges it. The server may keep it or replace
// it; the next broadcast settles the question either way. The millisecond
// stamp is bumped when two ids land in the same millisecond, so ids are
// always distinct.
func provisionalID(prefix string) string {
	idMu.Lock()
	ms := time.Now().UnixMilli()
	if ms <= lastIDMs {
		ms = lastIDMs + 1
	}
	lastIDMs = ms
	idMu.Unlock()
	return fmt.Sprintf("%s-%d", prefix, ms)
}

// SendMessage posts a chat message. Whitespace-only content is dropped
// without touching the wire.
func (c *Client) SendMessage(content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	c.send(types.ClientMessage{Type: types.CmdMessage, Content: content})
}

// RollDice asks the table to roll. customValue is only consulted for the
// custom dice type and must be positive there; invalid requests are rejected
// locally and never sent. targetCharacterID lets a master roll on another
// sheet's behalf and is otherwise left empty.
func (c *Client) RollDice(diceType string, customValue int, targetCharacterID string) error {
	if _, err := rules.Faces(diceType, customValue); err != nil {
		return err
	}
	c.send(types.ClientMessage{
		Type:        types.CmdDiceRoll,
		DiceType:    diceType,
		CustomValue: customValue,
		CharacterID: targetCharacterID,
	})
	return nil
}

// UpdateCharacter sends a partial sheet edit. Most callers go through the
// Editor instead; this is the raw command.
func (c *Client) UpdateCharacter(upd types.CharacterUpdate) {
	c.send(types.ClientMessage{Type: types.CmdUpdateCharacter, Data: &upd})
}

// UpdateHealth sets another user's current health. The server enforces that
// only the master may target someone else.
func (c *Client) UpdateHealth(userID string, healthPoints int) {
	c.send(types.ClientMessage{
		Type:         types.CmdUpdateHealth,
		UserID:       userID,
		HealthPoints: &healthPoints,
	})
}

// AddSharedItem publishes a new catalog item. A missing id gets a
// provisional one and a missing creation time is stamped now.
func (c *Client) AddSharedItem(item types.Item) {
	if item.ID == "" {
		item.ID = provisionalID("item")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	c.send(types.ClientMessage{Type: types.CmdAddSharedItem, Item: &item})
}

// UpdateSharedItem replaces a catalog item in place.
func (c *Client) UpdateSharedItem(item types.Item) {
	c.send(types.ClientMessage{Type: types.CmdUpdateSharedItem, Item: &item})
}

// DeleteSharedItem removes a catalog item. Copies already attached to
// characters survive.
func (c *Client) DeleteSharedItem(id string) {
	c.send(types.ClientMessage{Type: types.CmdDeleteSharedItem, ItemID: id})
}

// AddSharedAbility publishes a new catalog ability.
func (c *Client) AddSharedAbility(ability types.Ability) {
	if ability.ID == "" {
		ability.ID = provisionalID("ability")
	}
	if ability.CreatedAt.IsZero() {
		ability.CreatedAt = time.Now()
	}
	c.send(types.ClientMessage{Type: types.CmdAddSharedAbility, Ability: &ability})
}

// UpdateSharedAbility replaces a catalog ability in place.
func (c *Client) UpdateSharedAbility(ability types.Ability) {
	c.send(types.ClientMessage{Type: types.CmdUpdateSharedAbility, Ability: &ability})
}

// DeleteSharedAbility removes a catalog ability.
func (c *Client) DeleteSharedAbility(id string) {
	c.send(types.ClientMessage{Type: types.CmdDeleteSharedAbility, AbilityID: id})
}

// AddItemToCharacter copies a catalog item onto a character's inventory. The
// copy is independent of the catalog entry: it gets its own id and starts at
// quantity 1, and the source entry is left untouched.
func (c *Client) AddItemToCharacter(userID, catalogItemID string) error {
	src, ok := c.state.sharedItem(catalogItemID)
	if !ok {
		return fmt.Errorf("shared item %s not in catalog", catalogItemID)
	}
	item := rules.OwnedItemCopy(src, provisionalID("char-item"))
	c.send(types.ClientMessage{
		Type:   types.CmdAddItemToCharacter,
		UserID: userID,
		Item:   &item,
	})
	return nil
}

// AddAbilityToCharacter copies a catalog ability onto a character's sheet.
func (c *Client) AddAbilityToCharacter(userID, catalogAbilityID string) error {
	src, ok := c.state.sharedAbility(catalogAbilityID)
	if !ok {
		return fmt.Errorf("shared ability %s not in catalog", catalogAbilityID)
	}
	ability := rules.OwnedAbilityCopy(src, provisionalID("char-ability"))
	c.send(types.ClientMessage{
		Type:    types.CmdAddAbilityToCharacter,
		UserID:  userID,
		Ability: &ability,
	})
	return nil
}
