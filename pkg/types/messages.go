package types

import "encoding/json"

// Server -> Client slice envelopes. Each one replaces the whole slice on the
// receiving side; there is no partial merge.
const (
	SliceUsers           = "users"
	SliceMessages        = "messages"
	SliceCharacter       = "character"
	SliceSharedItems     = "shared_items"
	SliceSharedAbilities = "shared_abilities"
	SliceNPCs            = "npcs"
)

// Client -> Server command types.
const (
	CmdMessage               = "message"
	CmdDiceRoll              = "dice_roll"
	CmdUpdateCharacter       = "update_character"
	CmdUpdateHealth          = "update_health"
	CmdAddSharedItem         = "add_shared_item"
	CmdUpdateSharedItem      = "update_shared_item"
	CmdDeleteSharedItem      = "delete_shared_item"
	CmdAddSharedAbility      = "add_shared_ability"
	CmdUpdateSharedAbility   = "update_shared_ability"
	CmdDeleteSharedAbility   = "delete_shared_ability"
	CmdAddItemToCharacter    = "add_item_to_character"
	CmdAddAbilityToCharacter = "add_ability_to_character"
)

// ClientMessage is the flat tagged command a client sends over the channel.
// Which fields are meaningful depends on Type; everything else stays zero and
// is omitted on the wire.
type ClientMessage struct {
	Type string `json:"type"`

	// message
	Content string `json:"content,omitempty"`

	// dice_roll
	DiceType    string `json:"diceType,omitempty"`
	CharacterID string `json:"characterId,omitempty"`
	CustomValue int    `json:"customValue,omitempty"`

	// update_character
	Data *CharacterUpdate `json:"data,omitempty"`

	// update_health, add_item_to_character, add_ability_to_character
	UserID       string `json:"userId,omitempty"`
	HealthPoints *int   `json:"healthPoints,omitempty"`

	// shared item / ability commands
	Item      *Item    `json:"item,omitempty"`
	ItemID    string   `json:"itemId,omitempty"`
	Ability   *Ability `json:"ability,omitempty"`
	AbilityID string   `json:"abilityId,omitempty"`
}

// ServerMessage is the outgoing side of a slice envelope.
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Envelope is the decode side: Data stays raw until the dispatcher knows the type.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
