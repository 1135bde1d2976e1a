package types

import "time"

// Attributes is the fixed six-attribute block every sheet carries.
type Attributes struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// DefaultAttributes returns the block every new sheet starts with.
func DefaultAttributes() Attributes {
	return Attributes{
		Strength:     10,
		Dexterity:    10,
		Constitution: 10,
		Intelligence: 10,
		Wisdom:       10,
		Charisma:     10,
	}
}

type Skill struct {
	Name       string `json:"name"`
	Value      int    `json:"value"`
	Proficient bool   `json:"proficient"`
}

// Ability is used in two roles: as a shared-catalog entry (all fields) and as a
// character-owned copy (id/name/description plus whatever was copied on attach).
type Ability struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        string    `json:"type,omitempty"`
	Cost        string    `json:"cost,omitempty"`
	Range       string    `json:"range,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	Effect      string    `json:"effect,omitempty"`
	IsPublic    bool      `json:"isPublic,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}

// Item is used in two roles, like Ability: shared-catalog entry or inventory copy.
// Quantity is only meaningful on an inventory copy.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity,omitempty"`
	Type        string    `json:"type,omitempty"`
	Rarity      string    `json:"rarity,omitempty"`
	Value       string    `json:"value,omitempty"`
	Weight      string    `json:"weight,omitempty"`
	Effect      string    `json:"effect,omitempty"`
	IsPublic    bool      `json:"isPublic,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}

type Currency struct {
	Bronze int `json:"bronze"`
	Silver int `json:"silver"`
	Gold   int `json:"gold"`
}

// User is the roster entry broadcast to every client. CharacterID is stripped
// for other users when the recipient is not the master.
type User struct {
	ID              string    `json:"id"`
	Nickname        string    `json:"nickname"`
	IsMaster        bool      `json:"isMaster"`
	CharacterID     string    `json:"characterId,omitempty"`
	HealthPoints    int       `json:"healthPoints"`
	MaxHealthPoints int       `json:"maxHealthPoints"`
	DiceResults     []int     `json:"diceResults"`
	CreatedAt       time.Time `json:"createdAt,omitzero"`
}

// Character is the full sheet document. The server owns the canonical version;
// clients hold a working copy that is replaced wholesale on every echo.
type Character struct {
	UserID          string     `json:"userId"`
	CharacterID     string     `json:"characterId,omitempty"`
	Attributes      Attributes `json:"attributes"`
	Skills          []Skill    `json:"skills"`
	Abilities       []Ability  `json:"abilities"`
	Inventory       []Item     `json:"inventory"`
	Currency        Currency   `json:"currency"`
	HealthPoints    int        `json:"healthPoints"`
	MaxHealthPoints int        `json:"maxHealthPoints"`
}

// CharacterUpdate is a partial sheet edit: only non-nil sections are applied.
// A full commit sets every section; a debounced health delta sets only the
// health pointers.
type CharacterUpdate struct {
	Attributes      *Attributes `json:"attributes"`
	Skills          []Skill     `json:"skills"`
	Abilities       []Ability   `json:"abilities"`
	Inventory       []Item      `json:"inventory"`
	Currency        *Currency   `json:"currency"`
	HealthPoints    *int        `json:"healthPoints,omitempty"`
	MaxHealthPoints *int        `json:"maxHealthPoints,omitempty"`
}

// NPC is a master-owned sheet with table-presentation extras.
type NPC struct {
	ID              string     `json:"id"`
	MasterID        string     `json:"masterId,omitempty"`
	Nickname        string     `json:"nickname"`
	HealthPoints    int        `json:"healthPoints"`
	MaxHealthPoints int        `json:"maxHealthPoints"`
	ShowHealthBar   bool       `json:"showHealthBar"`
	HealthBarColor  string     `json:"healthBarColor"`
	ShowInChat      bool       `json:"showInChat"`
	Notes           string     `json:"notes"`
	IsNPC           bool       `json:"isNpc"`
	Attributes      Attributes `json:"attributes"`
	Skills          []Skill    `json:"skills"`
	Abilities       []Ability  `json:"abilities"`
	Inventory       []Item     `json:"inventory"`
	CreatedAt       time.Time  `json:"createdAt,omitzero"`
}

// ChatMessage entries are append-only and ordered by arrival.
type ChatMessage struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Nickname   string    `json:"nickname"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	IsDiceRoll bool      `json:"isDiceRoll"`
	DiceType   string    `json:"diceType,omitempty"`
	DiceResult int       `json:"diceResult,omitempty"`
}

type MasterNote struct {
	ID        string    `json:"id"`
	MasterID  string    `json:"masterId,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}
