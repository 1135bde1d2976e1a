// Package model holds the persistence schema. Sheet sections (attributes,
// skills, abilities, inventory) are keyed by OwnerID so the same tables serve
// both player characters (owner = user id) and NPCs (owner = npc id).
package model

import "time"

type User struct {
	ID              string `gorm:"primaryKey"`
	Nickname        string `gorm:"not null"`
	IsMaster        bool   `gorm:"not null;default:false"`
	CharacterID     string `gorm:"index"`
	HealthPoints    int    `gorm:"not null;default:10"`
	MaxHealthPoints int    `gorm:"not null;default:10"`
	CreatedAt       time.Time
}

type Message struct {
	ID         string `gorm:"primaryKey"`
	UserID     string `gorm:"index"`
	Nickname   string
	Content    string
	Timestamp  time.Time `gorm:"index"`
	IsDiceRoll bool
	DiceType   string
	DiceResult int
}

type DiceResult struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"index"`
	Result    int
	Timestamp time.Time
}

type AttributeSet struct {
	OwnerID      string `gorm:"primaryKey"`
	Strength     int    `gorm:"not null;default:10"`
	Dexterity    int    `gorm:"not null;default:10"`
	Constitution int    `gorm:"not null;default:10"`
	Intelligence int    `gorm:"not null;default:10"`
	Wisdom       int    `gorm:"not null;default:10"`
	Charisma     int    `gorm:"not null;default:10"`
}

type Skill struct {
	ID         uint   `gorm:"primaryKey"`
	OwnerID    string `gorm:"index"`
	Name       string
	Value      int
	Proficient bool
}

type Ability struct {
	ID          string `gorm:"primaryKey"`
	OwnerID     string `gorm:"index"`
	Name        string
	Description string
	Type        string
	Cost        string
	Range       string
	Duration    string
	Effect      string
}

type InventoryItem struct {
	ID          string `gorm:"primaryKey"`
	OwnerID     string `gorm:"index"`
	Name        string
	Description string
	Quantity    int `gorm:"not null;default:1"`
	Type        string
	Rarity      string
	Value       string
	Weight      string
	Effect      string
}

type Currency struct {
	OwnerID string `gorm:"primaryKey"`
	Bronze  int    `gorm:"not null;default:0"`
	Silver  int    `gorm:"not null;default:0"`
	Gold    int    `gorm:"not null;default:0"`
}

type NPC struct {
	ID              string `gorm:"primaryKey"`
	MasterID        string `gorm:"index"`
	Nickname        string
	HealthPoints    int    `gorm:"not null;default:10"`
	MaxHealthPoints int    `gorm:"not null;default:10"`
	ShowHealthBar   bool   `gorm:"not null;default:true"`
	HealthBarColor  string `gorm:"default:green"`
	ShowInChat      bool   `gorm:"not null;default:false"`
	Notes           string
	CreatedAt       time.Time
}

type SharedItem struct {
	ID          string `gorm:"primaryKey"`
	MasterID    string `gorm:"index"`
	Name        string
	Description string
	Type        string
	Rarity      string
	Value       string
	Weight      string
	Effect      string
	IsPublic    bool `gorm:"not null;default:false"`
	CreatedAt   time.Time
}

type SharedAbility struct {
	ID          string `gorm:"primaryKey"`
	MasterID    string `gorm:"index"`
	Name        string
	Description string
	Type        string
	Cost        string
	Range       string
	Duration    string
	Effect      string
	IsPublic    bool `gorm:"not null;default:false"`
	CreatedAt   time.Time
}

type MasterNote struct {
	ID        string `gorm:"primaryKey"`
	MasterID  string `gorm:"index"`
	Title     string
	Content   string
	CreatedAt time.Time
}

// All lists every table for AutoMigrate.
func All() []any {
	return []any{
		&User{}, &Message{}, &DiceResult{},
		&AttributeSet{}, &Skill{}, &Ability{}, &InventoryItem{}, &Currency{},
		&NPC{}, &SharedItem{}, &SharedAbility{}, &MasterNote{},
	}
}
