package client

import (
	"sync"
	"time"

	"github.com/mesahub/mesa-backend/internal/rules"
	"github.com/mesahub/mesa-backend/pkg/types"
)

// Editor holds the optimistic working copy of the client's own sheet. Edits
// land on the copy immediately so the UI never waits on the server; Commit
// ships the whole copy, and the server's echo replaces it with the canonical
// version. Health edits are the exception: they coalesce into one debounced
// delta instead of a full commit, so a player mashing the damage button
// produces a single command carrying the final values.
type Editor struct {
	c *Client

	mu      sync.Mutex
	working types.Character
	seeded  bool
	timer   *time.Timer
}

func newEditor(c *Client) *Editor {
	return &Editor{c: c}
}

// reset replaces the working copy with the canonical sheet. Reconciliation is
// total replacement, so unacknowledged local edits are discarded.
func (e *Editor) reset(ch types.Character) {
	e.mu.Lock()
	e.working = ch
	e.seeded = true
	e.mu.Unlock()
}

// Working returns the current working copy.
func (e *Editor) Working() types.Character {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.working
}

// SetAttributes replaces the attribute block on the working copy.
func (e *Editor) SetAttributes(attrs types.Attributes) {
	e.mu.Lock()
	e.working.Attributes = attrs
	e.mu.Unlock()
}

// SetSkills replaces the skill list on the working copy.
func (e *Editor) SetSkills(skills []types.Skill) {
	e.mu.Lock()
	e.working.Skills = skills
	e.mu.Unlock()
}

// SetAbilities replaces the ability list on the working copy.
func (e *Editor) SetAbilities(abilities []types.Ability) {
	e.mu.Lock()
	e.working.Abilities = abilities
	e.mu.Unlock()
}

// SetInventory replaces the inventory on the working copy.
func (e *Editor) SetInventory(items []types.Item) {
	e.mu.Lock()
	e.working.Inventory = items
	e.mu.Unlock()
}

// SetCurrency replaces the coin pouch on the working copy.
func (e *Editor) SetCurrency(cur types.Currency) {
	e.mu.Lock()
	e.working.Currency = cur
	e.mu.Unlock()
}

// SetHealth sets current health on the working copy, clamped to [0, max],
// and schedules the debounced commit. Health edits are ignored until the
// first canonical sheet has seeded the copy; clamping against a zero-valued
// maximum would floor every edit at 0 and commit garbage.
func (e *Editor) SetHealth(hp int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.seeded {
		return
	}
	e.working.HealthPoints = rules.ClampHealth(hp, e.working.MaxHealthPoints)
	e.scheduleHealthCommitLocked()
}

// AdjustHealth applies a damage or healing delta to the working copy.
func (e *Editor) AdjustHealth(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.seeded {
		return
	}
	e.working.HealthPoints = rules.ClampHealth(e.working.HealthPoints+delta, e.working.MaxHealthPoints)
	e.scheduleHealthCommitLocked()
}

// SetMaxHealth sets the maximum and re-clamps current health against it.
func (e *Editor) SetMaxHealth(maxHP int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.seeded {
		return
	}
	e.working.HealthPoints, e.working.MaxHealthPoints = rules.ApplyMaxHealth(e.working.HealthPoints, maxHP)
	e.scheduleHealthCommitLocked()
}

// scheduleHealthCommitLocked arms, or re-arms, the debounce timer. Each edit
// pushes the deadline out, so a burst of edits commits once with whatever the
// working copy holds when the timer finally fires.
func (e *Editor) scheduleHealthCommitLocked() {
	if e.timer != nil {
		e.timer.Reset(e.c.HealthDebounce)
		return
	}
	e.timer = time.AfterFunc(e.c.HealthDebounce, e.commitHealth)
}

// commitHealth ships only the health pair, reading the values at fire time.
func (e *Editor) commitHealth() {
	e.mu.Lock()
	hp := e.working.HealthPoints
	maxHP := e.working.MaxHealthPoints
	e.mu.Unlock()

	e.c.UpdateCharacter(types.CharacterUpdate{
		HealthPoints:    &hp,
		MaxHealthPoints: &maxHP,
	})
}

// Commit ships the full working copy as one update. Health edits still in
// their debounce window ride along; the timer firing afterwards resends the
// same values, which is harmless.
func (e *Editor) Commit() {
	e.mu.Lock()
	w := e.working
	e.mu.Unlock()

	hp := w.HealthPoints
	maxHP := w.MaxHealthPoints
	upd := types.CharacterUpdate{
		Attributes:      &w.Attributes,
		Skills:          w.Skills,
		Abilities:       w.Abilities,
		Inventory:       w.Inventory,
		Currency:        &w.Currency,
		HealthPoints:    &hp,
		MaxHealthPoints: &maxHP,
	}
	if upd.Skills == nil {
		upd.Skills = []types.Skill{}
	}
	if upd.Abilities == nil {
		upd.Abilities = []types.Ability{}
	}
	if upd.Inventory == nil {
		upd.Inventory = []types.Item{}
	}
	e.c.UpdateCharacter(upd)
}
