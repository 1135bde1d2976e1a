package rules

import "github.com/mesahub/mesa-backend/pkg/types"

// OwnedItemCopy instantiates a catalog entry as a character-owned item. The
// copy gets its own id and a starting quantity of 1; the source entry is never
// referenced again, so later edits to the copy cannot touch the catalog.
func OwnedItemCopy(src types.Item, id string) types.Item {
	return types.Item{
		ID:          id,
		Name:        src.Name,
		Description: src.Description,
		Quantity:    1,
		Type:        src.Type,
		Rarity:      src.Rarity,
		Value:       src.Value,
		Weight:      src.Weight,
		Effect:      src.Effect,
	}
}

// OwnedAbilityCopy instantiates a catalog entry as a character-owned ability.
func OwnedAbilityCopy(src types.Ability, id string) types.Ability {
	return types.Ability{
		ID:          id,
		Name:        src.Name,
		Description: src.Description,
		Type:        src.Type,
		Cost:        src.Cost,
		Range:       src.Range,
		Duration:    src.Duration,
		Effect:      src.Effect,
	}
}
