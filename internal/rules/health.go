package rules

// ClampHealth keeps current health inside [0, maxHP].
func ClampHealth(hp, maxHP int) int {
	if hp < 0 {
		return 0
	}
	if hp > maxHP {
		return maxHP
	}
	return hp
}

// ClampMaxHealth keeps a sheet's maximum at 1 or above.
func ClampMaxHealth(maxHP int) int {
	if maxHP < 1 {
		return 1
	}
	return maxHP
}

// ApplyMaxHealth sets a new maximum and re-clamps current health against it.
// Lowering the maximum below current health drags current health down with it.
func ApplyMaxHealth(hp, newMax int) (int, int) {
	newMax = ClampMaxHealth(newMax)
	return ClampHealth(hp, newMax), newMax
}
