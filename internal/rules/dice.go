package rules

import (
	"errors"
	"math/rand"
	"time"
)

var ErrUnknownDice = errors.New("unknown dice type")
var ErrInvalidFaces = errors.New("custom dice need a positive face count")

// DiceCustom is the dice type whose face count comes from the caller.
const DiceCustom = "custom"

var diceFaces = map[string]int{
	"d4":  4,
	"d6":  6,
	"d8":  8,
	"d10": 10,
	"d12": 12,
	"d20": 20,
}

// Faces resolves a dice type to its face count. customValue is only consulted
// for DiceCustom and must be positive there.
func Faces(diceType string, customValue int) (int, error) {
	if diceType == DiceCustom {
		if customValue <= 0 {
			return 0, ErrInvalidFaces
		}
		return customValue, nil
	}
	n, ok := diceFaces[diceType]
	if !ok {
		return 0, ErrUnknownDice
	}
	return n, nil
}

// Roll returns a uniform result in [1, faces].
func Roll(r *rand.Rand, faces int) int {
	return 1 + r.Intn(faces)
}

func NewRNG() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) }
