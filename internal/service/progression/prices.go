package progression

import (
	"sort"
)

// powerUpPrices is the fixed XP price per power-up type, loaded once and
// never mutated. Unknown types are rejected rather than treated as free.
var powerUpPrices = map[string]int{
	"revive":    200,
	"hint":      50,
	"magnet":    100,
	"freeze":    150,
	"swap":      150,
	"shield":    125,
	"boost":     200,
	"xray":      250,
	"snap":      180,
	"overtime":  100,
	"autopilot": 500,
}

// PowerUpCost returns the price for a power-up type.
func PowerUpCost(powerUpType string) (int, bool) {
	cost, ok := powerUpPrices[powerUpType]
	return cost, ok
}

// PowerUpTypes returns the known power-up types in stable order.
func PowerUpTypes() []string {
	types := make([]string, 0, len(powerUpPrices))
	for t := range powerUpPrices {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
