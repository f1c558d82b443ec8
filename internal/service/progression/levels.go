package progression

// The leveling curve is a fixed, increasing per-tier cost schedule: moving
// from level k to k+1 costs k*step XP. Levels are always re-derived from
// lifetime XP rather than tracked incrementally, so out-of-band grants keep
// the stored level consistent.

// levelForTotalXP returns the level for a lifetime XP amount.
func levelForTotalXP(totalXP, step int) int {
	if totalXP < 0 {
		return 1
	}
	level := 1
	threshold := step
	remaining := totalXP
	for remaining >= threshold {
		remaining -= threshold
		level++
		threshold += step
	}
	return level
}

// xpIntoLevel returns how much XP has accrued past the current level's floor.
func xpIntoLevel(totalXP, step int) int {
	remaining := totalXP
	threshold := step
	for remaining >= threshold {
		remaining -= threshold
		threshold += step
	}
	return remaining
}

// xpForNextLevel returns the full cost of the tier the user is currently in.
func xpForNextLevel(totalXP, step int) int {
	threshold := step
	remaining := totalXP
	for remaining >= threshold {
		remaining -= threshold
		threshold += step
	}
	return threshold
}
