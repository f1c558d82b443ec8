package progression

import (
	"testing"
)

func TestLevelForTotalXP(t *testing.T) {
	tests := []struct {
		totalXP  int
		expected int
	}{
		{0, 1},
		{1, 1},
		{199, 1},
		{200, 2},
		{201, 2},
		{599, 2},
		{600, 3},
		{1199, 3},
		{1200, 4}, // 200+400+600
		{2000, 5}, // 200+400+600+800
		{1999, 4},
		{3000, 6}, // +1000
	}

	for _, tt := range tests {
		got := levelForTotalXP(tt.totalXP, 200)
		if got != tt.expected {
			t.Errorf("levelForTotalXP(%d) = %d, want %d", tt.totalXP, got, tt.expected)
		}
	}
}

func TestLevelForTotalXP_NegativeClampsToOne(t *testing.T) {
	if got := levelForTotalXP(-50, 200); got != 1 {
		t.Errorf("expected level 1 for negative totalXP, got %d", got)
	}
}

func TestLevelIsUniqueTierForEveryAmount(t *testing.T) {
	// level(totalXP) must be the unique L with
	// sum_{k<L} 200k <= totalXP < sum_{k<=L} 200k.
	for totalXP := 0; totalXP <= 5000; totalXP += 7 {
		level := levelForTotalXP(totalXP, 200)

		floor := 0
		for k := 1; k < level; k++ {
			floor += 200 * k
		}
		ceil := floor + 200*level

		if totalXP < floor || totalXP >= ceil {
			t.Fatalf("totalXP=%d: level %d has bounds [%d, %d)", totalXP, level, floor, ceil)
		}
	}
}

func TestXPIntoLevel(t *testing.T) {
	tests := []struct {
		totalXP  int
		into     int
		required int
	}{
		{0, 0, 200},
		{150, 150, 200},
		{200, 0, 400},
		{350, 150, 400},
		{600, 0, 600},
	}

	for _, tt := range tests {
		if got := xpIntoLevel(tt.totalXP, 200); got != tt.into {
			t.Errorf("xpIntoLevel(%d) = %d, want %d", tt.totalXP, got, tt.into)
		}
		if got := xpForNextLevel(tt.totalXP, 200); got != tt.required {
			t.Errorf("xpForNextLevel(%d) = %d, want %d", tt.totalXP, got, tt.required)
		}
	}
}
