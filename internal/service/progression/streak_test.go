package progression

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func TestNextStreak_FirstActivity(t *testing.T) {
	if got := nextStreak(0, nil, date(2025, 3, 10, 12)); got != 1 {
		t.Errorf("expected streak 1 on first activity, got %d", got)
	}
}

func TestNextStreak(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		last     time.Time
		now      time.Time
		expected int
	}{
		{"same day repeat unchanged", 4, date(2025, 3, 10, 9), date(2025, 3, 10, 22), 4},
		{"next day increments", 4, date(2025, 3, 10, 9), date(2025, 3, 11, 9), 5},
		{"two day gap resets", 4, date(2025, 3, 10, 9), date(2025, 3, 12, 9), 1},
		{"week gap resets", 9, date(2025, 3, 1, 9), date(2025, 3, 8, 9), 1},
		{"midnight boundary counts as next day", 2, date(2025, 3, 10, 23), date(2025, 3, 11, 0), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := tt.last
			if got := nextStreak(tt.current, &last, tt.now); got != tt.expected {
				t.Errorf("nextStreak(%d, %v, %v) = %d, want %d", tt.current, tt.last, tt.now, got, tt.expected)
			}
		})
	}
}

func TestCalendarDaysBetween(t *testing.T) {
	tests := []struct {
		a, b     time.Time
		expected int
	}{
		{date(2025, 3, 10, 0), date(2025, 3, 10, 23), 0},
		{date(2025, 3, 10, 23), date(2025, 3, 11, 0), 1},
		{date(2025, 3, 10, 12), date(2025, 3, 13, 12), 3},
		{date(2025, 2, 28, 12), date(2025, 3, 1, 12), 1},
	}

	for _, tt := range tests {
		if got := calendarDaysBetween(tt.a, tt.b); got != tt.expected {
			t.Errorf("calendarDaysBetween(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.expected)
		}
	}
}
