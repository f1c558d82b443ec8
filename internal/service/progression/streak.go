package progression

import (
	"time"
)

// Streaks count consecutive calendar days (UTC) with at least one recorded
// activity, so 23:59 followed by 00:01 still counts as consecutive days.

// nextStreak computes the streak after an activity at now given the previous
// streak and last activity time.
func nextStreak(current int, last *time.Time, now time.Time) int {
	if last == nil {
		return 1
	}
	switch diff := calendarDaysBetween(*last, now); {
	case diff == 1:
		return current + 1
	case diff <= 0:
		// Same-day repeat neither increments nor resets.
		return current
	default:
		return 1
	}
}

// calendarDaysBetween returns the whole-day difference between two instants
// after truncating both to UTC dates.
func calendarDaysBetween(a, b time.Time) int {
	au := a.UTC()
	bu := b.UTC()
	aDay := time.Date(au.Year(), au.Month(), au.Day(), 0, 0, 0, 0, time.UTC)
	bDay := time.Date(bu.Year(), bu.Month(), bu.Day(), 0, 0, 0, 0, time.UTC)
	return int(bDay.Sub(aDay) / (24 * time.Hour))
}
