// Package streak derives consecutive check-in day counts. Comparisons work on
// calendar days in the user's location, never on timestamp deltas, so a
// 23-hour gap that crosses midnight still counts as consecutive.
package streak

import "time"

// Update returns the streak value after a check-in at checkIn. lastCheckIn is
// nil for a first-ever check-in. The rules:
//   - exactly one calendar day after the previous check-in: streak + 1
//   - same calendar day: unchanged (re-check is idempotent)
//   - anything else (gap of two or more days, or no history): reset to 1
func Update(lastCheckIn *time.Time, checkIn time.Time, current int, loc *time.Location) int {
	if lastCheckIn == nil {
		return 1
	}

	switch DaysBetween(*lastCheckIn, checkIn, loc) {
	case 0:
		if current < 1 {
			return 1
		}
		return current
	case 1:
		if current < 1 {
			return 2
		}
		return current + 1
	default:
		return 1
	}
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DaysBetween(a, b, loc) == 0
}

// DaysBetween returns the whole calendar days from a to b in loc. The result
// is negative when b precedes a. Dates are re-anchored to UTC noon so DST
// transitions cannot shift the count.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	return int(noonUTC(b, loc).Sub(noonUTC(a, loc)).Hours() / 24)
}

func noonUTC(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}
