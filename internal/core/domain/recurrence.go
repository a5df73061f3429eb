package domain

import "time"

// MaxIntervalCount bounds RecurrenceDetails.IntervalCount.
const MaxIntervalCount = 1000

// Occurrences never land past this year.
const maxOccurrenceYear = 9999

// maxSteps is the largest unit offset from a start date that stays within a
// ten thousand year span. Zero marks an unknown unit.
func maxSteps(unit FrequencyUnit) int {
	switch unit {
	case UnitDaily:
		return 10000 * 366
	case UnitWeekly:
		return 10000 * 53
	case UnitMonthly:
		return 10000 * 12
	case UnitYearly:
		return 10000
	default:
		return 0
	}
}

// NextOccurrence steps from start by IntervalCount units of FrequencyUnit
// until the cursor is strictly after now. The start itself counts as the
// first occurrence. It returns nil when the candidate would exceed
// EndAfterOccurrences or land after EndOnDate, when it would pass the year
// 9999, or when details are unusable. Steps are taken in start's location,
// so local wall-clock times survive DST changes.
func NextOccurrence(start time.Time, d RecurrenceDetails, now time.Time) *time.Time {
	if d.IntervalCount < 1 {
		return nil
	}
	limit := maxSteps(d.FrequencyUnit)
	var (
		cursor = start
		index  = 1
	)
	for !cursor.After(now) {
		index++
		if index-1 > limit/d.IntervalCount {
			return nil
		}
		next, ok := stepFrom(start, d.FrequencyUnit, (index-1)*d.IntervalCount)
		if !ok || next.Year() > maxOccurrenceYear {
			return nil
		}
		cursor = next
		if d.EndAfterOccurrences != nil && index > *d.EndAfterOccurrences {
			return nil
		}
		if d.EndOnDate != nil && cursor.After(*d.EndOnDate) {
			return nil
		}
	}
	if d.EndAfterOccurrences != nil && index > *d.EndAfterOccurrences {
		return nil
	}
	if d.EndOnDate != nil && cursor.After(*d.EndOnDate) {
		return nil
	}
	return &cursor
}

// stepFrom returns start advanced by n units. Month and year steps clamp to
// the last day of the target month.
func stepFrom(start time.Time, unit FrequencyUnit, n int) (time.Time, bool) {
	switch unit {
	case UnitDaily:
		return start.AddDate(0, 0, n), true
	case UnitWeekly:
		return start.AddDate(0, 0, 7*n), true
	case UnitMonthly:
		return addMonthsClamped(start, n), true
	case UnitYearly:
		return addMonthsClamped(start, 12*n), true
	default:
		return time.Time{}, false
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
