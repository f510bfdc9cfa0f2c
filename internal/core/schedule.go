package core

import (
	"fmt"
	"time"
)

// NextOccurrence computes the next due date for a recurring transaction
// processed at from. Monthly and yearly advances keep the day of month,
// clamped to the target month's length (Jan 31 -> Feb 28/29, never Mar 3).
func NextOccurrence(from time.Time, interval RecurringInterval) (time.Time, error) {
	switch interval {
	case Daily:
		return from.AddDate(0, 0, 1), nil
	case Weekly:
		return from.AddDate(0, 0, 7), nil
	case Monthly:
		return addMonthsClamped(from, 1), nil
	case Yearly:
		return addYearsClamped(from, 1), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupportedInterval, interval)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func addYearsClamped(t time.Time, years int) time.Time {
	year, month, day := t.Date()
	if last := daysIn(year+years, month); day > last {
		day = last
	}
	return time.Date(year+years, month, day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StartOfMonth returns midnight on the first day of t's calendar month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// SameCalendarMonth reports whether two instants fall in the same
// calendar month of the same year.
func SameCalendarMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
