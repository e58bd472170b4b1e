// Package dateutil provides calendar-day helpers shared by the pricing and
// availability packages.
//
// All comparisons in this codebase happen on whole calendar days in the
// process's local zone. Formatting goes through the date's own Y/M/D fields
// rather than a UTC round-trip, so a blocked date stays the same calendar day
// no matter which timezone the process runs in.
package dateutil

import (
	"fmt"
	"time"
)

const (
	isoLayout   = "2006-01-02"
	humanLayout = "Jan 2, 2006"
)

// FormatISO renders t as YYYY-MM-DD using its own calendar fields.
func FormatISO(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// ParseISO parses a YYYY-MM-DD string into a local midnight time.
func ParseISO(s string) (time.Time, error) {
	return time.ParseInLocation(isoLayout, s, time.Local)
}

// FormatHuman renders t the way the inquiry webhook expects dates,
// e.g. "Jan 5, 2025".
func FormatHuman(t time.Time) string {
	return t.Format(humanLayout)
}

// Midnight truncates t to local midnight of the same calendar day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays returns t shifted by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysBetween returns the whole number of calendar days from a to b.
// Both ends are truncated to midnight first, so the result does not drift
// with the time of day the calculation runs. The difference is taken on
// UTC-normalized dates to stay exact across DST transitions.
func DaysBetween(a, b time.Time) int {
	return int(utcDay(b).Sub(utcDay(a)).Hours() / 24)
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
