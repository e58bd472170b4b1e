package dateutil

import (
	"reflect"
	"testing"
	"time"
)

func TestFormatISOUsesCalendarFields(t *testing.T) {
	// 23:30 in a UTC-6 zone is already the next day in UTC; the formatted
	// date must stay the local calendar day.
	loc := time.FixedZone("UTC-6", -6*3600)
	d := time.Date(2025, time.January, 10, 23, 30, 0, 0, loc)

	if got := FormatISO(d); got != "2025-01-10" {
		t.Errorf("FormatISO = %q, want 2025-01-10", got)
	}
}

func TestParseISORoundTrip(t *testing.T) {
	d, err := ParseISO("2025-03-09")
	if err != nil {
		t.Fatalf("ParseISO: %v", err)
	}
	if got := FormatISO(d); got != "2025-03-09" {
		t.Errorf("round trip = %q", got)
	}

	if _, err := ParseISO("03/09/2025"); err == nil {
		t.Error("ParseISO accepted a non-ISO format")
	}
}

func TestFormatHuman(t *testing.T) {
	d := time.Date(2025, time.January, 5, 0, 0, 0, 0, time.Local)
	if got := FormatHuman(d); got != "Jan 5, 2025" {
		t.Errorf("FormatHuman = %q, want \"Jan 5, 2025\"", got)
	}
}

func TestDaysBetween(t *testing.T) {
	base := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"same day", base, base, 0},
		{"same day different hours", base.Add(23 * time.Hour), base, 0},
		{"next day", base, base.AddDate(0, 0, 1), 1},
		{"late evening to next morning", base.Add(23 * time.Hour), base.AddDate(0, 0, 1).Add(time.Hour), 1},
		{"backwards", base.AddDate(0, 0, 3), base, -3},
		{"week apart", base, base.AddDate(0, 0, 7), 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysBetween(tt.a, tt.b); got != tt.want {
				t.Errorf("DaysBetween = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDateSet(t *testing.T) {
	s := NewDateSet("2025-01-02", "2025-01-01", "2025-01-02")

	if !s.Has("2025-01-01") || s.Has("2025-01-03") {
		t.Error("membership checks failed")
	}
	if got := s.Dates(); !reflect.DeepEqual(got, []string{"2025-01-01", "2025-01-02"}) {
		t.Errorf("Dates = %v", got)
	}

	u := s.Union(NewDateSet("2025-01-03"))
	if len(u) != 3 || len(s) != 2 {
		t.Errorf("Union should not mutate receiver: union=%d recv=%d", len(u), len(s))
	}
}
