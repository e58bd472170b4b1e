// Package ical turns external booking calendars into blocked-date sets.
//
// The feeds this property subscribes to are reservation exports: each VEVENT
// is one stay, DTSTART the check-in day and DTEND the (exclusive) check-out
// day. The parser is deliberately lenient — a malformed event is dropped,
// never an error, because a missed block only makes a room look more
// available on an inquiry-only site.
package ical

import (
	"strconv"
	"strings"
	"time"

	"primavera/internal/dateutil"
)

// ParseBlockedDates scans raw iCalendar text and returns the set of blocked
// calendar days contributed by its VEVENTs. Empty or non-calendar input
// yields an empty set.
func ParseBlockedDates(raw string) dateutil.DateSet {
	blocked := dateutil.NewDateSet()

	inEvent := false
	var startVal, endVal string

	for _, line := range splitLines(raw) {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "BEGIN:VEVENT"):
			inEvent = true
			startVal, endVal = "", ""

		case strings.HasPrefix(line, "END:VEVENT"):
			inEvent = false
			addEventRange(blocked, startVal, endVal)

		case inEvent:
			// Property parameters may precede the value, e.g.
			// "DTSTART;VALUE=DATE:20250110"; the value is whatever follows
			// the last colon.
			if !strings.Contains(line, ":") {
				continue
			}
			if strings.HasPrefix(line, "DTSTART") {
				startVal = valueAfterLastColon(line)
			} else if strings.HasPrefix(line, "DTEND") {
				endVal = valueAfterLastColon(line)
			}
		}
	}

	return blocked
}

// addEventRange adds every day of [start, end) to the set. Events missing
// either side, or with unparseable dates, contribute nothing.
func addEventRange(blocked dateutil.DateSet, startVal, endVal string) {
	if startVal == "" || endVal == "" {
		return
	}
	start, ok := parseCalendarDate(startVal)
	if !ok {
		return
	}
	end, ok := parseCalendarDate(endVal)
	if !ok {
		return
	}
	// DTEND is exclusive: the check-out day stays bookable.
	for day := start; day.Before(end); day = dateutil.AddDays(day, 1) {
		blocked.Add(dateutil.FormatISO(day))
	}
}

// parseCalendarDate extracts the calendar day from an iCalendar date or
// date-time value. Everything but digits is stripped and the first eight
// digits are read as YYYYMMDD; time-of-day and timezone suffixes are
// discarded entirely.
func parseCalendarDate(v string) (time.Time, bool) {
	var digits []byte
	for i := 0; i < len(v) && len(digits) < 8; i++ {
		if v[i] >= '0' && v[i] <= '9' {
			digits = append(digits, v[i])
		}
	}
	if len(digits) < 8 {
		return time.Time{}, false
	}

	year, _ := strconv.Atoi(string(digits[0:4]))
	month, _ := strconv.Atoi(string(digits[4:6]))
	day, _ := strconv.Atoi(string(digits[6:8]))

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local), true
}

func valueAfterLastColon(line string) string {
	idx := strings.LastIndex(line, ":")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(line[idx+1:])
}

// splitLines splits on CRLF, LF, or bare CR line separators.
func splitLines(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
}
