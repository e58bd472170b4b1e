// Package pricing computes nightly rates and trip quotes for the property's
// suites. All rules (tier membership, seasonal bases, surcharges, discounts)
// live in an immutable Rules value injected at construction, so the engine
// itself is a pure function of (room, dates, now) and safe for concurrent use.
package pricing

import (
	"fmt"
	"math"
	"time"

	"primavera/internal/dateutil"
)

// Tier groups rooms sharing the same base-price schedule.
type Tier int

const (
	Tier1 Tier = iota + 1
	Tier2
	Tier3
)

// Rate is a tier's base nightly price by season.
type Rate struct {
	HighSeason float64
	LowSeason  float64
}

// SeasonBoundary marks one end of the high-season window as a
// year-independent month/day.
type SeasonBoundary struct {
	Month time.Month
	Day   int
}

// Rules is the full pricing rule set. Loaded once at startup, read-only
// thereafter.
type Rules struct {
	// TierMembers maps room id -> tier. Rooms absent from the map price at
	// DefaultTier so a nightly price is always computable.
	TierMembers map[string]Tier
	DefaultTier Tier

	Rates map[Tier]Rate

	// HighSeasonStart/End delimit the high-season window inclusively,
	// wrapping across the year boundary (e.g. Oct 27 through Apr 30).
	HighSeasonStart SeasonBoundary
	HighSeasonEnd   SeasonBoundary

	// Holidays are year-independent MM-DD strings carrying the holiday
	// surcharge.
	Holidays map[string]struct{}

	// Multiplicative modifiers, applied in order: weekend, holiday,
	// last-minute.
	WeekendSurcharge   float64
	HolidaySurcharge   float64
	LastMinuteDiscount float64

	// LastMinuteDays is the inclusive number of days ahead of "now" still
	// counting as last-minute.
	LastMinuteDays int
}

// DefaultRules returns the property's current rate card.
func DefaultRules() Rules {
	return Rules{
		TierMembers: map[string]Tier{
			"1": Tier1, "2": Tier1, "3": Tier1,
			"4": Tier2, "9": Tier2,
			"5": Tier3, "6": Tier3, "7": Tier3, "8": Tier3, "10": Tier3,
		},
		DefaultTier: Tier3,
		Rates: map[Tier]Rate{
			Tier1: {HighSeason: 56, LowSeason: 34},
			Tier2: {HighSeason: 48, LowSeason: 30},
			Tier3: {HighSeason: 52, LowSeason: 32},
		},
		HighSeasonStart: SeasonBoundary{Month: time.October, Day: 27},
		HighSeasonEnd:   SeasonBoundary{Month: time.April, Day: 30},
		Holidays: map[string]struct{}{
			"01-01": {}, // New Year's
			"02-05": {}, // Constitution Day
			"03-21": {}, // Benito Juarez
			"05-01": {}, // Labor Day
			"09-16": {}, // Independence Day
			"11-20": {}, // Revolution Day
			"12-25": {}, // Christmas
		},
		WeekendSurcharge:   0.10,
		HolidaySurcharge:   0.10,
		LastMinuteDiscount: 0.10,
		LastMinuteDays:     7,
	}
}

// Quote is the computed price breakdown for a candidate stay.
type Quote struct {
	Nights         int     `json:"nights"`
	Subtotal       float64 `json:"subtotal"`
	DiscountAmount float64 `json:"discount_amount"`
	DiscountLabel  string  `json:"discount_label"`
	Total          float64 `json:"total"`
}

// Engine evaluates the rule set. The clock is injectable for tests.
type Engine struct {
	rules Rules
	now   func() time.Time
}

// NewEngine constructs an Engine over the given rules.
func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules, now: time.Now}
}

// WithClock returns a copy of the engine evaluating "now" through the given
// function. Used by tests to pin the last-minute window.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	return &Engine{rules: e.rules, now: now}
}

// TierFor resolves a room id to its pricing tier, falling back to the
// default tier for unknown ids.
func (e *Engine) TierFor(roomID string) Tier {
	if t, ok := e.rules.TierMembers[roomID]; ok {
		return t
	}
	return e.rules.DefaultTier
}

// NightlyPrice computes the price of the single night starting on date,
// rounded up to a whole currency unit.
func (e *Engine) NightlyPrice(roomID string, date time.Time) int {
	price := e.basePrice(roomID, date)

	// Weekend surcharge: check-ins into Friday and Saturday nights.
	if wd := date.Weekday(); wd == time.Friday || wd == time.Saturday {
		price *= 1 + e.rules.WeekendSurcharge
	}

	// Holiday surcharge compounds with the weekend surcharge.
	monthDay := fmt.Sprintf("%02d-%02d", int(date.Month()), date.Day())
	if _, ok := e.rules.Holidays[monthDay]; ok {
		price *= 1 + e.rules.HolidaySurcharge
	}

	// Last-minute discount: the night starts within LastMinuteDays of now.
	// Both sides are truncated to midnight before differencing, so the
	// window does not shift with the time of day the quote runs.
	if d := dateutil.DaysBetween(e.now(), date); d >= 0 && d <= e.rules.LastMinuteDays {
		price *= 1 - e.rules.LastMinuteDiscount
	}

	return int(math.Ceil(price))
}

// TripQuote sums NightlyPrice over every night from start (inclusive) to end
// (exclusive) and applies the length-of-stay discount. A range where start
// is not strictly before end yields an all-zero quote.
func (e *Engine) TripQuote(roomID string, start, end time.Time) Quote {
	var q Quote

	night := dateutil.Midnight(start)
	last := dateutil.Midnight(end)
	for night.Before(last) {
		q.Subtotal += float64(e.NightlyPrice(roomID, night))
		night = dateutil.AddDays(night, 1)
		q.Nights++
	}

	multiplier := 1.0
	switch {
	case q.Nights >= 28:
		multiplier = 0.60
		q.DiscountLabel = "Monthly Discount (40%)"
	case q.Nights >= 7:
		multiplier = 0.90
		q.DiscountLabel = "Weekly Discount (10%)"
	}

	q.Total = q.Subtotal * multiplier
	q.DiscountAmount = q.Subtotal - q.Total

	return q
}

func (e *Engine) basePrice(roomID string, date time.Time) float64 {
	rate := e.rules.Rates[e.TierFor(roomID)]
	if e.inHighSeason(date) {
		return rate.HighSeason
	}
	return rate.LowSeason
}

// inHighSeason reports whether date falls inside the high-season window.
// Months strictly between the boundary months (in wrap order) are always
// high season; the boundary months themselves use day-of-month cutoffs.
func (e *Engine) inHighSeason(date time.Time) bool {
	start, end := e.rules.HighSeasonStart, e.rules.HighSeasonEnd
	m, d := date.Month(), date.Day()

	switch m {
	case start.Month:
		return d >= start.Day
	case end.Month:
		return d <= end.Day
	}

	if start.Month > end.Month {
		// Window wraps the year boundary (e.g. Oct -> Apr).
		return m > start.Month || m < end.Month
	}
	return m > start.Month && m < end.Month
}
