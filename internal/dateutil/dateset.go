package dateutil

import "sort"

// DateSet is a set of calendar days keyed by their canonical YYYY-MM-DD
// representation. Membership is plain string equality, which keeps lookups
// stable across timezones.
type DateSet map[string]struct{}

func NewDateSet(dates ...string) DateSet {
	s := make(DateSet, len(dates))
	for _, d := range dates {
		s.Add(d)
	}
	return s
}

func (s DateSet) Add(date string) {
	s[date] = struct{}{}
}

func (s DateSet) Has(date string) bool {
	_, ok := s[date]
	return ok
}

// Union returns a new set containing the dates of both sets.
func (s DateSet) Union(other DateSet) DateSet {
	out := make(DateSet, len(s)+len(other))
	for d := range s {
		out[d] = struct{}{}
	}
	for d := range other {
		out[d] = struct{}{}
	}
	return out
}

// Dates returns the members in ascending order. ISO dates sort
// lexicographically, so plain string sort is chronological.
func (s DateSet) Dates() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
