// Package availability maintains per-room blocked-date sets and the
// site-wide aggregate view derived from them.
package availability

import (
	"context"
	"fmt"
	"sync"

	"primavera/internal/dateutil"
	appLog "primavera/internal/log"
)

// feedFetcher retrieves the blocked-date set reported by an external
// calendar feed. A failed fetch degrades to an empty set.
type feedFetcher interface {
	FetchBlockedDates(ctx context.Context, feedURL string) dateutil.DateSet
}

// Room is the static description of one bookable suite.
type Room struct {
	ID      string
	Name    string
	FeedURL string
	// Manual holds manually curated blocked days. They survive every
	// refresh; feed-derived dates are unioned on top.
	Manual dateutil.DateSet
}

// Service owns the current blocked-date set of every room. Refreshes replace
// a room's set wholesale; sets are never mutated in place after publication,
// so readers may hold a returned set without copying.
type Service struct {
	rooms   []Room
	fetcher feedFetcher

	mu      sync.RWMutex
	blocked map[string]dateutil.DateSet
}

// NewService seeds each room's set from its manual blocked dates. Feed data
// arrives with the first RefreshAll.
func NewService(rooms []Room, fetcher feedFetcher) *Service {
	blocked := make(map[string]dateutil.DateSet, len(rooms))
	for _, r := range rooms {
		manual := r.Manual
		if manual == nil {
			manual = dateutil.NewDateSet()
		}
		blocked[r.ID] = manual
	}
	return &Service{
		rooms:   rooms,
		fetcher: fetcher,
		blocked: blocked,
	}
}

// Rooms returns the static room inventory.
func (s *Service) Rooms() []Room {
	return s.rooms
}

// BlockedDates returns the current blocked set for a room. Unknown room ids
// yield an empty set.
func (s *Service) BlockedDates(roomID string) dateutil.DateSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if set, ok := s.blocked[roomID]; ok {
		return set
	}
	return dateutil.NewDateSet()
}

// Aggregate returns the dates on which every room is blocked at once. It is
// intentionally conservative: a date still bookable in any single room never
// appears here. An empty room inventory aggregates to the empty set.
func (s *Service) Aggregate() dateutil.DateSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sets := make([]dateutil.DateSet, 0, len(s.rooms))
	for _, r := range s.rooms {
		sets = append(sets, s.blocked[r.ID])
	}
	return AggregateBlocked(sets)
}

// AggregateBlocked returns the dates present in every one of the given sets.
// A date counts as fully booked only when all rooms block it.
func AggregateBlocked(sets []dateutil.DateSet) dateutil.DateSet {
	out := dateutil.NewDateSet()
	if len(sets) == 0 {
		return out
	}

	counts := make(map[string]int)
	for _, set := range sets {
		for date := range set {
			counts[date]++
		}
	}
	for date, n := range counts {
		if n == len(sets) {
			out.Add(date)
		}
	}
	return out
}

// RefreshAll fetches every room's feed concurrently and, once all fetches
// have completed, replaces the rooms' sets in a single critical section so
// readers never observe a half-updated view. Rooms without a feed keep their
// manual dates. The returned map carries the post-refresh blocked count per
// room.
func (s *Service) RefreshAll(ctx context.Context) map[string]int {
	fetched := make([]dateutil.DateSet, len(s.rooms))

	var wg sync.WaitGroup
	for i, room := range s.rooms {
		if room.FeedURL == "" {
			continue
		}
		wg.Add(1)
		go func(i int, room Room) {
			defer wg.Done()
			fetched[i] = s.fetcher.FetchBlockedDates(ctx, room.FeedURL)
		}(i, room)
	}
	wg.Wait()

	counts := make(map[string]int, len(s.rooms))

	s.mu.Lock()
	for i, room := range s.rooms {
		set := room.Manual
		if set == nil {
			set = dateutil.NewDateSet()
		}
		if fetched[i] != nil {
			set = set.Union(fetched[i])
		}
		s.blocked[room.ID] = set
		counts[room.ID] = len(set)
	}
	s.mu.Unlock()

	appLog.Info("availability refresh completed", "rooms", len(s.rooms))
	return counts
}

// RefreshRoom refreshes a single room's feed and returns its new blocked
// count.
func (s *Service) RefreshRoom(ctx context.Context, roomID string) (int, error) {
	var room *Room
	for i := range s.rooms {
		if s.rooms[i].ID == roomID {
			room = &s.rooms[i]
			break
		}
	}
	if room == nil {
		return 0, fmt.Errorf("unknown room %q", roomID)
	}

	set := room.Manual
	if set == nil {
		set = dateutil.NewDateSet()
	}
	if room.FeedURL != "" {
		set = set.Union(s.fetcher.FetchBlockedDates(ctx, room.FeedURL))
	}

	s.mu.Lock()
	s.blocked[room.ID] = set
	s.mu.Unlock()

	return len(set), nil
}
