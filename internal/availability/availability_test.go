package availability

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"primavera/internal/dateutil"
)

// fakeFetcher returns a canned set per feed URL; unknown feeds come back
// empty, mirroring the real fetcher's degrade-to-empty policy.
type fakeFetcher struct {
	mu    sync.Mutex
	byURL map[string][]string
	calls int
}

func (f *fakeFetcher) FetchBlockedDates(_ context.Context, feedURL string) dateutil.DateSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return dateutil.NewDateSet(f.byURL[feedURL]...)
}

func TestAggregateBlocked(t *testing.T) {
	tests := []struct {
		name string
		sets []dateutil.DateSet
		want []string
	}{
		{
			name: "empty room list",
			sets: nil,
			want: []string{},
		},
		{
			name: "one room free keeps the date bookable",
			sets: []dateutil.DateSet{
				dateutil.NewDateSet("2025-02-01"),
				dateutil.NewDateSet(),
			},
			want: []string{},
		},
		{
			name: "all rooms blocked",
			sets: []dateutil.DateSet{
				dateutil.NewDateSet("2025-02-01"),
				dateutil.NewDateSet("2025-02-01"),
			},
			want: []string{"2025-02-01"},
		},
		{
			name: "only the common date aggregates",
			sets: []dateutil.DateSet{
				dateutil.NewDateSet("2025-02-01", "2025-02-02"),
				dateutil.NewDateSet("2025-02-01", "2025-02-03"),
			},
			want: []string{"2025-02-01"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateBlocked(tt.sets).Dates(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AggregateBlocked = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRefreshAllMergesManualAndFeedDates(t *testing.T) {
	fetcher := &fakeFetcher{byURL: map[string][]string{
		"https://cal.example/1.ics": {"2025-02-01", "2025-02-02"},
	}}
	svc := NewService([]Room{
		{ID: "1", Name: "Boho Suite 1", FeedURL: "https://cal.example/1.ics", Manual: dateutil.NewDateSet("2025-03-15")},
		{ID: "2", Name: "Boho Suite 2", Manual: dateutil.NewDateSet("2025-03-15")},
	}, fetcher)

	counts := svc.RefreshAll(context.Background())

	if counts["1"] != 3 || counts["2"] != 1 {
		t.Errorf("counts = %v, want 1:3 2:1", counts)
	}
	got := svc.BlockedDates("1").Dates()
	want := []string{"2025-02-01", "2025-02-02", "2025-03-15"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BlockedDates(1) = %v, want %v", got, want)
	}
	// Room 2 has no feed, so no fetch happened for it.
	if fetcher.calls != 1 {
		t.Errorf("fetcher called %d times, want 1", fetcher.calls)
	}
}

func TestRefreshReplacesWholesale(t *testing.T) {
	fetcher := &fakeFetcher{byURL: map[string][]string{
		"https://cal.example/1.ics": {"2025-02-01"},
	}}
	svc := NewService([]Room{
		{ID: "1", FeedURL: "https://cal.example/1.ics"},
	}, fetcher)

	svc.RefreshAll(context.Background())

	// The feed drops its reservation; the old date must not linger.
	fetcher.byURL["https://cal.example/1.ics"] = nil
	svc.RefreshAll(context.Background())

	if got := svc.BlockedDates("1"); len(got) != 0 {
		t.Errorf("BlockedDates(1) = %v, want empty after wholesale replace", got.Dates())
	}
}

func TestAggregateThroughService(t *testing.T) {
	fetcher := &fakeFetcher{byURL: map[string][]string{
		"https://cal.example/1.ics": {"2025-02-01"},
		"https://cal.example/2.ics": {"2025-02-01", "2025-02-05"},
	}}
	svc := NewService([]Room{
		{ID: "1", FeedURL: "https://cal.example/1.ics"},
		{ID: "2", FeedURL: "https://cal.example/2.ics"},
	}, fetcher)

	if got := svc.Aggregate(); len(got) != 0 {
		t.Errorf("Aggregate before refresh = %v, want empty", got.Dates())
	}

	svc.RefreshAll(context.Background())

	got := svc.Aggregate().Dates()
	want := []string{"2025-02-01"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Aggregate = %v, want %v", got, want)
	}
}

func TestRefreshRoom(t *testing.T) {
	fetcher := &fakeFetcher{byURL: map[string][]string{
		"https://cal.example/1.ics": {"2025-02-01"},
	}}
	svc := NewService([]Room{
		{ID: "1", FeedURL: "https://cal.example/1.ics"},
	}, fetcher)

	count, err := svc.RefreshRoom(context.Background(), "1")
	if err != nil {
		t.Fatalf("RefreshRoom: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	if _, err := svc.RefreshRoom(context.Background(), "99"); err == nil {
		t.Error("RefreshRoom(99) expected error for unknown room")
	}
}

func TestBlockedDatesUnknownRoom(t *testing.T) {
	svc := NewService(nil, &fakeFetcher{})
	if got := svc.BlockedDates("nope"); len(got) != 0 {
		t.Errorf("BlockedDates = %v, want empty set", got.Dates())
	}
}
