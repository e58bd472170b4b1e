package ical

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
)

const sampleCalendar = "BEGIN:VCALENDAR\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTART:20250110\r\n" +
	"DTEND:20250112\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestFetchBlockedDatesFallsThroughRelays(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// 200 OK but no calendar signature: must count as a failure.
		_, _ = w.Write([]byte("<html>error page</html>"))
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleCalendar))
	}))
	defer good.Close()

	f := NewFetcher([]Relay{
		{Name: "bad", Prefix: bad.URL + "/?url=", Encode: true},
		{Name: "good", Prefix: good.URL + "/?url=", Encode: true},
	})

	got := f.FetchBlockedDates(context.Background(), "https://calendar.example/feed.ics").Dates()
	want := []string{"2025-01-10", "2025-01-11"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FetchBlockedDates = %v, want %v", got, want)
	}
}

func TestFetchBlockedDatesSkipsNon2xxRelay(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer broken.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleCalendar))
	}))
	defer good.Close()

	f := NewFetcher([]Relay{
		{Name: "broken", Prefix: broken.URL + "/", Encode: false},
		{Name: "good", Prefix: good.URL + "/?url=", Encode: true},
	})

	if got := f.FetchBlockedDates(context.Background(), "https://calendar.example/feed.ics"); len(got) != 2 {
		t.Errorf("FetchBlockedDates returned %v, want 2 dates", got.Dates())
	}
}

func TestFetchBlockedDatesAllRelaysFail(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer down.Close()

	f := NewFetcher([]Relay{
		{Name: "down", Prefix: down.URL + "/", Encode: false},
	})

	// Exhausting the relay chain degrades to an empty set, never an error.
	if got := f.FetchBlockedDates(context.Background(), "https://calendar.example/feed.ics"); len(got) != 0 {
		t.Errorf("FetchBlockedDates = %v, want empty set", got.Dates())
	}
}

func TestFetchAddsCacheBuster(t *testing.T) {
	var upstream string
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstream = r.URL.Query().Get("url")
		_, _ = w.Write([]byte(sampleCalendar))
	}))
	defer relay.Close()

	f := NewFetcher([]Relay{{Name: "relay", Prefix: relay.URL + "/?url=", Encode: true}})
	f.FetchBlockedDates(context.Background(), "https://calendar.example/feed.ics?s=secret")

	u, err := url.Parse(upstream)
	if err != nil {
		t.Fatalf("relay received unparseable upstream url %q: %v", upstream, err)
	}
	if u.Query().Get("cb") == "" {
		t.Errorf("upstream url %q missing cache-busting cb parameter", upstream)
	}
	if u.Query().Get("s") != "secret" {
		t.Errorf("upstream url %q lost original query parameters", upstream)
	}
}

func TestFetchEmptyFeedURL(t *testing.T) {
	f := NewFetcher(nil)
	if got := f.FetchBlockedDates(context.Background(), ""); len(got) != 0 {
		t.Errorf("FetchBlockedDates(\"\") = %v, want empty set", got.Dates())
	}
}

func TestWithCacheBusterSeparator(t *testing.T) {
	if got := withCacheBuster("https://a.example/f.ics", 7); got != "https://a.example/f.ics?cb=7" {
		t.Errorf("withCacheBuster = %q", got)
	}
	if got := withCacheBuster("https://a.example/f.ics?s=1", 7); got != "https://a.example/f.ics?s=1&cb=7" {
		t.Errorf("withCacheBuster = %q", got)
	}
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("https://host.example/cal/123.ics?s=secret"); got != "https://host.example/...(redacted)" {
		t.Errorf("redactURL = %q", got)
	}
	if got := redactURL("garbage"); got != "...(redacted)" {
		t.Errorf("redactURL = %q", got)
	}
}
