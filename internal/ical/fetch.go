package ical

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"primavera/internal/dateutil"
	appLog "primavera/internal/log"
)

// calendarSignature must appear in a relay response body for the attempt to
// count as a success; relays returning error pages or empty bodies are
// treated as failures.
const calendarSignature = "BEGIN:VCALENDAR"

const defaultAttemptTimeout = 10 * time.Second

// Relay describes one intermediary the fetcher may route a feed request
// through. The upstream URL is appended to Prefix, URL-encoded when Encode
// is set.
type Relay struct {
	Name   string
	Prefix string
	Encode bool
}

// Fetcher retrieves calendar feeds through an ordered relay chain. The
// upstream host does not serve arbitrary callers directly, so every request
// goes through a relay; relays are tried in order until one returns a body
// carrying the calendar signature.
type Fetcher struct {
	client         *http.Client
	relays         []Relay
	attemptTimeout time.Duration
	now            func() time.Time
}

// NewFetcher creates a Fetcher over the given relay chain.
func NewFetcher(relays []Relay) *Fetcher {
	return &Fetcher{
		client:         &http.Client{},
		relays:         relays,
		attemptTimeout: defaultAttemptTimeout,
		now:            time.Now,
	}
}

// FetchBlockedDates fetches and parses the feed at feedURL. Exhausting every
// relay is not an error: the result degrades to an empty set, which the
// caller must treat as "no externally-reported reservations known".
func (f *Fetcher) FetchBlockedDates(ctx context.Context, feedURL string) dateutil.DateSet {
	body, ok := f.fetchRaw(ctx, feedURL)
	if !ok {
		return dateutil.NewDateSet()
	}
	return ParseBlockedDates(body)
}

// fetchRaw walks the relay chain and returns the first body carrying the
// calendar signature.
func (f *Fetcher) fetchRaw(ctx context.Context, feedURL string) (string, bool) {
	if feedURL == "" {
		return "", false
	}

	// Cache-defeating parameter so aggressive relay caches still return
	// fresh data.
	busted := withCacheBuster(feedURL, f.now().UnixMilli())

	for _, relay := range f.relays {
		body, err := f.attempt(ctx, relay, busted)
		if err != nil {
			appLog.Warn("calendar fetch attempt failed, trying next relay",
				"relay", relay.Name, "url", redactURL(feedURL), "err", err)
			continue
		}
		if !strings.Contains(body, calendarSignature) {
			appLog.Warn("relay returned non-calendar body, trying next relay",
				"relay", relay.Name, "url", redactURL(feedURL), "body_len", len(body))
			continue
		}
		appLog.Info("calendar fetch success",
			"relay", relay.Name, "url", redactURL(feedURL), "body_len", len(body))
		return body, true
	}

	appLog.Error("all relays failed to fetch calendar", errors.New("relay chain exhausted"),
		"url", redactURL(feedURL), "relay_count", len(f.relays))
	return "", false
}

func (f *Fetcher) attempt(ctx context.Context, relay Relay, upstream string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.attemptTimeout)
	defer cancel()

	target := relay.Prefix + upstream
	if relay.Encode {
		target = relay.Prefix + url.QueryEscape(upstream)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/calendar, text/plain, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func withCacheBuster(feedURL string, millis int64) string {
	sep := "?"
	if strings.Contains(feedURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%scb=%d", feedURL, sep, millis)
}

// redactURL hides path and query of a feed URL for logging; Airbnb-style
// feed URLs embed per-room secrets in the query string.
func redactURL(u string) string {
	i := strings.Index(u, "://")
	if i < 0 {
		return "...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + "/...(redacted)"
}
