package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RoomConfig describes a single bookable suite.
type RoomConfig struct {
	// ID is the stable room identifier used for pricing and availability
	// lookups ("1".."10" for the current property).
	ID string `yaml:"id" json:"id"`
	// Name is the human-friendly label ("Boho Suite 3").
	Name string `yaml:"name" json:"name"`
	// CalendarURL is the external iCal feed for this room. Empty means the
	// room has no external sync; only BlockedDates apply.
	CalendarURL string `yaml:"calendar_url,omitempty" json:"calendar_url,omitempty"`
	// BlockedDates are manually curated blocked days (YYYY-MM-DD). They are
	// unioned with feed-derived dates on every refresh.
	BlockedDates []string `yaml:"blocked_dates,omitempty" json:"blocked_dates,omitempty"`
}

// RelayConfig describes one fetch relay the calendar fetcher may try.
// The upstream feed URL is appended to Prefix, URL-encoded when Encode
// is set.
type RelayConfig struct {
	Name   string `yaml:"name" json:"name"`
	Prefix string `yaml:"prefix" json:"prefix"`
	Encode bool   `yaml:"encode" json:"encode"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone the property operates in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule string (e.g. "*/30 * * * *")
	// driving periodic calendar feed refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// WebhookURL receives booking inquiry submissions as JSON.
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`

	// Relays are tried in order when fetching calendar feeds.
	Relays []RelayConfig `yaml:"relays" json:"relays"`

	// Rooms is the static room inventory.
	Rooms []RoomConfig `yaml:"rooms" json:"rooms"`
}

// DefaultConfig returns an in-memory default configuration covering the ten
// suites of the property with no calendar feeds attached.
func DefaultConfig() *Config {
	rooms := make([]RoomConfig, 0, 10)
	for i := 1; i <= 10; i++ {
		rooms = append(rooms, RoomConfig{
			ID:   fmt.Sprintf("%d", i),
			Name: fmt.Sprintf("Boho Suite %d", i),
		})
	}
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "America/Bahia_Banderas",
		RefreshCron: "*/30 * * * *",
		Relays:      DefaultRelays(),
		Rooms:       rooms,
	}
}

// DefaultRelays returns the relay chain used when the config does not list
// its own. The upstream calendar host blocks direct browser access, so all
// fetches go through one of these neutral intermediaries.
func DefaultRelays() []RelayConfig {
	return []RelayConfig{
		{Name: "allorigins", Prefix: "https://api.allorigins.win/raw?url=", Encode: true},
		{Name: "corsproxy", Prefix: "https://corsproxy.io/?", Encode: true},
		{Name: "thingproxy", Prefix: "https://thingproxy.freeboard.io/fetch/", Encode: false},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "America/Bahia_Banderas"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/30 * * * *"
	}
	if len(c.Relays) == 0 {
		c.Relays = DefaultRelays()
	}
	if c.Rooms == nil {
		c.Rooms = []RoomConfig{}
	}
	for i := range c.Rooms {
		if c.Rooms[i].ID == "" {
			c.Rooms[i].ID = fmt.Sprintf("%d", i+1)
		}
		if c.Rooms[i].Name == "" {
			c.Rooms[i].Name = "Boho Suite " + c.Rooms[i].ID
		}
	}
}

// Room returns the room with the given id, or false if not configured.
func (c *Config) Room(id string) (RoomConfig, bool) {
	for _, r := range c.Rooms {
		if r.ID == id {
			return r, true
		}
	}
	return RoomConfig{}, false
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists, it is unmarshaled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".primavera-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
