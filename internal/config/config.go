// Package config loads the YAML configuration file and applies environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"raidcall/internal/message"
	"raidcall/internal/models"
)

// Feed formats.
const (
	FormatICal   = "ical"
	FormatDoodle = "doodle"
)

const (
	defaultDaysToFetch  = 4
	defaultCacheTimeout = 3600
	defaultStatePath    = "raidcall.db"
)

// Config is the top-level application configuration.
type Config struct {
	Debug           bool   `yaml:"debug"`
	Language        string `yaml:"language"`
	DaysToFetch     int    `yaml:"days_to_fetch"`
	CacheTimeout    int    `yaml:"cache_timeout"` // seconds
	StatePath       string `yaml:"state_path"`
	Template        string `yaml:"template"` // overrides the built-in message template
	MetricsTextfile string `yaml:"metrics_textfile"`

	Teamup  *TeamupConfig `yaml:"teamup,omitempty"`
	Doodle  *DoodleConfig `yaml:"doodle,omitempty"`
	Feeds   []FeedConfig  `yaml:"feeds"`
	Google  *GoogleConfig `yaml:"google,omitempty"`
	Discord DiscordConfig `yaml:"discord"`
}

// TeamupConfig selects the Teamup calendar and maps its sub-calendars to statuses.
type TeamupConfig struct {
	APIKey      string          `yaml:"api_key"`
	CalendarKey string          `yaml:"calendar_key"`
	BaseURL     string          `yaml:"base_url"`
	Calendars   TeamupCalendars `yaml:"calendars"`
}

// TeamupCalendars holds the sub-calendar id of each status.
type TeamupCalendars struct {
	Events   int64 `yaml:"events"`
	Clears   int64 `yaml:"clears"`
	Progress int64 `yaml:"progress"`
}

// DoodleConfig is the calendar feed of a Doodle account.
type DoodleConfig struct {
	FeedURL string `yaml:"feed_url"`
}

// FeedConfig is an additional calendar feed, read over HTTP or CalDAV.
type FeedConfig struct {
	ID            string            `yaml:"id"`
	URL           string            `yaml:"url"`
	Format        string            `yaml:"format"`         // ical (default) or doodle
	DefaultStatus string            `yaml:"default_status"` // status of events without a mapped category
	Categories    map[string]string `yaml:"categories"`     // category -> status
	CalDAV        *CalDAVConfig     `yaml:"caldav,omitempty"`
}

// CalDAVConfig reads a feed from a CalDAV server instead of a plain URL.
type CalDAVConfig struct {
	Endpoint string `yaml:"endpoint"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Calendar string `yaml:"calendar"` // display name or path
}

// GoogleConfig reads Google calendars with the token saved by the auth command.
type GoogleConfig struct {
	ClientID     string            `yaml:"client_id"`
	ClientSecret string            `yaml:"client_secret"`
	Account      string            `yaml:"account"`   // token-<account>.json
	Calendars    map[string]string `yaml:"calendars"` // calendar id -> status
}

// DiscordConfig holds the webhook and the persona posting each status.
type DiscordConfig struct {
	WebhookURL string                     `yaml:"webhook_url"`
	Personas   map[string]message.Persona `yaml:"personas"`
}

// Load reads the configuration file at path and applies environment overrides.
// Callers apply their own overrides and then call Validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, os.Getenv)
}

// Parse decodes a YAML configuration. getenv supplies the environment overrides.
func Parse(data []byte, getenv func(string) string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv(getenv)
	cfg.Normalize()
	return &cfg, nil
}

// applyEnv lets secrets come from the environment instead of the file.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("TEAMUP_API_KEY"); v != "" {
		c.teamup().APIKey = v
	}
	if v := getenv("TEAMUP_CALENDAR_KEY"); v != "" {
		c.teamup().CalendarKey = v
	}
	if v := getenv("DOODLE_FEED_URL"); v != "" {
		if c.Doodle == nil {
			c.Doodle = &DoodleConfig{}
		}
		c.Doodle.FeedURL = v
	}
	if c.Google != nil {
		if v := getenv("GOOGLE_CLIENT_ID"); v != "" {
			c.Google.ClientID = v
		}
		if v := getenv("GOOGLE_CLIENT_SECRET"); v != "" {
			c.Google.ClientSecret = v
		}
	}
	if v := getenv("DISCORD_WEBHOOK_URL"); v != "" {
		c.Discord.WebhookURL = v
	}
}

func (c *Config) teamup() *TeamupConfig {
	if c.Teamup == nil {
		c.Teamup = &TeamupConfig{}
	}
	return c.Teamup
}

// Normalize fills in defaults for missing values.
func (c *Config) Normalize() {
	if c.DaysToFetch == 0 {
		c.DaysToFetch = defaultDaysToFetch
	}
	if c.CacheTimeout == 0 {
		c.CacheTimeout = defaultCacheTimeout
	}
	if c.StatePath == "" {
		c.StatePath = defaultStatePath
	}
	for i := range c.Feeds {
		if c.Feeds[i].Format == "" {
			c.Feeds[i].Format = FormatICal
		}
	}
}

// CacheTTL is the lifetime of cached event batches.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTimeout) * time.Second
}

// Validate reports the first missing or invalid value.
func (c *Config) Validate() error {
	if c.DaysToFetch < 0 {
		return models.InvalidConfig("days_to_fetch must be positive")
	}
	if c.CacheTimeout < 0 {
		return models.InvalidConfig("cache_timeout must not be negative")
	}
	if c.Teamup == nil && c.Doodle == nil && len(c.Feeds) == 0 && c.Google == nil {
		return models.InvalidConfig("no event sources configured")
	}

	if t := c.Teamup; t != nil {
		if t.APIKey == "" {
			return models.InvalidConfig("teamup.api_key is required")
		}
		if t.CalendarKey == "" {
			return models.InvalidConfig("teamup.calendar_key is required")
		}
	}
	if c.Doodle != nil && c.Doodle.FeedURL == "" {
		return models.InvalidConfig("doodle.feed_url is required")
	}

	seen := map[string]bool{}
	for i, f := range c.Feeds {
		if f.ID == "" {
			return models.InvalidConfig("feeds[%d].id is required", i)
		}
		if seen[f.ID] {
			return models.InvalidConfig("duplicate feed id %q", f.ID)
		}
		seen[f.ID] = true
		if f.Format != FormatICal && f.Format != FormatDoodle {
			return models.InvalidConfig("feed %s: unknown format %q", f.ID, f.Format)
		}
		if f.CalDAV != nil {
			if f.CalDAV.Endpoint == "" || f.CalDAV.Calendar == "" {
				return models.InvalidConfig("feed %s: caldav.endpoint and caldav.calendar are required", f.ID)
			}
		} else if f.URL == "" {
			return models.InvalidConfig("feed %s: url is required", f.ID)
		}
		if _, _, err := f.Statuses(); err != nil {
			return err
		}
	}

	if g := c.Google; g != nil {
		if g.ClientID == "" || g.ClientSecret == "" {
			return models.InvalidConfig("google.client_id and google.client_secret are required")
		}
		if g.Account == "" {
			return models.InvalidConfig("google.account is required")
		}
		if len(g.Calendars) == 0 {
			return models.InvalidConfig("google.calendars is empty")
		}
		if _, err := g.Statuses(); err != nil {
			return err
		}
	}

	if c.Discord.WebhookURL == "" && !c.Debug {
		return models.InvalidConfig("discord.webhook_url is required")
	}
	for key := range c.Discord.Personas {
		if key == message.DefaultPersona {
			continue
		}
		if _, err := models.ParseStatus(key); err != nil {
			return models.InvalidConfig("discord.personas: %v", err)
		}
	}
	return nil
}

// Statuses parses the default status and the category map of the feed.
func (f FeedConfig) Statuses() (models.Status, map[string]models.Status, error) {
	def := models.StatusEvent
	if f.DefaultStatus != "" {
		st, err := models.ParseStatus(f.DefaultStatus)
		if err != nil {
			return "", nil, models.InvalidConfig("feed %s: %v", f.ID, err)
		}
		def = st
	}
	categories := make(map[string]models.Status, len(f.Categories))
	for name, s := range f.Categories {
		st, err := models.ParseStatus(s)
		if err != nil {
			return "", nil, models.InvalidConfig("feed %s category %q: %v", f.ID, name, err)
		}
		categories[name] = st
	}
	return def, categories, nil
}

// Statuses parses the calendar id to status map.
func (g GoogleConfig) Statuses() (map[string]models.Status, error) {
	out := make(map[string]models.Status, len(g.Calendars))
	for id, s := range g.Calendars {
		st, err := models.ParseStatus(s)
		if err != nil {
			return nil, models.InvalidConfig("google calendar %q: %v", id, err)
		}
		out[id] = st
	}
	return out, nil
}
