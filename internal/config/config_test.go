package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"raidcall/internal/models"
)

const sample = `
language: fi
teamup:
  api_key: file-key
  calendar_key: ks123
  calendars:
    events: 1001
    clears: 3003
    progress: 2002
doodle:
  feed_url: https://doodle.com/ics/mydoodle/abc.ics
feeds:
  - id: guild
    url: https://example.com/guild.ics
    default_status: raid clear
    categories:
      Progress: raid_progress
  - id: icloud
    format: doodle
    caldav:
      endpoint: https://caldav.icloud.com
      username: me@example.com
      password: app-password
      calendar: Raids
discord:
  webhook_url: https://discord.com/api/webhooks/1/token
  personas:
    raid_progress: {name: Progress, avatar: https://example.com/p.png}
    default: {name: Bot}
`

func noEnv(string) string { return "" }

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample), noEnv)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.DaysToFetch != 4 || cfg.CacheTTL() != time.Hour || cfg.StatePath != "raidcall.db" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Teamup.Calendars.Progress != 2002 || cfg.Teamup.APIKey != "file-key" {
		t.Errorf("teamup = %+v", cfg.Teamup)
	}
	if cfg.Feeds[0].Format != FormatICal || cfg.Feeds[1].Format != FormatDoodle {
		t.Errorf("feed formats = %q, %q", cfg.Feeds[0].Format, cfg.Feeds[1].Format)
	}
	def, cats, err := cfg.Feeds[0].Statuses()
	if err != nil || def != models.StatusRaidClear || cats["Progress"] != models.StatusRaidProgress {
		t.Errorf("Statuses = %q, %v, %v", def, cats, err)
	}
	if cfg.Discord.Personas["raid_progress"].Avatar != "https://example.com/p.png" {
		t.Errorf("personas = %+v", cfg.Discord.Personas)
	}
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"TEAMUP_API_KEY":      "env-key",
		"DISCORD_WEBHOOK_URL": "https://discord.com/api/webhooks/2/env",
		"DOODLE_FEED_URL":     "https://doodle.com/env.ics",
	}
	cfg, err := Parse([]byte(sample), func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Teamup.APIKey != "env-key" || cfg.Discord.WebhookURL != env["DISCORD_WEBHOOK_URL"] || cfg.Doodle.FeedURL != env["DOODLE_FEED_URL"] {
		t.Errorf("overrides not applied: %+v", cfg)
	}

	// Teamup configured from the environment alone.
	env = map[string]string{"TEAMUP_API_KEY": "k", "TEAMUP_CALENDAR_KEY": "ks"}
	cfg, err = Parse([]byte("debug: true\n"), func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Teamup == nil || cfg.Teamup.CalendarKey != "ks" {
		t.Errorf("teamup = %+v", cfg.Teamup)
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]string{
		"no sources":         "discord: {webhook_url: https://discord.com/api/webhooks/1/t}\n",
		"missing webhook":    "doodle: {feed_url: https://doodle.com/a.ics}\n",
		"teamup without key": "debug: true\nteamup: {calendar_key: ks}\n",
		"unknown format":     "debug: true\nfeeds: [{id: a, url: https://x/a.ics, format: csv}]\n",
		"duplicate feed":     "debug: true\nfeeds: [{id: a, url: https://x/a.ics}, {id: a, url: https://x/b.ics}]\n",
		"feed without url":   "debug: true\nfeeds: [{id: a}]\n",
		"bad category":       "debug: true\nfeeds: [{id: a, url: https://x/a.ics, categories: {x: boss}}]\n",
		"bad persona":        "debug: true\ndoodle: {feed_url: https://d/a.ics}\ndiscord: {personas: {boss: {name: B}}}\n",
		"google incomplete":  "debug: true\ngoogle: {client_id: id, client_secret: s, calendars: {primary: event}}\n",
	}
	for name, doc := range tests {
		cfg, err := Parse([]byte(doc), noEnv)
		if err != nil {
			t.Fatalf("%s: Parse: %v", name, err)
		}
		if err := cfg.Validate(); !errors.Is(err, models.ErrInvalidConfiguration) {
			t.Errorf("%s: err = %v, want ErrInvalidConfiguration", name, err)
		}
	}

	// The webhook may be left out in debug mode.
	cfg, _ := Parse([]byte("doodle: {feed_url: https://d/a.ics}\n"), noEnv)
	cfg.Debug = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("debug config without webhook: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEAMUP_CALENDAR_KEY", "from-env")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Teamup.CalendarKey != "from-env" {
		t.Errorf("calendar key = %q", cfg.Teamup.CalendarKey)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}
