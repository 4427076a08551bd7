package main

import (
	"context"
	"fmt"
	"log/slog"

	"raidcall/internal/config"
	"raidcall/internal/doodle"
	"raidcall/internal/google"
	"raidcall/internal/ics"
	"raidcall/internal/models"
	"raidcall/internal/notifier"
	"raidcall/internal/teamup"
)

// feedParsers picks the record adapter of each feed format.
var feedParsers = map[string]func(config.FeedConfig) (ics.Parser, error){
	config.FormatICal: func(f config.FeedConfig) (ics.Parser, error) {
		def, categories, err := f.Statuses()
		if err != nil {
			return nil, err
		}
		return ics.GenericParser(ics.GenericOptions{
			FeedID:        f.ID,
			FeedURL:       f.URL,
			DefaultStatus: def,
			Categories:    categories,
		}), nil
	},
	config.FormatDoodle: func(config.FeedConfig) (ics.Parser, error) {
		return doodle.Parse, nil
	},
}

// buildSources creates the event sources in a fixed order: Teamup, Doodle, feeds, Google.
func buildSources(ctx context.Context, logger *slog.Logger, cfg *config.Config) ([]notifier.Source, error) {
	var sources []notifier.Source

	if t := cfg.Teamup; t != nil {
		calendars := teamup.CalendarMap{}
		calendars.Add(t.Calendars.Events, models.StatusEvent)
		calendars.Add(t.Calendars.Clears, models.StatusRaidClear)
		calendars.Add(t.Calendars.Progress, models.StatusRaidProgress)
		client := teamup.NewClient(logger, t.BaseURL, t.APIKey, t.CalendarKey)
		sources = append(sources, teamup.NewReader(logger, client, calendars))
	}

	if d := cfg.Doodle; d != nil {
		fetcher := ics.NewHTTPFetcher(logger, d.FeedURL)
		sources = append(sources, ics.NewReader(logger, "doodle", fetcher, doodle.Parse))
	}

	for _, f := range cfg.Feeds {
		newParser, ok := feedParsers[f.Format]
		if !ok {
			return nil, models.InvalidConfig("feed %s: unknown format %q", f.ID, f.Format)
		}
		parse, err := newParser(f)
		if err != nil {
			return nil, err
		}

		var fetcher ics.Fetcher
		if dav := f.CalDAV; dav != nil {
			fetcher, err = ics.NewCalDAVFetcher(logger, dav.Endpoint, dav.Username, dav.Password, dav.Calendar)
			if err != nil {
				return nil, fmt.Errorf("feed %s: %w", f.ID, err)
			}
		} else {
			fetcher = ics.NewHTTPFetcher(logger, f.URL)
		}
		sources = append(sources, ics.NewReader(logger, "feed_"+f.ID, fetcher, parse))
	}

	if g := cfg.Google; g != nil {
		statuses, err := g.Statuses()
		if err != nil {
			return nil, err
		}
		client, err := google.NewClient(ctx, logger, g.ClientID, g.ClientSecret, g.Account)
		if err != nil {
			return nil, fmt.Errorf("google: %w", err)
		}
		sources = append(sources, google.NewReader(logger, client, statuses))
	}

	return sources, nil
}
