package ics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"raidcall/internal/models"
)

// GenericOptions configures the adapter for plain calendar feeds.
type GenericOptions struct {
	FeedID        string
	FeedURL       string                   // used as the event link when a VEVENT has no URL
	DefaultStatus models.Status            // status when no category matches
	Categories    map[string]models.Status // CATEGORIES value -> status, case-insensitive
}

// GenericParser returns a Parser that reads the structured VEVENT fields.
func GenericParser(opts GenericOptions) Parser {
	if opts.DefaultStatus == "" {
		opts.DefaultStatus = models.StatusEvent
	}
	categories := make(map[string]models.Status, len(opts.Categories))
	for k, v := range opts.Categories {
		categories[strings.ToLower(k)] = v
	}

	return func(rec Record) (*models.Event, error) {
		uid := rec.UID
		if uid == "" {
			uid = uuid.NewString()
		}

		link := rec.URL
		if link == "" {
			link = opts.FeedURL
		}

		status := opts.DefaultStatus
		if rec.Status == "TENTATIVE" {
			status = models.StatusInVoting
		} else {
			for _, c := range rec.Categories {
				if st, ok := categories[strings.ToLower(c)]; ok {
					status = st
					break
				}
			}
		}

		attendees := make([]string, 0, len(rec.Attendees))
		for _, a := range rec.Attendees {
			name := strings.TrimSpace(a.Name)
			if name == "" {
				name = strings.TrimSpace(a.Address)
			}
			if name != "" {
				attendees = append(attendees, name)
			}
		}
		sort.Strings(attendees)

		return models.NewEvent(models.Event{
			MessageID:   fmt.Sprintf("feed_%s_%s_%s", opts.FeedID, uid, rec.DateStart),
			Summary:     strings.TrimSpace(rec.Summary),
			Description: strings.TrimSpace(rec.Description),
			Status:      status,
			Start:       rec.Start,
			End:         rec.End,
			Attendees:   attendees,
			URL:         link,
			UID:         uid,
			DateStart:   rec.DateStart,
		})
	}
}
