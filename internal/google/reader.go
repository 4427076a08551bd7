package google

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sort"

	"google.golang.org/api/calendar/v3"

	"raidcall/internal/models"
)

// Reader is an event source over one or more Google calendars.
type Reader struct {
	client    *CalendarClient
	calendars map[string]models.Status
	logger    *slog.Logger
}

// NewReader creates a Reader. calendars maps each calendar id to the status of its events.
func NewReader(logger *slog.Logger, client *CalendarClient, calendars map[string]models.Status) *Reader {
	return &Reader{client: client, calendars: calendars, logger: logger}
}

func (r *Reader) Name() string { return "google" }

// Events fetches every calendar and yields their events together in start order.
func (r *Reader) Events(ctx context.Context, w models.Window) iter.Seq2[*models.Event, error] {
	return func(yield func(*models.Event, error) bool) {
		ids := make([]string, 0, len(r.calendars))
		for id := range r.calendars {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		type item struct {
			event  *calendar.Event
			status models.Status
		}
		var items []item
		for _, id := range ids {
			events, err := r.client.GetEvents(ctx, id, w)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, ev := range events {
				items = append(items, item{event: ev, status: r.calendars[id]})
			}
		}

		parsed := make([]*models.Event, 0, len(items))
		for _, it := range items {
			ev, err := Parse(it.event, it.status)
			if err != nil {
				yield(nil, fmt.Errorf("google: %w", err))
				return
			}
			parsed = append(parsed, ev)
		}
		sort.SliceStable(parsed, func(i, j int) bool {
			return parsed[i].Start.Before(parsed[j].Start)
		})

		for _, ev := range parsed {
			if !yield(ev, nil) {
				return
			}
		}
	}
}
