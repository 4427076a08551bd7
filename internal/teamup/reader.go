package teamup

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"raidcall/internal/models"
)

// Reader is an event source backed by the Teamup API.
type Reader struct {
	client    *Client
	calendars CalendarMap
	logger    *slog.Logger
}

func NewReader(logger *slog.Logger, client *Client, calendars CalendarMap) *Reader {
	return &Reader{client: client, calendars: calendars, logger: logger}
}

func (r *Reader) Name() string { return "teamup" }

// Events requests the events of w and yields them in API order. The API returns
// events sorted by start time.
func (r *Reader) Events(ctx context.Context, w models.Window) iter.Seq2[*models.Event, error] {
	return func(yield func(*models.Event, error) bool) {
		records, err := r.client.GetEvents(ctx, w.Start, w.End)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, rec := range records {
			ev, err := Parse(rec, r.calendars, r.client.CalendarKey())
			if err != nil {
				yield(nil, fmt.Errorf("teamup: %w", err))
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}
