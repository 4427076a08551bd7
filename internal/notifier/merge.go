package notifier

import (
	"context"
	"iter"
	"time"

	"raidcall/internal/models"
)

// Source yields the events of one calendar provider. The sequence is finite,
// ordered by start time and can be ranged over once.
type Source interface {
	Name() string
	Events(ctx context.Context, w models.Window) iter.Seq2[*models.Event, error]
}

// Merge drops voting events and events starting at or before now, and joins events
// where one ends exactly when the next starts. An error ends the sequence.
func Merge(events iter.Seq2[*models.Event, error], now time.Time) iter.Seq2[*models.Event, error] {
	return func(yield func(*models.Event, error) bool) {
		var current *models.Event
		for ev, err := range events {
			if err != nil {
				yield(nil, err)
				return
			}
			if ev.Status == models.StatusInVoting || !ev.Start.After(now) {
				continue
			}
			if current != nil && current.End.Equal(ev.Start) {
				current.Merge(ev)
				continue
			}
			if current != nil && !yield(current, nil) {
				return
			}
			current = ev
		}
		if current != nil {
			yield(current, nil)
		}
	}
}
