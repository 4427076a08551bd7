package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Stage is the last notification sent for an event.
type Stage string

const (
	StageUnset     Stage = ""
	StageInitial   Stage = "initial"
	StageDayBefore Stage = "day_before"
	StageTwoHours  Stage = "two_hours"
)

const (
	dayBefore = 24 * time.Hour
	twoHours  = 2 * time.Hour
)

// Advance returns the stage after stage and whether a notification is due, given the
// time left until the event starts. Unknown stages are treated as final.
func Advance(stage Stage, untilStart time.Duration) (Stage, bool) {
	switch stage {
	case StageUnset:
		return StageInitial, true
	case StageInitial:
		if untilStart < dayBefore {
			return StageDayBefore, true
		}
	case StageDayBefore:
		if untilStart < twoHours {
			return StageTwoHours, true
		}
	}
	return stage, false
}

// StateStore is the key/value store holding notification stages and cached batches.
type StateStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Fetch(ctx context.Context, key string) (string, error)
	Store(ctx context.Context, key, value string, ttl time.Duration) error
	Flush(ctx context.Context, key string) error
}

// Gate decides whether a notification is due for an event and records that it was sent.
type Gate struct {
	store  StateStore
	dryRun bool
	logger *slog.Logger

	// stages decided during a dry run, which are not written to the store
	pending map[string]Stage
}

func NewGate(logger *slog.Logger, store StateStore, dryRun bool) *Gate {
	return &Gate{
		store:   store,
		dryRun:  dryRun,
		logger:  logger,
		pending: make(map[string]Stage),
	}
}

// Check reports whether a notification for the event is due at now and advances its stage.
// Stages are stored without expiry.
func (g *Gate) Check(ctx context.Context, messageID string, start, now time.Time) (bool, error) {
	stage, err := g.stage(ctx, messageID)
	if err != nil {
		return false, err
	}

	next, send := Advance(stage, start.Sub(now))
	if !send {
		g.logger.Debug("Notification not due", "messageID", messageID, "stage", stage)
		return false, nil
	}

	if g.dryRun {
		g.pending[messageID] = next
	} else if err := g.store.Store(ctx, messageID, string(next), 0); err != nil {
		return false, fmt.Errorf("save notification stage: %w", err)
	}
	g.logger.Debug("Notification due", "messageID", messageID, "stage", next)
	return true, nil
}

func (g *Gate) stage(ctx context.Context, messageID string) (Stage, error) {
	if st, ok := g.pending[messageID]; ok {
		return st, nil
	}
	ok, err := g.store.Exists(ctx, messageID)
	if err != nil {
		return StageUnset, fmt.Errorf("read notification stage: %w", err)
	}
	if !ok {
		return StageUnset, nil
	}
	v, err := g.store.Fetch(ctx, messageID)
	if err != nil {
		return StageUnset, fmt.Errorf("read notification stage: %w", err)
	}
	return Stage(v), nil
}
