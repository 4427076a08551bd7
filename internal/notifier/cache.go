package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"raidcall/internal/models"
)

const batchVersion = 1

// batch is the stored form of a source's merged events.
type batch struct {
	Version int             `json:"version"`
	Events  []*models.Event `json:"events"`
}

// batchCache keeps each source's merged events for a while to save upstream calls.
// It is best effort: any failure to read is a miss and any failure to write is logged.
type batchCache struct {
	store  StateStore
	ttl    time.Duration
	logger *slog.Logger
}

func cacheKey(source string) string {
	return "events:" + source
}

func (c *batchCache) load(ctx context.Context, source string) ([]*models.Event, bool) {
	key := cacheKey(source)
	ok, err := c.store.Exists(ctx, key)
	if err != nil {
		c.logger.Warn("Could not read cached events", "source", source, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	raw, err := c.store.Fetch(ctx, key)
	if err != nil {
		c.logger.Warn("Could not read cached events", "source", source, "error", err)
		return nil, false
	}

	var b batch
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		c.logger.Warn("Discarding corrupt cached events", "source", source, "error", err)
		return nil, false
	}
	if b.Version != batchVersion {
		c.logger.Warn("Discarding cached events of another version", "source", source, "version", b.Version)
		return nil, false
	}
	for _, ev := range b.Events {
		if ev == nil {
			c.logger.Warn("Discarding corrupt cached events", "source", source, "error", "null event")
			return nil, false
		}
		if err := ev.Validate(); err != nil {
			c.logger.Warn("Discarding corrupt cached events", "source", source, "error", err)
			return nil, false
		}
	}
	return b.Events, true
}

func (c *batchCache) save(ctx context.Context, source string, events []*models.Event) {
	if events == nil {
		events = []*models.Event{}
	}
	data, err := json.Marshal(batch{Version: batchVersion, Events: events})
	if err != nil {
		c.logger.Warn("Could not encode events for the cache", "source", source, "error", err)
		return
	}
	if err := c.store.Store(ctx, cacheKey(source), string(data), c.ttl); err != nil {
		c.logger.Warn("Could not cache events", "source", source, "error", err)
	}
}

func (c *batchCache) flush(ctx context.Context, source string) {
	if err := c.store.Flush(ctx, cacheKey(source)); err != nil {
		c.logger.Warn("Could not flush cached events", "source", source, "error", err)
	}
}
