// Package notifier runs the notification pipeline: it reads each source, merges
// adjacent events, decides which notifications are due and delivers them.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"raidcall/internal/message"
	"raidcall/internal/metrics"
	"raidcall/internal/models"
)

// Sink delivers rendered messages.
type Sink interface {
	Deliver(ctx context.Context, msg message.Message) error
}

// Options tune a Notifier.
type Options struct {
	Days     int           // look-ahead window in days
	CacheTTL time.Duration // lifetime of cached event batches
	Debug    bool          // bypass the event cache
	DryRun   bool          // decide without persisting stages or delivering
	Now      func() time.Time
}

// Notifier orchestrates the notification pipeline for all sources.
type Notifier struct {
	logger     *slog.Logger
	sources    []Source
	gate       *Gate
	cache      *batchCache
	classifier *message.Classifier
	renderer   *message.Renderer
	sink       Sink
	metrics    *metrics.Metrics
	opts       Options
}

// New creates a Notifier. Sources are processed in the given order.
func New(logger *slog.Logger, store StateStore, sources []Source, classifier *message.Classifier,
	renderer *message.Renderer, sink Sink, m *metrics.Metrics, opts Options) *Notifier {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Notifier{
		logger:     logger,
		sources:    sources,
		gate:       NewGate(logger, store, opts.DryRun),
		cache:      &batchCache{store: store, ttl: opts.CacheTTL, logger: logger},
		classifier: classifier,
		renderer:   renderer,
		sink:       sink,
		metrics:    m,
		opts:       opts,
	}
}

// Run processes every source once. A failing source does not stop the others; the
// errors of all failed sources are returned joined.
func (n *Notifier) Run(ctx context.Context) error {
	n.logger.Info("Starting notification run.", "sources", len(n.sources))

	var errs []error
	for _, src := range n.sources {
		sent, err := n.runSource(ctx, src)
		if err != nil {
			n.logger.Error("Source failed", "source", src.Name(), "error", err)
			n.metrics.ProviderFailed(src.Name())
			errs = append(errs, err)
			continue
		}
		n.logger.Info("Source done", "source", src.Name(), "sent", sent)
	}

	n.logger.Info("Notification run finished.")
	return errors.Join(errs...)
}

func (n *Notifier) runSource(ctx context.Context, src Source) (int, error) {
	now := n.opts.Now()
	events, err := n.batch(ctx, src, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, ev := range events {
		due, err := n.gate.Check(ctx, ev.MessageID, ev.Start, now)
		if err != nil {
			return sent, fmt.Errorf("%s: %w", src.Name(), err)
		}
		if !due {
			continue
		}

		note, err := n.classifier.Classify(ev, now)
		if err != nil {
			return sent, fmt.Errorf("%s: %w", src.Name(), err)
		}
		msg, err := n.renderer.Render(note)
		if err != nil {
			return sent, fmt.Errorf("%s: %w", src.Name(), err)
		}

		if n.opts.DryRun {
			n.logger.Info("[DRY RUN] Would send notification", "source", src.Name(),
				"messageID", ev.MessageID, "user", msg.Username)
			continue
		}
		if err := n.sink.Deliver(ctx, msg); err != nil {
			return sent, fmt.Errorf("%s: deliver %s: %w", src.Name(), ev.MessageID, err)
		}
		n.metrics.NotificationSent(src.Name(), ev.Status)
		sent++
	}
	return sent, nil
}

// Preview returns the notifications the sources would produce now, ignoring
// notification stages. Nothing is stored or delivered.
func (n *Notifier) Preview(ctx context.Context) ([]message.Notification, error) {
	now := n.opts.Now()
	var (
		notes []message.Notification
		errs  []error
	)
	for _, src := range n.sources {
		events, err := n.batch(ctx, src, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, ev := range events {
			note, err := n.classifier.Classify(ev, now)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
				break
			}
			notes = append(notes, note)
		}
	}
	return notes, errors.Join(errs...)
}

// batch returns the merged events of src, from the cache when possible.
func (n *Notifier) batch(ctx context.Context, src Source, now time.Time) ([]*models.Event, error) {
	name := src.Name()
	if n.opts.Debug {
		n.cache.flush(ctx, name)
	} else if events, ok := n.cache.load(ctx, name); ok {
		n.logger.Debug("Using cached events", "source", name, "count", len(events))
		n.metrics.CacheHit(name)
		return events, nil
	}

	window := models.NewWindow(now, n.opts.Days)
	var events []*models.Event
	for ev, err := range Merge(src.Events(ctx, window), now) {
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	n.metrics.EventsFetched(name, len(events))
	n.logger.Info("Fetched events", "source", name, "count", len(events))

	if !n.opts.DryRun {
		n.cache.save(ctx, name, events)
	}
	return events, nil
}
