package ics

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sort"

	"raidcall/internal/models"
)

// Parser turns one raw record into an event. Each feed format has its own Parser.
type Parser func(Record) (*models.Event, error)

// Reader is an event source backed by an ICS feed.
type Reader struct {
	name    string
	fetcher Fetcher
	parse   Parser
	logger  *slog.Logger
}

// NewReader creates a Reader. The parser is fixed for the lifetime of the reader.
func NewReader(logger *slog.Logger, name string, fetcher Fetcher, parse Parser) *Reader {
	return &Reader{
		name:    name,
		fetcher: fetcher,
		parse:   parse,
		logger:  logger,
	}
}

func (r *Reader) Name() string { return r.name }

// Events fetches the feed and yields the events overlapping w in start order.
// Cancelled events are left out.
// The first record that fails to parse ends the sequence with its error.
func (r *Reader) Events(ctx context.Context, w models.Window) iter.Seq2[*models.Event, error] {
	return func(yield func(*models.Event, error) bool) {
		records, err := r.fetcher.Fetch(ctx, w)
		if err != nil {
			yield(nil, fmt.Errorf("%s: %w", r.name, err))
			return
		}

		inWindow := records[:0]
		for _, rec := range records {
			if rec.Status != "CANCELLED" && w.Contains(rec.Start, rec.End) {
				inWindow = append(inWindow, rec)
			}
		}
		sort.SliceStable(inWindow, func(i, j int) bool {
			return inWindow[i].Start.Before(inWindow[j].Start)
		})
		r.logger.Debug("Feed records in window", "source", r.name, "total", len(records), "inWindow", len(inWindow))

		for _, rec := range inWindow {
			ev, err := r.parse(rec)
			if err != nil {
				yield(nil, fmt.Errorf("%s: %w", r.name, err))
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}
