package ics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"raidcall/internal/models"
)

// Fetcher retrieves the raw records of a calendar for a window.
type Fetcher interface {
	Fetch(ctx context.Context, w models.Window) ([]Record, error)
}

// HTTPFetcher downloads a published ICS feed.
type HTTPFetcher struct {
	client *http.Client
	url    string
	logger *slog.Logger
}

// NewHTTPFetcher creates a fetcher for the feed at feedURL.
func NewHTTPFetcher(logger *slog.Logger, feedURL string) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: 15 * time.Second},
		url:    feedURL,
		logger: logger,
	}
}

// Fetch downloads and decodes the whole feed. Window filtering is left to the Reader
// because published feeds cannot be queried by range.
func (f *HTTPFetcher) Fetch(ctx context.Context, _ models.Window) ([]Record, error) {
	source := RedactURL(f.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("User-Agent", "raidcall/1.0")

	f.logger.Debug("Fetching calendar feed", "url", source)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &models.UpstreamRequestError{Source: source, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.UpstreamRequestError{Source: source, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.UpstreamRequestError{Source: source, Status: resp.StatusCode, Message: string(body)}
	}

	records, err := Decode(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	f.logger.Info("Fetched calendar feed", "url", source, "count", len(records))
	return records, nil
}

// RedactURL hides the path and query of a feed URL for logging; private feed links carry
// their secret there.
func RedactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "ics://...(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host + "/...(redacted)"
}
