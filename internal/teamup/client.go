// Package teamup reads events from the Teamup calendar REST API.
package teamup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"raidcall/internal/models"
)

const (
	// DefaultBaseURL is the public Teamup API endpoint.
	DefaultBaseURL = "https://api.teamup.com"

	tokenHeader = "Teamup-Token"
	dateFormat  = "2006-01-02"
)

// tokenTransport adds the API token header to each request.
type tokenTransport struct {
	Token     string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(tokenHeader, t.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "raidcall/1.0")
	return t.Transport.RoundTrip(req)
}

// Client is a minimal Teamup API client bound to one calendar key.
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	baseURL     string
	calendarKey string
}

// NewClient creates a client for the calendar identified by calendarKey.
func NewClient(logger *slog.Logger, baseURL, apiKey, calendarKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &tokenTransport{Token: apiKey, Transport: http.DefaultTransport},
			Timeout:   30 * time.Second,
		},
		logger:      logger,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		calendarKey: calendarKey,
	}
}

// CalendarKey returns the key of the calendar the client reads.
func (c *Client) CalendarKey() string {
	return c.calendarKey
}

// GetEvents returns the raw event records between the start and end dates.
func (c *Client) GetEvents(ctx context.Context, start, end time.Time) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("startDate", start.UTC().Format(dateFormat))
	params.Set("endDate", end.UTC().Format(dateFormat))

	body, err := c.request(ctx, "events", params)
	if err != nil {
		return nil, err
	}

	var response struct {
		Events []map[string]any `json:"events"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&response); err != nil {
		return nil, c.upstreamError(http.StatusOK, fmt.Sprintf("invalid response from the API: %v", err))
	}
	if response.Events == nil {
		return nil, c.upstreamError(http.StatusOK, "invalid response from the API: events are missing from the response")
	}

	c.logger.Info("Fetched Teamup events", "count", len(response.Events),
		"startDate", params.Get("startDate"), "endDate", params.Get("endDate"))
	return response.Events, nil
}

// request performs a GET against an endpoint of the calendar and returns the raw body.
func (c *Client) request(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(c.calendarKey), endpoint)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build teamup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.UpstreamRequestError{Source: "teamup", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.UpstreamRequestError{Source: "teamup", Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.upstreamError(resp.StatusCode, errorMessage(body))
	}
	return body, nil
}

func (c *Client) upstreamError(status int, msg string) error {
	return &models.UpstreamRequestError{Source: "teamup", Status: status, Message: msg}
}

// errorMessage extracts "API error <id>: <title>" from an error body. Teamup nests the
// fields under "error"; older responses had them at the top level. Anything else is
// returned as the raw body text.
func errorMessage(body []byte) string {
	type apiError struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	var data struct {
		apiError
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &data); err == nil {
		e := data.apiError
		if data.Error != nil {
			e = *data.Error
		}
		if e.ID != "" || e.Title != "" {
			return fmt.Sprintf("API error %s: %s", e.ID, e.Title)
		}
	}
	return fmt.Sprintf("unable to request the API: %s", strings.TrimSpace(string(body)))
}
