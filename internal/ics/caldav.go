package ics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"raidcall/internal/models"
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.Username != "" {
		req.SetBasicAuth(t.Username, t.Password)
	}
	req.Header.Set("User-Agent", "raidcall/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVFetcher reads events from a calendar collection on a CalDAV server.
type CalDAVFetcher struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
	endpoint     string
	calendarName string
	calendarPath string
}

// NewCalDAVFetcher creates a fetcher for the calendar named calendarName. The calendar is
// looked up on the first Fetch, so an unreachable server only fails its own source.
func NewCalDAVFetcher(logger *slog.Logger, endpoint, username, password, calendarName string) (*CalDAVFetcher, error) {
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport, Timeout: 30 * time.Second}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	return &CalDAVFetcher{
		caldavClient: caldavClient,
		logger:       logger,
		endpoint:     endpoint,
		calendarName: calendarName,
	}, nil
}

// Fetch runs a calendar-query limited to VEVENTs overlapping the window.
func (c *CalDAVFetcher) Fetch(ctx context.Context, w models.Window) ([]Record, error) {
	if c.calendarPath == "" {
		c.logger.Info("Finding CalDAV calendar", "calendarName", c.calendarName)
		calendarPath, err := c.findCalendar(ctx, c.calendarName)
		if err != nil {
			return nil, &models.UpstreamRequestError{Source: RedactURL(c.endpoint), Err: err}
		}
		c.calendarPath = calendarPath
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{
				Name:     ical.CompEvent,
				AllProps: true,
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: w.Start.UTC(),
				End:   w.End.UTC(),
			}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, &models.UpstreamRequestError{Source: RedactURL(c.endpoint), Err: fmt.Errorf("calendar query: %w", err)}
	}

	var records []Record
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		recs, err := FromCalendar(obj.Data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", obj.Path, err)
		}
		records = append(records, recs...)
	}

	c.logger.Info("Fetched CalDAV calendar", "calendarName", c.calendarName, "count", len(records))
	return records, nil
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (c *CalDAVFetcher) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name || strings.TrimSuffix(cal.Path, "/") == strings.TrimSuffix(name, "/") {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
