// Package google reads events from Google Calendar.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"raidcall/internal/models"
)

// CalendarClient provides a client for interacting with the Google Calendar API.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
}

// NewClient creates a client authenticated with the saved token of accountName.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, accountName string) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	token, err := tokenFromFile(TokenFile(accountName))
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s, run the 'auth' command first: %w", accountName, err)
	}

	return NewClientWithOptions(ctx, logger, option.WithHTTPClient(config.Client(ctx, token)))
}

// NewClientWithOptions creates a client with explicit API options.
func NewClientWithOptions(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*CalendarClient, error) {
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &CalendarClient{service: service, logger: logger}, nil
}

// GetEvents fetches the single events of a calendar overlapping w, ordered by start.
func (c *CalendarClient) GetEvents(ctx context.Context, calendarID string, w models.Window) ([]*calendar.Event, error) {
	c.logger.Debug("Fetching upcoming events", "calendarID", calendarID)

	var items []*calendar.Event
	err := c.service.Events.List(calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(w.Start.UTC().Format(time.RFC3339)).
		TimeMax(w.End.UTC().Format(time.RFC3339)).
		OrderBy("startTime").
		Pages(ctx, func(page *calendar.Events) error {
			items = append(items, page.Items...)
			return nil
		})
	if err != nil {
		return nil, upstreamError(calendarID, err)
	}

	c.logger.Info("Fetched events from Google Calendar", "count", len(items), "calendarID", calendarID)
	return items, nil
}

// ListCalendars returns the ids and names of the calendars of the account.
func (c *CalendarClient) ListCalendars(ctx context.Context) (map[string]string, error) {
	calendars := map[string]string{}
	err := c.service.CalendarList.List().Pages(ctx, func(list *calendar.CalendarList) error {
		for _, item := range list.Items {
			calendars[item.Id] = item.Summary
		}
		return nil
	})
	if err != nil {
		return nil, upstreamError("calendarList", err)
	}
	return calendars, nil
}

func upstreamError(calendarID string, err error) error {
	upErr := &models.UpstreamRequestError{Source: "google " + calendarID, Err: err}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		upErr.Status = apiErr.Code
		upErr.Message = apiErr.Message
		if upErr.Message == "" {
			upErr.Message = http.StatusText(apiErr.Code)
		}
	}
	return upErr
}

var converter = md.NewConverter("", true, nil)

// Parse converts one Google event into an event with the status of its calendar.
func Parse(item *calendar.Event, status models.Status) (*models.Event, error) {
	if item.Start == nil || item.End == nil {
		return nil, models.Malformed("google event %s has no start or end", item.Id)
	}
	start, err := eventTime(item.Start)
	if err != nil {
		return nil, models.Malformed("google event %s start: %v", item.Id, err)
	}
	end, err := eventTime(item.End)
	if err != nil {
		return nil, models.Malformed("google event %s end: %v", item.Id, err)
	}

	if item.Status == "tentative" {
		status = models.StatusInVoting
	}

	description := ""
	if strings.TrimSpace(item.Description) != "" {
		description, err = converter.ConvertString(item.Description)
		if err != nil {
			return nil, models.Malformed("google event %s description: %v", item.Id, err)
		}
	}

	attendees := []string{}
	for _, a := range item.Attendees {
		if a.ResponseStatus == "declined" || a.Resource {
			continue
		}
		name := a.DisplayName
		if name == "" {
			name = a.Email
		}
		if name != "" {
			attendees = append(attendees, name)
		}
	}
	sort.Strings(attendees)

	id := ""
	if item.Id != "" {
		id = "google_" + item.Id
	}
	return models.NewEvent(models.Event{
		MessageID:     id,
		Summary:       strings.TrimSpace(item.Summary),
		Description:   strings.TrimSpace(description),
		Status:        status,
		Start:         start,
		End:           end,
		SignupEnabled: item.AnyoneCanAddSelf,
		Attendees:     attendees,
		URL:           item.HtmlLink,
		UID:           item.ICalUID,
		DateStart:     start.UTC().Format("20060102T150405Z"),
	})
}

// eventTime reads a timed or all-day event boundary.
func eventTime(t *calendar.EventDateTime) (time.Time, error) {
	if t.DateTime != "" {
		return time.Parse(time.RFC3339, t.DateTime)
	}
	if t.Date != "" {
		return time.Parse(time.DateOnly, t.Date)
	}
	return time.Time{}, fmt.Errorf("empty time")
}
