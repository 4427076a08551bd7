package google

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"raidcall/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse(t *testing.T) {
	ev, err := Parse(&calendar.Event{
		Id:          "abc",
		ICalUID:     "abc@google.com",
		Summary:     " Raid night ",
		Description: "<p>Bring <i>flasks</i></p>",
		HtmlLink:    "https://calendar.google.com/event?eid=abc",
		Start:       &calendar.EventDateTime{DateTime: "2026-03-14T20:00:00+02:00"},
		End:         &calendar.EventDateTime{DateTime: "2026-03-14T23:00:00+02:00"},
		Attendees: []*calendar.EventAttendee{
			{Email: "zed@example.com"},
			{Email: "alice@example.com", DisplayName: "Alice"},
			{Email: "bob@example.com", ResponseStatus: "declined"},
		},
	}, models.StatusRaidProgress)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ev.MessageID != "google_abc" || ev.Summary != "Raid night" || ev.Status != models.StatusRaidProgress {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Description != "Bring _flasks_" {
		t.Errorf("description = %q", ev.Description)
	}
	if !ev.Start.Equal(time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)) || ev.Duration != 3*time.Hour {
		t.Errorf("start = %v, duration = %v", ev.Start, ev.Duration)
	}
	if strings.Join(ev.Attendees, ",") != "Alice,zed@example.com" {
		t.Errorf("attendees = %v", ev.Attendees)
	}
}

func TestParseTentativeAndAllDay(t *testing.T) {
	ev, err := Parse(&calendar.Event{
		Id:       "day",
		Summary:  "Guild meet",
		Status:   "tentative",
		HtmlLink: "https://calendar.google.com/event?eid=day",
		Start:    &calendar.EventDateTime{Date: "2026-03-15"},
		End:      &calendar.EventDateTime{Date: "2026-03-16"},
	}, models.StatusEvent)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ev.Status != models.StatusInVoting || ev.Duration != 24*time.Hour {
		t.Errorf("status = %q, duration = %v", ev.Status, ev.Duration)
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse(&calendar.Event{
		Id:    "nolink",
		Start: &calendar.EventDateTime{DateTime: "2026-03-14T20:00:00Z"},
		End:   &calendar.EventDateTime{DateTime: "2026-03-14T21:00:00Z"},
	}, models.StatusEvent)
	if !errors.Is(err, models.ErrMalformedRecord) {
		t.Errorf("err = %v, want ErrMalformedRecord", err)
	}
}

func TestReader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/calendars/raids/events"):
			_, _ = io.WriteString(w, `{"items": [{"id": "r1", "summary": "Raid", "htmlLink": "https://g/r1",
				"start": {"dateTime": "2026-03-15T18:00:00Z"}, "end": {"dateTime": "2026-03-15T21:00:00Z"}}]}`)
		case strings.Contains(r.URL.Path, "/calendars/social/events"):
			_, _ = io.WriteString(w, `{"items": [{"id": "s1", "summary": "Games", "htmlLink": "https://g/s1",
				"start": {"dateTime": "2026-03-14T18:00:00Z"}, "end": {"dateTime": "2026-03-14T20:00:00Z"}}]}`)
		default:
			http.Error(w, `{"error": {"code": 404, "message": "Not Found"}}`, http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := NewClientWithOptions(ctx, discardLogger(), option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewClientWithOptions: %v", err)
	}
	w := models.NewWindow(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC), 4)

	reader := NewReader(discardLogger(), client, map[string]models.Status{
		"raids":  models.StatusRaidProgress,
		"social": models.StatusEvent,
	})
	var got []string
	for ev, err := range reader.Events(ctx, w) {
		if err != nil {
			t.Fatalf("Events: %v", err)
		}
		got = append(got, ev.MessageID+"="+string(ev.Status))
	}
	if want := "google_s1=event,google_r1=raid_progress"; strings.Join(got, ",") != want {
		t.Errorf("events = %v, want %s", got, want)
	}

	missing := NewReader(discardLogger(), client, map[string]models.Status{"gone": models.StatusEvent})
	for _, err := range missing.Events(ctx, w) {
		var upErr *models.UpstreamRequestError
		if !errors.As(err, &upErr) || upErr.Status != http.StatusNotFound {
			t.Errorf("err = %v, want upstream 404", err)
		}
	}
}
