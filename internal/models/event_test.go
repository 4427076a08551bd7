package models

import (
	"errors"
	"testing"
	"time"
)

func validEvent() Event {
	start := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	return Event{
		MessageID: "teamup_1",
		Summary:   "Raid Night",
		Status:    StatusRaidProgress,
		Start:     start,
		End:       start.Add(2 * time.Hour),
		URL:       "https://example.com/events/1",
	}
}

func TestNewEventComputesDuration(t *testing.T) {
	helsinki := time.FixedZone("EET", 2*60*60)
	e := validEvent()
	e.Start = time.Date(2026, 3, 14, 20, 0, 0, 0, helsinki)
	e.End = time.Date(2026, 3, 14, 21, 30, 0, 0, helsinki)

	ev, err := NewEvent(e)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if ev.Duration != 90*time.Minute {
		t.Errorf("duration = %v, want 1h30m", ev.Duration)
	}
	if ev.Start.Location() != time.UTC || ev.Start.Hour() != 18 {
		t.Errorf("start = %v, want 18:00 UTC", ev.Start)
	}
	if ev.Attendees == nil {
		t.Error("attendees should be an empty slice, not nil")
	}
}

func TestNewEventRequiredFields(t *testing.T) {
	cases := map[string]func(*Event){
		"message id": func(e *Event) { e.MessageID = "" },
		"summary":    func(e *Event) { e.Summary = "" },
		"status":     func(e *Event) { e.Status = "" },
		"start":      func(e *Event) { e.Start = time.Time{} },
		"end":        func(e *Event) { e.End = time.Time{} },
		"order":      func(e *Event) { e.End = e.Start.Add(-time.Minute) },
		"url":        func(e *Event) { e.URL = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			e := validEvent()
			mutate(&e)
			if _, err := NewEvent(e); !errors.Is(err, ErrMalformedRecord) {
				t.Errorf("err = %v, want ErrMalformedRecord", err)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	first, _ := NewEvent(validEvent())
	next := validEvent()
	next.Start = first.End
	next.End = first.End.Add(time.Hour)
	second, _ := NewEvent(next)

	first.Merge(second)
	if !first.End.Equal(second.End) {
		t.Errorf("end = %v, want %v", first.End, second.End)
	}
	if first.Duration != 3*time.Hour {
		t.Errorf("duration = %v, want 3h", first.Duration)
	}
	if err := first.Validate(); err != nil {
		t.Errorf("merged event invalid: %v", err)
	}
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]Status{
		"Raid progress": StatusRaidProgress,
		"raid-clear":    StatusRaidClear,
		"EVENT":         StatusEvent,
		"in_voting":     StatusInVoting,
	} {
		got, err := ParseStatus(in)
		if err != nil || got != want {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseStatus("party"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestUpstreamRequestErrorIs(t *testing.T) {
	err := error(&UpstreamRequestError{Source: "teamup", Status: 500, Message: "boom"})
	if !errors.Is(err, ErrUpstreamRequest) {
		t.Error("errors.Is should match ErrUpstreamRequest")
	}
	if got := err.Error(); got != "teamup: upstream request failed (status 500): boom" {
		t.Errorf("Error() = %q", got)
	}
}
