package doodle

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"raidcall/internal/ics"
	"raidcall/internal/models"
)

const description = "Aloitteesta Matti Meikäläinen\n" +
	"Come raid with us\n" +
	"Osallistujat:\n" +
	"B - Alice\n" +
	"A - Zed\n" +
	"- Bob\n" +
	"\n" +
	"https://doodle.com/poll/abc123"

func record(summary string) ics.Record {
	start := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	return ics.Record{
		UID:         "poll-1@doodle.com",
		Summary:     summary,
		Description: description,
		DateStart:   "20260314T180000Z",
		Start:       start,
		End:         start.Add(3 * time.Hour),
	}
}

func TestParseScheduled(t *testing.T) {
	ev, err := Parse(record("Raid Night [Doodle]"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ev.Status != models.StatusRaidProgress {
		t.Errorf("status = %q, want raid_progress", ev.Status)
	}
	if ev.Summary != "Raid Night" {
		t.Errorf("summary = %q", ev.Summary)
	}
	if ev.Description != "Come raid with us" {
		t.Errorf("description = %q", ev.Description)
	}
	if ev.URL != "https://doodle.com/poll/abc123" {
		t.Errorf("url = %q", ev.URL)
	}
	if !reflect.DeepEqual(ev.Attendees, []string{"Alice", "Bob", "Zed"}) {
		t.Errorf("attendees = %v", ev.Attendees)
	}
	if ev.MessageID != "doodle_poll-1@doodle.com_20260314T180000Z" {
		t.Errorf("message id = %q", ev.MessageID)
	}
	if !ev.SignupEnabled {
		t.Error("signup should always be enabled")
	}
	if ev.Duration != ev.End.Sub(ev.Start) || ev.Duration != 3*time.Hour {
		t.Errorf("duration = %v", ev.Duration)
	}
}

func TestParseVoting(t *testing.T) {
	ev, err := Parse(record("Raid Night [Doodle-kesken]"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ev.Status != models.StatusInVoting {
		t.Errorf("status = %q, want in_voting", ev.Status)
	}
}

func TestParseMalformed(t *testing.T) {
	unknownTag := record("Raid Night [Maybe]")
	noTag := record("Raid Night")
	freeAccount := record("Raid Night [Doodle]")
	freeAccount.Description = "Raid Night\nhttps://doodle.com/poll/abc123"

	for name, rec := range map[string]ics.Record{
		"unknown tag":  unknownTag,
		"no tag":       noTag,
		"free account": freeAccount,
	} {
		if _, err := Parse(rec); !errors.Is(err, models.ErrMalformedRecord) {
			t.Errorf("%s: err = %v, want ErrMalformedRecord", name, err)
		}
	}
}

func TestParticipants(t *testing.T) {
	got := Participants("B - Alice\nA - Zed\n- Bob")
	if !reflect.DeepEqual(got, []string{"Alice", "Bob", "Zed"}) {
		t.Errorf("Participants = %v", got)
	}
	if got := Participants("\n \n"); len(got) != 0 {
		t.Errorf("Participants of blank block = %v", got)
	}
}
