package models

import (
	"fmt"
	"strings"
	"time"
)

// Status drives which audience an event is announced to.
type Status string

const (
	StatusInVoting     Status = "in_voting"     // Sign-up still open, never announced
	StatusRaidProgress Status = "raid_progress" // Progression raid
	StatusRaidClear    Status = "raid_clear"    // Clear/farm raid
	StatusEvent        Status = "event"         // Anything else
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusInVoting, StatusRaidProgress, StatusRaidClear, StatusEvent:
		return true
	}
	return false
}

// ParseStatus reads a status name as written in the configuration.
// "Raid progress", "raid-progress" and "raid_progress" are all accepted.
func ParseStatus(s string) (Status, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
	st := Status(name)
	if !st.Valid() {
		return "", fmt.Errorf("unknown event status %q", s)
	}
	return st, nil
}

// Event represents a single calendar occurrence, independent of the provider it came from.
// Use NewEvent to construct one; the only mutation afterwards is Merge.
type Event struct {
	MessageID     string        `json:"message_id"` // Stable key for notification state
	Summary       string        `json:"summary"`
	Description   string        `json:"description"`
	Status        Status        `json:"status"`
	Start         time.Time     `json:"start"`
	End           time.Time     `json:"end"`
	Duration      time.Duration `json:"duration"`
	SignupEnabled bool          `json:"signup_enabled"`
	Attendees     []string      `json:"attendees"`
	URL           string        `json:"url"`
	UID           string        `json:"uid"`        // Provider-native identifier
	DateStart     string        `json:"date_start"` // Provider-native start token
}

// NewEvent normalizes the times to UTC, computes the duration and validates the result.
func NewEvent(e Event) (*Event, error) {
	e.Start = e.Start.UTC()
	e.End = e.End.UTC()
	e.Duration = e.End.Sub(e.Start)
	if e.Attendees == nil {
		e.Attendees = []string{}
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// Validate checks the required fields of the event.
func (e *Event) Validate() error {
	switch {
	case e.MessageID == "":
		return Malformed("event is missing the message id")
	case e.Summary == "":
		return Malformed("event %s is missing the summary", e.MessageID)
	case !e.Status.Valid():
		return Malformed("event %s has invalid status %q", e.MessageID, e.Status)
	case e.Start.IsZero():
		return Malformed("event %s is missing the start time", e.MessageID)
	case e.End.IsZero():
		return Malformed("event %s is missing the end time", e.MessageID)
	case e.End.Before(e.Start):
		return Malformed("event %s ends before it starts", e.MessageID)
	case e.Duration != e.End.Sub(e.Start):
		return Malformed("event %s has inconsistent duration", e.MessageID)
	case e.URL == "":
		return Malformed("event %s is missing the url", e.MessageID)
	}
	return nil
}

// Merge extends e to cover next, which must start where e ends.
func (e *Event) Merge(next *Event) {
	e.End = next.End
	e.Duration = e.End.Sub(e.Start)
}

// Window is the look-ahead range fetched in a single run.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns the window of days starting at now.
func NewWindow(now time.Time, days int) Window {
	return Window{
		Start: now,
		End:   now.Add(time.Duration(days) * 24 * time.Hour),
	}
}

// Contains reports whether the event overlaps the window.
func (w Window) Contains(start, end time.Time) bool {
	return start.Before(w.End) && end.After(w.Start)
}
