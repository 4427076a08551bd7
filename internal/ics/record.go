package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"raidcall/internal/models"
)

// Attendee is a single ATTENDEE property of a VEVENT.
type Attendee struct {
	Name    string // CN parameter
	Address string // calendar address without the mailto: scheme
}

// Record is the raw, provider-independent view of one VEVENT.
// Adapters turn it into a models.Event.
type Record struct {
	UID         string
	Summary     string
	Description string
	URL         string
	Status      string // STATUS property, upper case
	Categories  []string
	Attendees   []Attendee
	DateStart   string // raw DTSTART value
	Start       time.Time
	End         time.Time
}

// Decode reads every VEVENT from an ICS stream. The stream may hold several VCALENDAR objects.
func Decode(r io.Reader) ([]Record, error) {
	dec := ical.NewDecoder(r)
	var records []Record
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode calendar: %w", err)
		}
		recs, err := FromCalendar(cal)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	return records, nil
}

// FromCalendar extracts the records of an already decoded calendar.
func FromCalendar(cal *ical.Calendar) ([]Record, error) {
	events := cal.Events()
	records := make([]Record, 0, len(events))
	for i := range events {
		rec, err := toRecord(&events[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func toRecord(ev *ical.Event) (Record, error) {
	var rec Record
	var err error

	rec.UID = propValue(ev.Props, ical.PropUID)
	if rec.Summary, err = ev.Props.Text(ical.PropSummary); err != nil {
		return rec, models.Malformed("event %q has unreadable summary: %v", rec.UID, err)
	}
	if rec.Description, err = ev.Props.Text(ical.PropDescription); err != nil {
		return rec, models.Malformed("event %q has unreadable description: %v", rec.UID, err)
	}
	rec.URL = propValue(ev.Props, ical.PropURL)
	rec.Status = strings.ToUpper(propValue(ev.Props, ical.PropStatus))
	rec.DateStart = propValue(ev.Props, ical.PropDateTimeStart)

	// Floating times are taken as UTC.
	if rec.Start, err = ev.DateTimeStart(time.UTC); err != nil {
		return rec, models.Malformed("event %q has invalid start %q: %v", rec.UID, rec.DateStart, err)
	}
	if rec.End, err = ev.DateTimeEnd(time.UTC); err != nil {
		return rec, models.Malformed("event %q has invalid end: %v", rec.UID, err)
	}

	for _, p := range ev.Props.Values(ical.PropCategories) {
		for _, c := range strings.Split(p.Value, ",") {
			if c = strings.TrimSpace(c); c != "" {
				rec.Categories = append(rec.Categories, c)
			}
		}
	}

	for _, p := range ev.Props.Values(ical.PropAttendee) {
		addr := p.Value
		if len(addr) >= len("mailto:") && strings.EqualFold(addr[:len("mailto:")], "mailto:") {
			addr = addr[len("mailto:"):]
		}
		rec.Attendees = append(rec.Attendees, Attendee{
			Name:    p.Params.Get(ical.ParamCommonName),
			Address: addr,
		})
	}

	return rec, nil
}

func propValue(props ical.Props, name string) string {
	if p := props.Get(name); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}
