package teamup

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // record timezones are IANA names

	md "github.com/JohannesKaufmann/html-to-markdown"

	"raidcall/internal/models"
)

// CalendarMap maps Teamup sub-calendar ids to event statuses.
type CalendarMap map[int64]models.Status

// Add maps a sub-calendar id to a status. Zero ids are ignored so unset
// configuration keys do not claim a calendar.
func (m CalendarMap) Add(id int64, status models.Status) {
	if id == 0 {
		return
	}
	m[id] = status
}

// Status returns the status of a sub-calendar, defaulting to StatusEvent.
func (m CalendarMap) Status(id int64) models.Status {
	if st, ok := m[id]; ok {
		return st
	}
	return models.StatusEvent
}

var converter = md.NewConverter("", true, nil)

var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Parse converts one event record from the Teamup API into an event.
func Parse(rec map[string]any, calendars CalendarMap, calendarKey string) (*models.Event, error) {
	id, err := required(rec, "id")
	if err != nil {
		return nil, err
	}
	title, err := required(rec, "title")
	if err != nil {
		return nil, err
	}
	startDT, err := required(rec, "start_dt")
	if err != nil {
		return nil, err
	}
	endDT, err := required(rec, "end_dt")
	if err != nil {
		return nil, err
	}
	notes, err := optional(rec, "notes", "")
	if err != nil {
		return nil, err
	}
	tz, err := optional(rec, "tz", "UTC")
	if err != nil {
		return nil, err
	}
	who, err := optional(rec, "who", "")
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, models.Malformed("event %s has unknown timezone %q", id, tz)
	}
	start, err := parseTime(startDT, loc)
	if err != nil {
		return nil, models.Malformed("event %s has invalid start_dt %q", id, startDT)
	}
	end, err := parseTime(endDT, loc)
	if err != nil {
		return nil, models.Malformed("event %s has invalid end_dt %q", id, endDT)
	}

	description := ""
	if strings.TrimSpace(notes) != "" {
		description, err = converter.ConvertString(notes)
		if err != nil {
			return nil, models.Malformed("event %s notes: %v", id, err)
		}
	}

	status := models.StatusEvent
	if sub, ok := firstSubcalendar(rec); ok {
		status = calendars.Status(sub)
	}

	signup, _ := rec["signup_enabled"].(bool)

	return models.NewEvent(models.Event{
		MessageID:     "teamup_" + id,
		Summary:       strings.TrimSpace(title),
		Description:   strings.TrimSpace(description),
		Status:        status,
		Start:         start,
		End:           end,
		SignupEnabled: signup,
		URL:           fmt.Sprintf("https://teamup.com/%s/events/%s", calendarKey, id),
		UID:           who,
		DateStart:     start.Format("20060102T150405"),
	})
}

func required(rec map[string]any, key string) (string, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return "", models.Malformed("missing the required event value %q", key)
	}
	return toString(key, v)
}

func optional(rec map[string]any, key, def string) (string, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return def, nil
	}
	return toString(key, v)
}

func toString(key string, v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	}
	return "", models.Malformed("event value %q has unexpected type %T", key, v)
}

// parseTime reads a Teamup timestamp. Explicit offsets win over the record timezone.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unknown time format %q", s)
}

func firstSubcalendar(rec map[string]any) (int64, bool) {
	ids, ok := rec["subcalendar_ids"].([]any)
	if !ok || len(ids) == 0 {
		return 0, false
	}
	switch id := ids[0].(type) {
	case json.Number:
		n, err := id.Int64()
		return n, err == nil
	case float64:
		return int64(id), true
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		return n, err == nil
	}
	return 0, false
}
