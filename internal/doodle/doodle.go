// Package doodle reads the calendar feed Doodle publishes for a poll.
//
// Doodle writes the poll state into the event summary ("Raid Night [Doodle]") and the
// description, participants and poll link into one localized text blob. Only paid
// accounts get the participant section; feeds of free accounts fail to parse.
package doodle

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"raidcall/internal/ics"
	"raidcall/internal/models"
)

// Status tags as written by Doodle. They are localized by Doodle itself.
const (
	TagScheduled = "Doodle"
	TagVoting    = "Doodle-kesken"
)

var (
	summaryRe     = regexp.MustCompile(`^(?P<summary>.*)\s*\[(?P<status>.*?)]$`)
	descriptionRe = regexp.MustCompile(`(?ms)^Aloitteesta\s+.+?\n(?P<description>.*)\sOsallistujat:\s(?P<participants>.*)(?P<url>https://.+?)$`)
)

// Parse converts one Doodle feed record into an event.
func Parse(rec ics.Record) (*models.Event, error) {
	m := summaryRe.FindStringSubmatch(rec.Summary)
	if m == nil {
		return nil, models.Malformed("unable to parse the Doodle subject line %q", rec.Summary)
	}
	summary := strings.TrimSpace(m[summaryRe.SubexpIndex("summary")])

	status, err := parseStatus(m[summaryRe.SubexpIndex("status")])
	if err != nil {
		return nil, err
	}

	d := descriptionRe.FindStringSubmatch(rec.Description)
	if d == nil {
		return nil, models.Malformed("invalid Doodle message format for %q, possibly a free Doodle account", rec.Summary)
	}

	return models.NewEvent(models.Event{
		MessageID:     fmt.Sprintf("doodle_%s_%s", rec.UID, rec.DateStart),
		Summary:       summary,
		Description:   strings.TrimSpace(d[descriptionRe.SubexpIndex("description")]),
		Status:        status,
		Start:         rec.Start,
		End:           rec.End,
		SignupEnabled: true,
		Attendees:     Participants(d[descriptionRe.SubexpIndex("participants")]),
		URL:           strings.TrimSpace(d[descriptionRe.SubexpIndex("url")]),
		UID:           rec.UID,
		DateStart:     rec.DateStart,
	})
}

func parseStatus(tag string) (models.Status, error) {
	switch tag {
	case TagScheduled:
		return models.StatusRaidProgress, nil
	case TagVoting:
		return models.StatusInVoting, nil
	}
	return "", models.Malformed("invalid Doodle status %q", tag)
}

// Participants reads the participant block, one participant per line. A line may carry a
// "<label> - <name>" prefix, of which only the name is kept.
func Participants(block string) []string {
	names := []string{}
	for _, line := range strings.Split(block, "\n") {
		if i := strings.LastIndex(line, "-"); i >= 0 {
			line = line[i+1:]
		}
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	sort.Strings(names)
	return names
}
