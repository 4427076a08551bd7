// Package message turns events into the chat messages announcing them.
package message

import (
	"errors"
	"fmt"
	"time"

	xmessage "golang.org/x/text/message"

	"raidcall/internal/models"
)

// ErrVotingEvent is returned when an event still in voting reaches the classifier.
// Voting events are dropped by the merger, so this is a bug upstream.
var ErrVotingEvent = errors.New("voting event cannot be announced")

// DefaultPersona is the key of the persona used for statuses without their own.
const DefaultPersona = "default"

// Persona is the name and avatar the webhook posts as.
type Persona struct {
	Name   string `yaml:"name"`
	Avatar string `yaml:"avatar"`
}

// Notification is an event together with everything derived for presenting it.
type Notification struct {
	Event    *models.Event
	Persona  Persona
	Time     string // relative start phrase
	Duration string // duration phrase, may be empty
}

// Classifier picks the persona for an event and derives its phrases.
type Classifier struct {
	personas map[models.Status]Persona
	fallback Persona
	printer  *xmessage.Printer
}

// NewClassifier creates a classifier from personas keyed by status name or DefaultPersona.
func NewClassifier(personas map[string]Persona, printer *xmessage.Printer) (*Classifier, error) {
	c := &Classifier{
		personas: make(map[models.Status]Persona, len(personas)),
		printer:  printer,
	}
	for key, p := range personas {
		if key == DefaultPersona {
			c.fallback = p
			continue
		}
		st, err := models.ParseStatus(key)
		if err != nil {
			return nil, models.InvalidConfig("persona %q: %v", key, err)
		}
		c.personas[st] = p
	}
	return c, nil
}

// Classify resolves the persona and the relative-time and duration phrases of ev.
func (c *Classifier) Classify(ev *models.Event, now time.Time) (Notification, error) {
	if ev.Status == models.StatusInVoting {
		return Notification{}, fmt.Errorf("%s: %w", ev.MessageID, ErrVotingEvent)
	}
	p, ok := c.personas[ev.Status]
	if !ok {
		p = c.fallback
	}
	return Notification{
		Event:    ev,
		Persona:  p,
		Time:     RelativeStart(c.printer, ev.Start, now),
		Duration: Duration(c.printer, ev.Duration),
	}, nil
}
