package message

import (
	"fmt"

	"golang.org/x/text/language"
	xmessage "golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Keys of the translated strings. English text doubles as the key.
const (
	keyToday        = "in %d hours and %d minutes"
	keyTomorrow     = "tomorrow"
	keyWeekday      = "on %s"
	keyHours        = "%d hours"
	keyHoursQuarter = "%d hours 15 minutes"
	keyHoursHalf    = "%d hours 30 minutes"
	keyHoursThree   = "%d hours 45 minutes"
	keySignup       = "Sign up"
	keyAttendees    = "Attendees"
	keyDetails      = "Details"
)

var translations = map[language.Tag]map[string]string{
	language.Finnish: {
		keyToday:        "%d tunnin ja %d minuutin päästä",
		keyTomorrow:     "huomenna",
		keyWeekday:      "%s",
		keyHours:        "%d tuntia",
		keyHoursQuarter: "%d tuntia 15 minuuttia",
		keyHoursHalf:    "%d tuntia 30 minuuttia",
		keyHoursThree:   "%d tuntia 45 minuuttia",
		keySignup:       "Ilmoittaudu",
		keyAttendees:    "Osallistujat",
		keyDetails:      "Lisätiedot",
		"Monday":        "maanantaina",
		"Tuesday":       "tiistaina",
		"Wednesday":     "keskiviikkona",
		"Thursday":      "torstaina",
		"Friday":        "perjantaina",
		"Saturday":      "lauantaina",
		"Sunday":        "sunnuntaina",
	},
}

var (
	supported = []language.Tag{language.English, language.Finnish}
	matcher   = language.NewMatcher(supported)
	messages  = buildCatalog()
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	set := func(tag language.Tag, key, msg string) {
		if err := b.SetString(tag, key, msg); err != nil {
			panic(fmt.Sprintf("message catalog %s %q: %v", tag, key, err))
		}
	}
	for tag, msgs := range translations {
		for key, msg := range msgs {
			set(tag, key, msg)
			set(language.English, key, key)
		}
	}
	return b
}

// NewPrinter returns a printer for the closest supported language. An empty name means English.
func NewPrinter(lang string) (*xmessage.Printer, error) {
	tag := language.English
	if lang != "" {
		parsed, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("parse language %q: %w", lang, err)
		}
		_, idx, _ := matcher.Match(parsed)
		tag = supported[idx]
	}
	return xmessage.NewPrinter(tag, xmessage.Catalog(messages)), nil
}
