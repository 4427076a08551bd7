package message

import (
	"time"

	xmessage "golang.org/x/text/message"
)

// RelativeStart describes when start is relative to now: the exact wait for events
// later today, "tomorrow", or the weekday name. Dates are compared in UTC.
func RelativeStart(p *xmessage.Printer, start, now time.Time) string {
	start, now = start.UTC(), now.UTC()
	today := now.Format(time.DateOnly)

	switch start.Format(time.DateOnly) {
	case today:
		wait := max(start.Sub(now), 0)
		return p.Sprintf(keyToday, int(wait/time.Hour), int(wait%time.Hour/time.Minute))
	case now.AddDate(0, 0, 1).Format(time.DateOnly):
		return p.Sprintf(keyTomorrow)
	}
	return p.Sprintf(keyWeekday, p.Sprintf(start.Weekday().String()))
}

// Duration rounds d to a quarter hour for display. A zero duration gives "".
func Duration(p *xmessage.Printer, d time.Duration) string {
	if d <= 0 {
		return ""
	}
	hours := int(d / time.Hour)
	minutes := int(d % time.Hour / time.Minute)

	switch {
	case minutes < 10:
		return p.Sprintf(keyHours, hours)
	case minutes < 20:
		return p.Sprintf(keyHoursQuarter, hours)
	case minutes < 40:
		return p.Sprintf(keyHoursHalf, hours)
	case minutes < 50:
		return p.Sprintf(keyHoursThree, hours)
	}
	return p.Sprintf(keyHours, hours+1)
}
