package event

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ParseDate parses a YYYY-MM-DD date.
// Returns time.Time{} (zero value) if parsing fails.
func ParseDate(date string) time.Time {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ScheduledAt combines Date and Time into an instant in loc.
// A nil loc means time.Local.
func (e *Event) ScheduledAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, e.Date+" "+e.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing schedule %q %q: %w", e.Date, e.Time, err)
	}
	return t, nil
}

// IsPastEvent checks if an event's scheduled instant has passed.
// Returns false if the schedule cannot be parsed (safer default).
func (e *Event) IsPastEvent(now time.Time) bool {
	at, err := e.ScheduledAt(now.Location())
	if err != nil {
		return false
	}
	return at.Before(now)
}
