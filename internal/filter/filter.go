// Package filter narrows an event listing by free-text search, date range,
// weekday and location.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/campushub/campushub/internal/event"
)

// Filter represents the criteria for narrowing a list of events.
// All criteria are combined with AND. A zero Filter matches everything.
type Filter struct {
	// Query is matched case-insensitively against name, description,
	// location and organizers. Any one field containing it is a match.
	Query string `json:"query,omitempty"`

	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	WeekendsOnly bool `json:"weekends_only,omitempty"`

	// Locations keeps events whose location contains any of the values
	Locations []string `json:"locations,omitempty"`
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return strings.TrimSpace(f.Query) == "" &&
		f.DateFrom == nil &&
		f.DateTo == nil &&
		!f.WeekendsOnly &&
		len(f.Locations) == 0
}

// Matches checks if an event passes every active criterion.
//
// Date-based criteria compare the event's calendar date only. Events whose
// date cannot be parsed never pass a date-based criterion.
func (f *Filter) Matches(evt *event.Event) bool {
	if evt == nil {
		return false
	}
	if f.IsEmpty() {
		return true
	}

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !containsFold(q, evt.Name, evt.Description, evt.Location, evt.Organizers) {
			return false
		}
	}

	if f.DateFrom != nil || f.DateTo != nil || f.WeekendsOnly {
		day := event.ParseDate(evt.Date)
		if day.IsZero() {
			return false
		}
		if f.DateFrom != nil && day.Before(truncateDay(*f.DateFrom)) {
			return false
		}
		if f.DateTo != nil && day.After(truncateDay(*f.DateTo)) {
			return false
		}
		if f.WeekendsOnly {
			if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
				return false
			}
		}
	}

	if len(f.Locations) > 0 {
		matched := false
		for _, loc := range f.Locations {
			if containsFold(strings.ToLower(loc), evt.Location) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

// Apply returns the events that match. An empty filter returns the input
// unchanged; otherwise the result is a new slice (never nil).
func (f *Filter) Apply(events []*event.Event) []*event.Event {
	if f.IsEmpty() {
		return events
	}

	filtered := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if f.Matches(evt) {
			filtered = append(filtered, evt)
		}
	}
	return filtered
}

// String returns a human-readable description of the active criteria.
// Format: `Search: "fest" | From: Mar 1, 2026 | To: Mar 15, 2026 | Weekends only`
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string
	if q := strings.TrimSpace(f.Query); q != "" {
		parts = append(parts, fmt.Sprintf("Search: %q", q))
	}
	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}
	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}
	if f.WeekendsOnly {
		parts = append(parts, "Weekends only")
	}
	if len(f.Locations) > 0 {
		parts = append(parts, fmt.Sprintf("Locations: %s", strings.Join(f.Locations, ", ")))
	}
	return strings.Join(parts, " | ")
}

// containsFold reports whether any field contains needle, which must
// already be lowercased.
func containsFold(needle string, fields ...string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// truncateDay drops the clock so comparisons happen on calendar dates.
func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
