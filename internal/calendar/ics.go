// Package calendar exports events as iCalendar (.ics) documents.
package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-ical"

	"github.com/campushub/campushub/internal/event"
)

const (
	ProductID = "-//CampusHub//NONSGML Event Calendar//EN"
	UIDDomain = "campushub.events"

	// Events carry no end time; each one is blocked out for an hour
	DefaultDuration = time.Hour
)

// Encode writes a VCALENDAR holding a single VEVENT for evt.
// Date and time are read in loc (nil means time.Local) and written in UTC.
func Encode(w io.Writer, evt *event.Event, loc *time.Location) error {
	return encodeAt(w, evt, loc, time.Now())
}

func encodeAt(w io.Writer, evt *event.Event, loc *time.Location, now time.Time) error {
	start, err := evt.ScheduledAt(loc)
	if err != nil {
		return err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, fmt.Sprintf("%s@%s", evt.ID, UIDDomain))
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(DefaultDuration).UTC())
	ve.Props.SetText(ical.PropSummary, evt.Name)

	if desc := PlainText(evt.Description); desc != "" {
		ve.Props.SetText(ical.PropDescription, desc)
	}
	if evt.Location != "" {
		ve.Props.SetText(ical.PropLocation, evt.Location)
	}

	cal.Children = append(cal.Children, ve)

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}

// PlainText strips HTML markup from s. Generated descriptions may carry
// formatting tags that calendar clients would show literally.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

// Filename returns a download name for the event's calendar file
func Filename(evt *event.Event) string {
	var b strings.Builder
	for _, r := range evt.Name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	return b.String() + ".ics"
}
