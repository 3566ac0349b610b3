package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/campushub/internal/event"
)

func techFest() *event.Event {
	return &event.Event{
		ID:          "evt-123",
		Name:        "Tech Fest",
		Date:        "2025-03-01",
		Time:        "14:00",
		Location:    "Hall A",
		Description: "Talks and demos",
		Organizers:  "CS Dept",
		Attendees:   []event.Attendee{},
	}
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2025, 2, 1, 8, 30, 0, 0, time.UTC)

	err := encodeAt(&buf, techFest(), time.UTC, now)
	require.NoError(t, err)

	out := buf.String()
	requiredFields := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + ProductID,
		"BEGIN:VEVENT",
		"UID:evt-123@campushub.events",
		"DTSTAMP:20250201T083000Z",
		"DTSTART:20250301T140000Z",
		"DTEND:20250301T150000Z",
		"SUMMARY:Tech Fest",
		"DESCRIPTION:Talks and demos",
		"LOCATION:Hall A",
		"END:VEVENT",
		"END:VCALENDAR",
	}
	for _, field := range requiredFields {
		assert.Contains(t, out, field)
	}
	assert.Contains(t, out, "\r\n")
}

func TestEncodeConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	var buf bytes.Buffer

	require.NoError(t, Encode(&buf, techFest(), loc))
	assert.Contains(t, buf.String(), "DTSTART:20250301T120000Z")
	assert.Contains(t, buf.String(), "DTEND:20250301T130000Z")
}

func TestEncodeRoundTrip(t *testing.T) {
	evt := techFest()
	evt.Location = "Hall A, Building 2"
	evt.Description = "<p>Talks; demos, <b>and</b> food</p>"

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, evt, time.UTC))

	cal, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 1)

	summary, err := events[0].Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "Tech Fest", summary)

	location, err := events[0].Props.Text(ical.PropLocation)
	require.NoError(t, err)
	assert.Equal(t, "Hall A, Building 2", location)

	desc, err := events[0].Props.Text(ical.PropDescription)
	require.NoError(t, err)
	assert.Equal(t, "Talks; demos, and food", desc)
}

func TestEncodeInvalidSchedule(t *testing.T) {
	evt := techFest()
	evt.Time = "2pm"

	var buf bytes.Buffer
	assert.Error(t, Encode(&buf, evt, time.UTC))
	assert.Zero(t, buf.Len())
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"  padded  ", "padded"},
		{"<p>Hello <em>world</em></p>", "Hello world"},
		{"Fish &amp; chips", "Fish & chips"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.in))
		})
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Tech Fest", "tech_fest.ics"},
		{"AI & ML Summit 2025!", "ai___ml_summit_2025_.ics"},
		{"café", "caf_.ics"},
		{"", ".ics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filename(&event.Event{Name: tt.name})
			assert.Equal(t, tt.want, got)
			assert.False(t, strings.ContainsAny(strings.TrimSuffix(got, ".ics"), " .&!"))
		})
	}
}
