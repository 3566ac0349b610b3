package notifier

import (
	"context"
	"time"

	"github.com/campushub/campushub/internal/event"
)

const (
	RoutingKeyRegistered = "event.registered"
	RoutingKeyCreated    = "event.created"
)

// Notifier is told about every successful registration
type Notifier interface {
	NotifyRegistration(ctx context.Context, evt *event.Event, attendee *event.Attendee) error
}

// Announcer is told about every newly created event
type Announcer interface {
	AnnounceEvent(ctx context.Context, evt *event.Event) error
}

// RegistrationNotice is the published message body for a registration
type RegistrationNotice struct {
	EventID       string    `json:"eventId"`
	EventName     string    `json:"eventName"`
	EventDate     string    `json:"eventDate"`
	EventTime     string    `json:"eventTime"`
	Location      string    `json:"location"`
	AttendeeID    string    `json:"attendeeId"`
	AttendeeName  string    `json:"attendeeName"`
	AttendeeEmail string    `json:"attendeeEmail"`
	AttendeeCount int       `json:"attendeeCount"`
	RegisteredAt  time.Time `json:"registeredAt"`
}

// NewRegistrationNotice builds the notice for attendee joining evt
func NewRegistrationNotice(evt *event.Event, attendee *event.Attendee, at time.Time) RegistrationNotice {
	return RegistrationNotice{
		EventID:       evt.ID,
		EventName:     evt.Name,
		EventDate:     evt.Date,
		EventTime:     evt.Time,
		Location:      evt.Location,
		AttendeeID:    attendee.ID,
		AttendeeName:  attendee.Name,
		AttendeeEmail: attendee.Email,
		AttendeeCount: len(evt.Attendees),
		RegisteredAt:  at.UTC(),
	}
}

// EventNotice is the published message body for a new event
type EventNotice struct {
	EventID   string    `json:"eventId"`
	EventName string    `json:"eventName"`
	EventDate string    `json:"eventDate"`
	EventTime string    `json:"eventTime"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewEventNotice builds the notice for a newly created event
func NewEventNotice(evt *event.Event, at time.Time) EventNotice {
	return EventNotice{
		EventID:   evt.ID,
		EventName: evt.Name,
		EventDate: evt.Date,
		EventTime: evt.Time,
		Location:  evt.Location,
		CreatedAt: at.UTC(),
	}
}

// Nop discards everything
type Nop struct{}

func (Nop) NotifyRegistration(context.Context, *event.Event, *event.Attendee) error {
	return nil
}

func (Nop) AnnounceEvent(context.Context, *event.Event) error {
	return nil
}

// Announcers fans one announcement out to several announcers, returning the
// first error after trying them all.
type Announcers []Announcer

func (as Announcers) AnnounceEvent(ctx context.Context, evt *event.Event) error {
	var first error
	for _, a := range as {
		if err := a.AnnounceEvent(ctx, evt); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Notifiers fans one registration out to several notifiers, returning the
// first error after trying them all.
type Notifiers []Notifier

func (ns Notifiers) NotifyRegistration(ctx context.Context, evt *event.Event, attendee *event.Attendee) error {
	var first error
	for _, n := range ns {
		if err := n.NotifyRegistration(ctx, evt, attendee); err != nil && first == nil {
			first = err
		}
	}
	return first
}
