package event

import (
	"github.com/google/uuid"
)

// Event represents a scheduled campus activity and its registrants
type Event struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Date        string     `json:"date"` // YYYY-MM-DD
	Time        string     `json:"time"` // HH:MM, 24h
	Location    string     `json:"location"`
	Description string     `json:"description"`
	Organizers  string     `json:"organizers"`
	Attendees   []Attendee `json:"attendees"`

	// Filled in by the content generator and stored verbatim
	Keywords                 string `json:"keywords,omitempty"`
	GeneratedDescription     string `json:"generatedDescription,omitempty"`
	GeneratedSocialMediaPost string `json:"generatedSocialMediaPost,omitempty"`
	GeneratedEmailSnippet    string `json:"generatedEmailSnippet,omitempty"`
}

// Attendee is a person registered for one event. Email is the dedup key
// within that event.
type Attendee struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewEventPayload holds the caller-editable fields of a new event
type NewEventPayload struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Organizers  string `json:"organizers"`
	Keywords    string `json:"keywords,omitempty"`
}

// GenerateID returns a fresh random identifier
func GenerateID() string {
	return uuid.New().String()
}

// NewEvent creates an Event from a payload with the given ID and no attendees
func NewEvent(id string, p NewEventPayload) *Event {
	return &Event{
		ID:          id,
		Name:        p.Name,
		Date:        p.Date,
		Time:        p.Time,
		Location:    p.Location,
		Description: p.Description,
		Organizers:  p.Organizers,
		Keywords:    p.Keywords,
		Attendees:   []Attendee{},
	}
}

// HasAttendee reports whether an attendee with exactly this email is registered.
// The comparison is case-sensitive.
func (e *Event) HasAttendee(email string) bool {
	for _, a := range e.Attendees {
		if a.Email == email {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can't alias the attendee slice
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	c.Attendees = make([]Attendee, len(e.Attendees))
	copy(c.Attendees, e.Attendees)
	return &c
}
