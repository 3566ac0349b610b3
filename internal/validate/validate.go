// Package validate checks caller input before it reaches the event store.
// The store itself accepts any payload; the API, CLI and CSV import run
// these checks first.
package validate

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator"

	"github.com/campushub/campushub/internal/event"
)

// ErrInvalid is wrapped by every FieldError
var ErrInvalid = errors.New("invalid input")

const (
	ErrFieldRequired    = "Field is required"
	ErrFieldBelowMinLen = "Field is below minimum length"
	ErrInvalidDate      = "Date must be YYYY-MM-DD"
	ErrInvalidClock     = "Time must be HH:MM (24h)"
	ErrInvalidEmail     = "Invalid email address"
	ErrDuplicateID      = "Attendee ids must be unique"
	ErrDuplicateEmail   = "Attendee emails must be unique"
	ErrUnknown          = "Unknown validation error"
)

var (
	clockRegex = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

	once   sync.Once
	global *validator.Validate
)

// FieldError describes the first rule an input broke
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message + ": " + e.Field
}

func (e *FieldError) Unwrap() error {
	return ErrInvalid
}

type eventForm struct {
	Name        string `json:"name" validate:"required,min=3"`
	Date        string `json:"date" validate:"required,isodate"`
	Time        string `json:"time" validate:"required,clock"`
	Location    string `json:"location" validate:"required,min=3"`
	Description string `json:"description" validate:"required,min=10"`
	Organizers  string `json:"organizers" validate:"required,min=2"`
}

// recordForm is eventForm plus the attendee list of a stored record
type recordForm struct {
	Fields    eventForm
	Attendees []attendeeForm `json:"attendees" validate:"uniqueids,uniqueemails,dive"`
}

type attendeeForm struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name"`
	Email string `json:"email" validate:"required"`
}

type registrationForm struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
}

// New builds a validator with the date, clock and attendee rules registered.
// Field names in errors are taken from json tags. It panics if a rule cannot
// be registered.
func New() *validator.Validate {
	v := validator.New()
	rules := map[string]validator.Func{
		"isodate":      validateDate,
		"clock":        validateClock,
		"uniqueids":    uniqueAttendees(func(a attendeeForm) string { return a.ID }),
		"uniqueemails": uniqueAttendees(func(a attendeeForm) string { return a.Email }),
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic("validate: registering " + tag + ": " + err.Error())
		}
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func instance() *validator.Validate {
	once.Do(func() {
		global = New()
	})
	return global
}

func validateDate(fl validator.FieldLevel) bool {
	return !event.ParseDate(fl.Field().String()).IsZero()
}

func validateClock(fl validator.FieldLevel) bool {
	return clockRegex.MatchString(fl.Field().String())
}

// uniqueAttendees fails when two attendees share a non-empty key
func uniqueAttendees(key func(attendeeForm) string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		attendees, ok := fl.Field().Interface().([]attendeeForm)
		if !ok {
			return false
		}
		seen := make(map[string]struct{}, len(attendees))
		for _, a := range attendees {
			k := key(a)
			if k == "" {
				continue
			}
			if _, dup := seen[k]; dup {
				return false
			}
			seen[k] = struct{}{}
		}
		return true
	}
}

// Payload checks the fields of a new event
func Payload(ctx context.Context, p event.NewEventPayload) error {
	return parseValidationErrors(instance().StructCtx(ctx, eventForm{
		Name:        p.Name,
		Date:        p.Date,
		Time:        p.Time,
		Location:    p.Location,
		Description: p.Description,
		Organizers:  p.Organizers,
	}))
}

// Event checks a full event record, as sent to Update: the editable fields
// plus its attendees, which need an id and an email, with neither repeated.
func Event(ctx context.Context, evt *event.Event) error {
	if evt == nil {
		return &FieldError{Field: "event", Tag: "required", Message: ErrFieldRequired}
	}

	form := recordForm{
		Fields: eventForm{
			Name:        evt.Name,
			Date:        evt.Date,
			Time:        evt.Time,
			Location:    evt.Location,
			Description: evt.Description,
			Organizers:  evt.Organizers,
		},
		Attendees: make([]attendeeForm, 0, len(evt.Attendees)),
	}
	for _, a := range evt.Attendees {
		form.Attendees = append(form.Attendees, attendeeForm{ID: a.ID, Name: a.Name, Email: a.Email})
	}
	return parseValidationErrors(instance().StructCtx(ctx, form))
}

// Registration checks an attendee's name and email
func Registration(ctx context.Context, name, email string) error {
	return parseValidationErrors(instance().StructCtx(ctx, registrationForm{
		Name:  name,
		Email: email,
	}))
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrors) == 0 {
		return err
	}
	ve := vErrors[0]

	var msg string
	switch ve.Tag() {
	case "required":
		msg = ErrFieldRequired
	case "min":
		msg = ErrFieldBelowMinLen
	case "isodate":
		msg = ErrInvalidDate
	case "clock":
		msg = ErrInvalidClock
	case "email":
		msg = ErrInvalidEmail
	case "uniqueids":
		msg = ErrDuplicateID
	case "uniqueemails":
		msg = ErrDuplicateEmail
	default:
		msg = ErrUnknown
	}
	return &FieldError{Field: ve.Field(), Tag: ve.Tag(), Message: msg}
}
