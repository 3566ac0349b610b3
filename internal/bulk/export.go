// Package bulk moves events in and out of the store as CSV.
package bulk

import (
	"context"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/campushub/campushub/internal/event"
)

// EventSource lists stored events
type EventSource interface {
	List(ctx context.Context) ([]*event.Event, error)
}

// Row is one exported event. Attendees is a count; names and emails are
// never exported.
type Row struct {
	ID          string `csv:"id"`
	Name        string `csv:"name"`
	Date        string `csv:"date"`
	Time        string `csv:"time"`
	Location    string `csv:"location"`
	Description string `csv:"description"`
	Organizers  string `csv:"organizers"`
	Keywords    string `csv:"keywords"`
	Attendees   int    `csv:"attendees"`
}

// NewRow flattens an event for export
func NewRow(evt *event.Event) Row {
	return Row{
		ID:          evt.ID,
		Name:        evt.Name,
		Date:        evt.Date,
		Time:        evt.Time,
		Location:    evt.Location,
		Description: evt.Description,
		Organizers:  evt.Organizers,
		Keywords:    evt.Keywords,
		Attendees:   len(evt.Attendees),
	}
}

// Export writes every event from src to w, header first, and returns the
// number of rows written.
func Export(ctx context.Context, src EventSource, w io.Writer) (int, error) {
	events, err := src.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing events: %w", err)
	}

	rows := make([]Row, 0, len(events))
	for _, evt := range events {
		rows = append(rows, NewRow(evt))
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return 0, fmt.Errorf("writing csv: %w", err)
	}
	return len(rows), nil
}
