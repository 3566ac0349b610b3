package bulk

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/campushub/campushub/internal/event"
	"github.com/campushub/campushub/internal/validate"
)

var ErrMissingColumn = errors.New("missing required column")

var requiredColumns = []string{"name", "date", "time", "location", "description", "organizers"}

// EventCreator stores new events
type EventCreator interface {
	Create(ctx context.Context, payload event.NewEventPayload) (*event.Event, error)
}

// RowError is a row that was skipped. Line is 1-based and counts the header.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// ImportResult reports the outcome of Import
type ImportResult struct {
	Created []*event.Event `json:"created"`
	Skipped []RowError     `json:"-"`
}

// Failures returns the skipped rows as display strings
func (r *ImportResult) Failures() []string {
	out := make([]string, 0, len(r.Skipped))
	for _, s := range r.Skipped {
		out = append(out, s.Error())
	}
	return out
}

// Import reads events from CSV and creates one per valid row.
//
// The header row names the columns in any order and case; name, date, time,
// location, description and organizers are required, keywords is optional and
// other columns are ignored. Rows that fail to parse or validate are skipped
// and reported. A store failure stops the import and is returned together with
// what was created before it.
func Import(ctx context.Context, dst EventCreator, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrMissingColumn)
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	for _, c := range requiredColumns {
		if _, ok := columns[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}

	result := &ImportResult{Created: []*event.Event{}}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				result.Skipped = append(result.Skipped, RowError{Line: pe.StartLine, Err: pe.Err})
				continue
			}
			return result, fmt.Errorf("reading csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		payload := payloadFrom(record, columns)

		if err := validate.Payload(ctx, payload); err != nil {
			result.Skipped = append(result.Skipped, RowError{Line: line, Err: err})
			continue
		}

		evt, err := dst.Create(ctx, payload)
		if err != nil {
			return result, fmt.Errorf("line %d: %w", line, err)
		}
		result.Created = append(result.Created, evt)
	}

	return result, nil
}

func payloadFrom(record []string, columns map[string]int) event.NewEventPayload {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	return event.NewEventPayload{
		Name:        field("name"),
		Date:        field("date"),
		Time:        field("time"),
		Location:    field("location"),
		Description: field("description"),
		Organizers:  field("organizers"),
		Keywords:    field("keywords"),
	}
}
