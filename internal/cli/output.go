package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/campushub/campushub/internal/bulk"
	"github.com/campushub/campushub/internal/event"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// writeJSON outputs v as indented JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// WriteEvents writes a listing of events
func WriteEvents(w io.Writer, events []*event.Event, format OutputFormat, verbose bool) error {
	if format == FormatJSON {
		return writeJSON(w, events)
	}

	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}

	for _, evt := range events {
		fmt.Fprintf(w, "%s %s  %s @ %s (%d registered)\n", evt.Date, evt.Time, evt.Name, evt.Location, len(evt.Attendees))
		if verbose {
			fmt.Fprintf(w, "     ID: %s\n", evt.ID)
			fmt.Fprintf(w, "     Organizers: %s\n", evt.Organizers)
		}
	}
	fmt.Fprintf(w, "\nTotal: %d events\n", len(events))
	return nil
}

// WriteEvent writes one event with its attendees
func WriteEvent(w io.Writer, evt *event.Event, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, evt)
	}

	fmt.Fprintf(w, "%s\n", evt.Name)
	fmt.Fprintf(w, "  ID:          %s\n", evt.ID)
	fmt.Fprintf(w, "  When:        %s %s\n", evt.Date, evt.Time)
	fmt.Fprintf(w, "  Where:       %s\n", evt.Location)
	fmt.Fprintf(w, "  Organizers:  %s\n", evt.Organizers)
	if evt.Keywords != "" {
		fmt.Fprintf(w, "  Keywords:    %s\n", evt.Keywords)
	}
	fmt.Fprintf(w, "  Description: %s\n", strings.TrimSpace(evt.Description))

	fmt.Fprintf(w, "\nAttendees (%d):\n", len(evt.Attendees))
	for i, a := range evt.Attendees {
		fmt.Fprintf(w, "  %d. %s <%s>\n", i+1, a.Name, a.Email)
	}
	return nil
}

// WriteAttendee reports a successful registration
func WriteAttendee(w io.Writer, evt *event.Event, a *event.Attendee, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, a)
	}
	fmt.Fprintf(w, "Registered %s <%s> for %s (attendee %s)\n", a.Name, a.Email, evt.Name, a.ID)
	return nil
}

// importOutput is the JSON shape of an import report
type importOutput struct {
	Created []*event.Event `json:"created"`
	Skipped []string       `json:"skipped"`
}

// WriteImportResult reports what an import created and skipped
func WriteImportResult(w io.Writer, result *bulk.ImportResult, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, importOutput{Created: result.Created, Skipped: result.Failures()})
	}

	fmt.Fprintf(w, "Imported %d events\n", len(result.Created))
	if len(result.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped %d rows:\n", len(result.Skipped))
		for _, s := range result.Failures() {
			fmt.Fprintf(w, "  %s\n", s)
		}
	}
	return nil
}
