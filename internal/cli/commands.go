package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/campushub/campushub/internal/api"
	"github.com/campushub/campushub/internal/bulk"
	"github.com/campushub/campushub/internal/calendar"
	"github.com/campushub/campushub/internal/event"
	"github.com/campushub/campushub/internal/filter"
	"github.com/campushub/campushub/internal/logger"
	"github.com/campushub/campushub/internal/storage"
	"github.com/campushub/campushub/internal/store"
	"github.com/campushub/campushub/internal/validate"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		sortFlag  string
		upcoming  bool
		past      bool
		search    string
		dates     string
		weekends  bool
		locations []string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := event.ParseSortOrder(sortFlag)
			if err != nil {
				return err
			}
			if upcoming && past {
				return errors.New("--upcoming and --past are mutually exclusive")
			}
			f := &filter.Filter{Query: search, WeekendsOnly: weekends, Locations: locations}
			if dates != "" {
				f.DateFrom, f.DateTo, err = filter.ParseDateRange(dates)
				if err != nil {
					return err
				}
			}

			events, err := opts.store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing events: %w", err)
			}

			events = f.Apply(events)
			if upcoming || past {
				events = filterByTime(events, time.Now().In(opts.loc), past)
			}
			if !f.IsEmpty() {
				opts.log.Debug("filter applied", logger.Fields{"filter": f.String(), "matches": len(events)})
			}
			event.Sort(events, order)

			return WriteEvents(cmd.OutOrStdout(), events, opts.outputFormat(), opts.verbose)
		},
	}

	cmd.Flags().StringVar(&sortFlag, "sort", "", "Sort by: date, name or location (default persisted order)")
	cmd.Flags().BoolVar(&upcoming, "upcoming", false, "Only events that have not started")
	cmd.Flags().BoolVar(&past, "past", false, "Only events that have started")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive match on name, description, location or organizers")
	cmd.Flags().StringVar(&dates, "dates", "", "Date range, e.g. '2026-03-01..2026-03-15', 'Mar 1-15' or 'March'")
	cmd.Flags().BoolVar(&weekends, "weekends", false, "Only events on Saturday or Sunday")
	cmd.Flags().StringSliceVar(&locations, "location", nil, "Only events whose location contains any of these values")

	return cmd
}

// filterByTime keeps past events when past is set, upcoming ones otherwise
func filterByTime(events []*event.Event, now time.Time, past bool) []*event.Event {
	out := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if evt.IsPastEvent(now) == past {
			out = append(out, evt)
		}
	}
	return out
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show one event and its attendees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			evt, err := opts.store.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return WriteEvent(cmd.OutOrStdout(), evt, opts.outputFormat())
		},
	}
}

// eventFlags binds the editable event fields
func eventFlags(cmd *cobra.Command, p *event.NewEventPayload) {
	cmd.Flags().StringVar(&p.Name, "name", "", "Event name")
	cmd.Flags().StringVar(&p.Date, "date", "", "Date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&p.Time, "time", "", "Start time (HH:MM, 24h)")
	cmd.Flags().StringVar(&p.Location, "location", "", "Where the event takes place")
	cmd.Flags().StringVar(&p.Description, "description", "", "What the event is about")
	cmd.Flags().StringVar(&p.Organizers, "organizers", "", "Who runs the event")
	cmd.Flags().StringVar(&p.Keywords, "keywords", "", "Comma-separated keywords")
}

func newCreateCmd(opts *rootOptions) *cobra.Command {
	var payload event.NewEventPayload

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := validate.Payload(ctx, payload); err != nil {
				return err
			}

			evt, err := opts.store.Create(ctx, payload)
			if err != nil {
				return fmt.Errorf("creating event: %w", err)
			}

			if err := opts.announcer.AnnounceEvent(ctx, evt); err != nil {
				opts.log.Warn("event announcement failed", logger.Fields{"event_id": evt.ID, "error": err.Error()})
			}

			return WriteEvent(cmd.OutOrStdout(), evt, opts.outputFormat())
		},
	}

	eventFlags(cmd, &payload)
	for _, f := range []string{"name", "date", "time", "location", "description", "organizers"} {
		_ = cmd.MarkFlagRequired(f)
	}

	return cmd
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	var payload event.NewEventPayload

	cmd := &cobra.Command{
		Use:   "update <event-id>",
		Short: "Change fields of an event",
		Long: `Change fields of an event. Only the flags given are changed; the
rest of the record, attendees included, is carried over as stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			evt, err := opts.store.GetByID(ctx, args[0])
			if err != nil {
				return err
			}

			changed := applyChanged(cmd, evt, payload)
			if changed == 0 {
				return errors.New("nothing to update: pass at least one field flag")
			}

			if err := validate.Event(ctx, evt); err != nil {
				return err
			}
			if err := opts.store.Update(ctx, evt); err != nil {
				return fmt.Errorf("updating event: %w", err)
			}

			return WriteEvent(cmd.OutOrStdout(), evt, opts.outputFormat())
		},
	}

	eventFlags(cmd, &payload)
	return cmd
}

// applyChanged copies the flags the user set onto evt and counts them
func applyChanged(cmd *cobra.Command, evt *event.Event, p event.NewEventPayload) int {
	fields := []struct {
		flag string
		dst  *string
		val  string
	}{
		{"name", &evt.Name, p.Name},
		{"date", &evt.Date, p.Date},
		{"time", &evt.Time, p.Time},
		{"location", &evt.Location, p.Location},
		{"description", &evt.Description, p.Description},
		{"organizers", &evt.Organizers, p.Organizers},
		{"keywords", &evt.Keywords, p.Keywords},
	}

	n := 0
	for _, f := range fields {
		if cmd.Flags().Changed(f.flag) {
			*f.dst = f.val
			n++
		}
	}
	return n
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := opts.store.Delete(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("deleting event: %w", err)
			}
			if !deleted {
				return fmt.Errorf("%w: %s", store.ErrNotFound, args[0])
			}

			if opts.outputFormat() == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), api.DeleteResponse{ID: args[0], Deleted: true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted event %s\n", args[0])
			return nil
		},
	}
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "register <event-id>",
		Short: "Register an attendee for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := validate.Registration(ctx, name, email); err != nil {
				return err
			}

			attendee, err := opts.store.Register(ctx, args[0], name, email)
			if err != nil {
				return err
			}

			evt, err := opts.store.GetByID(ctx, args[0])
			if err != nil {
				return err
			}

			if err := opts.notifier.NotifyRegistration(ctx, evt, attendee); err != nil {
				opts.log.Warn("registration notice failed", logger.Fields{"event_id": evt.ID, "error": err.Error()})
			}

			return WriteAttendee(cmd.OutOrStdout(), evt, attendee, opts.outputFormat())
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Attendee name")
	cmd.Flags().StringVar(&email, "email", "", "Attendee email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv|->",
		Short: "Create events from a CSV file",
		Long: `Create events from a CSV file. The header names the columns: name,
date, time, location, description and organizers are required, keywords is
optional. Invalid rows are skipped and reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeIn, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeIn() // nolint:errcheck

			result, err := bulk.Import(cmd.Context(), opts.store, in)
			if result != nil {
				if werr := WriteImportResult(cmd.OutOrStdout(), result, opts.outputFormat()); werr != nil {
					return werr
				}
			}
			return err
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all events as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			n, err := bulk.Export(cmd.Context(), opts.store, &buf)
			if err != nil {
				return err
			}

			if err := writeOutput(cmd, output, buf.Bytes()); err != nil {
				return err
			}
			opts.log.Debug("events exported", logger.Fields{"rows": n, "output": output})
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "File to write, - for stdout")
	return cmd
}

func newICSCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "ics <event-id>",
		Short: "Export an event as an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			evt, err := opts.store.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := calendar.Encode(&buf, evt, opts.loc); err != nil {
				return fmt.Errorf("generating calendar: %w", err)
			}

			dest := output
			if dest == "" {
				dest = calendar.Filename(evt)
			}
			if err := writeOutput(cmd, dest, buf.Bytes()); err != nil {
				return err
			}
			if dest != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", dest)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write, - for stdout (default <event-name>.ics)")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				opts.cfg.Port = port
			}

			h := api.NewHandler(opts.store,
				api.WithLogger(opts.log),
				api.WithMetrics(opts.metrics),
				api.WithNotifier(opts.notifier),
				api.WithAnnouncer(opts.announcer),
				api.WithLocation(opts.loc),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return api.Serve(ctx, opts.cfg.Addr(), api.NewRouter(h))
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port or address (default from PORT, else 8080)")
	return cmd
}

func newGistCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gist",
		Short: "Manage GitHub Gist storage",
	}

	create := &cobra.Command{
		Use:         "create",
		Short:       "Create a private gist to hold the event collection",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"store": "none"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.GitHubToken == "" {
				return errors.New("GITHUB_TOKEN is required")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			id, err := storage.CreateGist(ctx, opts.cfg.GitHubToken, "CampusHub events")
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", id)
			fmt.Fprintf(cmd.ErrOrStderr(), "Set CAMPUSHUB_GIST_ID=%s and CAMPUSHUB_STORAGE=gist to use it\n", id)
			return nil
		},
	}

	cmd.AddCommand(create)
	return cmd
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func() error, error) {
	if path == "-" {
		return cmd.InOrStdin(), noopClose, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, f.Close, nil
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
