package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/campushub/campushub/internal/config"
	"github.com/campushub/campushub/internal/logger"
	"github.com/campushub/campushub/internal/notifier"
	"github.com/campushub/campushub/internal/store"
)

// Version is reported by --version. Set at build time.
var Version = "dev"

const (
	ExitSuccess = 0
	ExitError   = 1
)

// rootOptions holds the persistent flags and what they resolve to
type rootOptions struct {
	storage  string
	dataDir  string
	format   string
	timezone string
	verbose  bool

	cfg       *config.Config
	loc       *time.Location
	log       *logger.Logger
	metrics   *logger.Metrics
	store     *store.EventStore
	notifier  notifier.Notifier
	announcer notifier.Announcer
	closers   []func() error
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "campushub",
		Version: Version,
		Short:   "Manage campus events and registrations",
		Long: `A CLI tool to manage campus events.
Create, edit and delete events, register attendees, export calendars and
CSV, or serve everything over a JSON HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.close()
		},
	}

	// Define flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.storage, "storage", "", "Storage backend: file, memory, gist or postgres (default from CAMPUSHUB_STORAGE, else file)")
	flags.StringVar(&opts.dataDir, "data-dir", "", "Data directory for file storage (default from CAMPUSHUB_DATA_DIR, else ~/.campushub)")
	flags.StringVar(&opts.format, "format", "text", "Output format: text or json")
	flags.StringVar(&opts.timezone, "timezone", "", "Zone event times are read in (default from CAMPUSHUB_TIMEZONE, else local)")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(
		newListCmd(opts),
		newShowCmd(opts),
		newCreateCmd(opts),
		newUpdateCmd(opts),
		newDeleteCmd(opts),
		newRegisterCmd(opts),
		newImportCmd(opts),
		newExportCmd(opts),
		newICSCmd(opts),
		newServeCmd(opts),
		newGistCmd(opts),
	)

	return cmd
}

// setup loads configuration, applies flag overrides and opens the store
func (o *rootOptions) setup(cmd *cobra.Command) error {
	format := OutputFormat(strings.ToLower(o.format))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", o.format)
	}
	o.format = string(format)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if o.storage != "" {
		cfg.Storage = strings.ToLower(o.storage)
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.timezone != "" {
		cfg.Timezone = o.timezone
	}
	if o.verbose {
		cfg.LogLevel = logger.LevelDebug
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg

	o.loc, err = cfg.Location()
	if err != nil {
		return err
	}

	o.log = logger.New(cfg.LogLevel, cmd.ErrOrStderr())
	logger.SetDefault(o.log)
	o.metrics = logger.NewMetrics()

	// gist create needs configuration but no store
	if cmd.Annotations["store"] == "none" {
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	blob, closeBlob, err := openBlob(ctx, cfg)
	if err != nil {
		return err
	}
	o.closers = append(o.closers, closeBlob)

	o.store = store.New(blob, store.WithLogger(o.log), store.WithMetrics(o.metrics))

	n, a, closeNotifiers, err := buildNotifiers(cfg, cmd.ErrOrStderr())
	if err != nil {
		o.close() // nolint:errcheck
		return err
	}
	o.notifier, o.announcer = n, a
	o.closers = append(o.closers, closeNotifiers)

	o.log.Debug("configuration loaded", logger.Fields{
		"storage":  cfg.Storage,
		"data_dir": cfg.DataDir,
		"timezone": o.loc.String(),
	})
	return nil
}

func (o *rootOptions) close() error {
	var first error
	for i := len(o.closers) - 1; i >= 0; i-- {
		if err := o.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	o.closers = nil
	return first
}

func (o *rootOptions) outputFormat() OutputFormat {
	return OutputFormat(o.format)
}

// Execute runs the CLI
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}
