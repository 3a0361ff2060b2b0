package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/config"
	generrors "github.com/randalmurphal/epcisgen/pkg/epcisgen/errors"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/observability"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/sink"
)

// GenerateOptions holds flags for the generate command. Flags override
// the settings file only when given.
type GenerateOptions struct {
	Seed            int64
	Format          string
	Sink            string
	SQLitePath      string
	Output          string
	RunID           string
	DigitalLinkBase string
	BatchSize       int
	WriteTimeout    time.Duration
	Metrics         bool
	Tracing         bool

	// clock fixes creation and event times in tests.
	clock func() time.Time
}

// GenerateResult is printed after events are stored in a database.
type GenerateResult struct {
	RunID  string
	Seed   int64
	Events int
	Rounds int
	Path   string
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	return newGenerateCommand(rootOpts, &GenerateOptions{})
}

func newGenerateCommand(rootOpts *RootOptions, opts *GenerateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <template>",
		Short: "Generate events from a template",
		Long: `Generate runs a template to exhaustion and writes its events.

By default the events go to stdout as one EPCIS 2.0 JSON document.
Use --format jsonl for one event per line, or --sink sqlite to store them
in a database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, rootOpts, opts, args[0])
		},
	}

	defaults := config.DefaultSettings()
	flags := cmd.Flags()
	flags.Int64Var(&opts.Seed, "seed", 0, "random seed (overrides the template's randomSeed)")
	flags.StringVar(&opts.Format, "format", defaults.Format, "output format (document|jsonl)")
	flags.StringVar(&opts.Sink, "sink", defaults.Sink, "where events go (stdout|sqlite)")
	flags.StringVar(&opts.SQLitePath, "db", defaults.SQLitePath, "database file for --sink sqlite")
	flags.StringVarP(&opts.Output, "output", "o", "", "write to a file instead of stdout")
	flags.StringVar(&opts.RunID, "run-id", "", "run id (default: random UUID)")
	flags.StringVar(&opts.DigitalLinkBase, "digital-link-base", "", "default Digital Link resolver")
	flags.IntVar(&opts.BatchSize, "batch-size", defaults.BatchSize, "events per sink write")
	flags.DurationVar(&opts.WriteTimeout, "write-timeout", defaults.WriteTimeout, "timeout of one sink write")
	flags.BoolVar(&opts.Metrics, "metrics", false, "record OpenTelemetry metrics")
	flags.BoolVar(&opts.Tracing, "tracing", false, "record OpenTelemetry spans")

	return cmd
}

// applyFlags overlays explicitly set flags on s.
func (o *GenerateOptions) applyFlags(cmd *cobra.Command, s *config.Settings) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		seed := o.Seed
		s.Seed = &seed
	}
	if flags.Changed("format") {
		s.Format = o.Format
	}
	if flags.Changed("sink") {
		s.Sink = o.Sink
	}
	if flags.Changed("db") {
		s.SQLitePath = o.SQLitePath
	}
	if flags.Changed("digital-link-base") {
		s.DigitalLinkBase = o.DigitalLinkBase
	}
	if flags.Changed("batch-size") {
		s.BatchSize = o.BatchSize
	}
	if flags.Changed("write-timeout") {
		s.WriteTimeout = o.WriteTimeout
	}
	if flags.Changed("metrics") {
		s.Metrics = o.Metrics
	}
	if flags.Changed("tracing") {
		s.Tracing = o.Tracing
	}
}

func runGenerate(cmd *cobra.Command, rootOpts *RootOptions, opts *GenerateOptions, path string) error {
	settings, err := loadSettings(rootOpts)
	if err != nil {
		return report(cmd, ExitCommandError, "load settings", err)
	}
	opts.applyFlags(cmd, &settings)
	if err := settings.Validate(); err != nil {
		return report(cmd, ExitCommandError, "invalid settings", err)
	}

	graph, code, err := compileTemplate(path)
	if err != nil {
		return report(cmd, code, "template "+path, err)
	}

	logger := newLogger(cmd, rootOpts, settings.LogLevel)
	runOpts := settings.RunOptions(logger)
	if opts.RunID != "" {
		runOpts = append(runOpts, epcisgen.WithRunID(opts.RunID))
	}
	clock := time.Now
	if opts.clock != nil {
		clock = opts.clock
		runOpts = append(runOpts, epcisgen.WithClock(opts.clock))
	}

	run, err := graph.NewRun(runOpts...)
	if err != nil {
		return report(cmd, ExitFailure, "start run", err)
	}

	out, closeOut, err := openOutput(cmd, opts.Output)
	if err != nil {
		return report(cmd, ExitCommandError, "open output", err)
	}
	defer closeOut()

	var target sink.Sink
	switch settings.Sink {
	case config.SinkSQLite:
		db, err := sink.NewSQLite(settings.SQLitePath)
		if err != nil {
			return report(cmd, ExitCommandError, "open database", err)
		}
		target = db
	default:
		target = newStreamSink(out, settings.Format == config.FormatDocument, clock())
	}

	drainOpts := []sink.DrainOption{
		sink.WithBatchSize(settings.BatchSize),
		sink.WithWriteTimeout(settings.WriteTimeout),
		sink.WithLogger(logger),
	}
	if settings.Metrics {
		drainOpts = append(drainOpts, sink.WithMetrics(observability.NewMetricsRecorder()))
	}

	written, drainErr := sink.Drain(cmd.Context(), run.Subscribe(), target, run.ID(), drainOpts...)
	closeErr := target.Close()
	if drainErr != nil {
		return report(cmd, ExitFailure, "generate", drainErr)
	}
	if closeErr != nil {
		return report(cmd, ExitCommandError, "close "+target.Name(), closeErr)
	}

	if settings.Sink == config.SinkSQLite {
		stats := run.Stats()
		printResult(out, GenerateResult{
			RunID:  run.ID(),
			Seed:   run.Seed(),
			Events: written,
			Rounds: stats.Rounds,
			Path:   settings.SQLitePath,
		})
	}
	return nil
}

func printResult(w io.Writer, r GenerateResult) {
	fmt.Fprintf(w, "✓ %d events written to %s\n", r.Events, r.Path)
	fmt.Fprintf(w, "  run:    %s\n", r.RunID)
	fmt.Fprintf(w, "  seed:   %d\n", r.Seed)
	fmt.Fprintf(w, "  rounds: %d\n", r.Rounds)
}

// openOutput returns the command's stdout unless a file is named.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// compileTemplate loads and compiles a template. The exit code
// distinguishes unreadable files from invalid templates.
func compileTemplate(path string) (*epcisgen.Graph, int, error) {
	tmpl, err := config.LoadTemplate(path)
	if err != nil {
		return nil, ExitCommandError, err
	}
	graph, err := epcisgen.Compile(tmpl)
	if err != nil {
		return nil, ExitFailure, err
	}
	return graph, ExitSuccess, nil
}

// report writes a summary of err to stderr and returns it as an ExitError.
func report(cmd *cobra.Command, code int, message string, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s: %s\n", message, generrors.Summarize(err))
	exitErr := WrapExitError(code, message, err)
	exitErr.Reported = true
	return exitErr
}
