package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen"
)

// Output formats.
const (
	// FormatDocument writes one EPCIS 2.0 JSON document.
	FormatDocument = "document"
	// FormatLines writes one JSON event per line.
	FormatLines = "jsonl"
)

// Sinks.
const (
	SinkStdout = "stdout"
	SinkSQLite = "sqlite"
)

// ErrInvalidSettings is returned by Settings.Validate.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings controls a generation run from the command line. Zero values
// mean "use the default".
type Settings struct {
	// Seed overrides the template's randomSeed when set.
	Seed *int64

	// DigitalLinkBase is the resolver for identifier nodes without dlURL.
	DigitalLinkBase string

	LogLevel slog.Level

	// Format is FormatDocument or FormatLines.
	Format string

	// Sink is SinkStdout or SinkSQLite.
	Sink string

	// SQLitePath is the database file for SinkSQLite.
	SQLitePath string

	// BatchSize is how many events are requested from the run per sink write.
	BatchSize int

	// WriteTimeout bounds one sink write.
	WriteTimeout time.Duration

	Metrics bool
	Tracing bool
}

// DefaultSettings returns the defaults used when no settings file is given.
func DefaultSettings() Settings {
	return Settings{
		LogLevel:     slog.LevelInfo,
		Format:       FormatDocument,
		Sink:         SinkStdout,
		SQLitePath:   "epcis.db",
		BatchSize:    100,
		WriteTimeout: 10 * time.Second,
	}
}

// Settings extracts run settings from c, starting from DefaultSettings.
//
// Recognized keys: seed, digitalLinkBase, logLevel, format, sink,
// sqlitePath, batchSize, writeTimeout, metrics, tracing.
func (c Config) Settings() (Settings, error) {
	s := DefaultSettings()

	if c.Has("seed") {
		v, ok := c.int64("seed")
		if !ok {
			return s, fmt.Errorf("%w: seed must be an integer", ErrInvalidSettings)
		}
		s.Seed = &v
	}
	s.DigitalLinkBase = c.String("digitalLinkBase", s.DigitalLinkBase)
	if lvl := c.String("logLevel", ""); lvl != "" {
		if err := s.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			return s, fmt.Errorf("%w: logLevel: %w", ErrInvalidSettings, err)
		}
	}
	s.Format = strings.ToLower(c.String("format", s.Format))
	s.Sink = strings.ToLower(c.String("sink", s.Sink))
	s.SQLitePath = c.String("sqlitePath", s.SQLitePath)
	s.BatchSize = c.Int("batchSize", s.BatchSize)
	s.WriteTimeout = c.Duration("writeTimeout", s.WriteTimeout)
	s.Metrics = c.Bool("metrics", s.Metrics)
	s.Tracing = c.Bool("tracing", s.Tracing)

	return s, s.Validate()
}

// Validate checks enumerated values and bounds.
func (s Settings) Validate() error {
	var errs []error
	switch s.Format {
	case FormatDocument, FormatLines:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown format %q", ErrInvalidSettings, s.Format))
	}
	switch s.Sink {
	case SinkStdout:
	case SinkSQLite:
		if s.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("%w: sqlite sink needs sqlitePath", ErrInvalidSettings))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown sink %q", ErrInvalidSettings, s.Sink))
	}
	if s.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: batchSize must be positive, got %d", ErrInvalidSettings, s.BatchSize))
	}
	return errors.Join(errs...)
}

// RunOptions converts the settings into options for Graph.NewRun.
func (s Settings) RunOptions(logger *slog.Logger) []epcisgen.RunOption {
	opts := []epcisgen.RunOption{
		epcisgen.WithLogger(logger),
		epcisgen.WithMetrics(s.Metrics),
		epcisgen.WithTracing(s.Tracing),
	}
	if s.Seed != nil {
		opts = append(opts, epcisgen.WithSeed(*s.Seed))
	}
	if s.DigitalLinkBase != "" {
		opts = append(opts, epcisgen.WithDigitalLinkBase(s.DigitalLinkBase))
	}
	return opts
}
