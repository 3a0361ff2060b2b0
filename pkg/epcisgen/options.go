package epcisgen

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/observability"
)

// runConfig holds configuration for one generation run.
type runConfig struct {
	seed    *int64
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	clock   func() time.Time
	runID   string
	baseURL string
}

// defaultRunConfig returns the default run configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		clock:   time.Now,
	}
}

// RunOption configures a generation run.
type RunOption func(*runConfig)

// WithSeed seeds the run's serial allocator. It takes precedence over the
// template's randomSeed. Runs with the same seed and template produce
// identical events, provided the clock is fixed as well (see WithClock).
//
// Example:
//
//	run, err := graph.NewRun(epcisgen.WithSeed(42))
func WithSeed(seed int64) RunOption {
	return func(c *runConfig) {
		c.seed = &seed
	}
}

// WithLogger sets the run logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics enables OpenTelemetry metrics for the run.
func WithMetrics(enabled bool) RunOption {
	return func(c *runConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables OpenTelemetry spans for the run and each production step.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithClock sets the time source for events without a configured event
// time. Default: time.Now.
func WithClock(clock func() time.Time) RunOption {
	return func(c *runConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithRunID sets the run id used in logs and spans. Default: a random UUID.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithDigitalLinkBase sets the resolver base for identifier nodes that do
// not declare their own. Default: identifier.DefaultDigitalLinkBase.
func WithDigitalLinkBase(base string) RunOption {
	return func(c *runConfig) {
		c.baseURL = base
	}
}
