package sink

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen"
	generrors "github.com/randalmurphal/epcisgen/pkg/epcisgen/errors"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/observability"
)

// DefaultBatchSize is the number of events requested per write.
const DefaultBatchSize = 100

type drainConfig struct {
	batchSize    int
	writeTimeout time.Duration
	retry        generrors.RetryPolicy
	logger       *slog.Logger
	metrics      observability.MetricsRecorder
}

// DrainOption configures Drain.
type DrainOption func(*drainConfig)

// WithBatchSize sets how many events are requested per write.
// Values below 1 are ignored.
func WithBatchSize(n int) DrainOption {
	return func(c *drainConfig) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithWriteTimeout bounds each write attempt. Zero means no bound.
func WithWriteTimeout(d time.Duration) DrainOption {
	return func(c *drainConfig) {
		c.writeTimeout = d
	}
}

// WithRetry sets the retry policy for failed writes.
func WithRetry(p generrors.RetryPolicy) DrainOption {
	return func(c *drainConfig) {
		c.retry = p
	}
}

// WithLogger sets the logger for write failures and retries.
func WithLogger(logger *slog.Logger) DrainOption {
	return func(c *drainConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the recorder for sink writes.
func WithMetrics(m observability.MetricsRecorder) DrainOption {
	return func(c *drainConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// Drain pulls every remaining event from sub and writes it to s in
// batches, returning the number of events written. It stops at the first
// run error or failed write; events of a failed batch are not counted.
// Transient write failures are retried.
func Drain(ctx context.Context, sub *epcisgen.Subscription, s Sink, runID string, opts ...DrainOption) (int, error) {
	cfg := drainConfig{
		batchSize: DefaultBatchSize,
		retry:     generrors.DefaultRetry,
		logger:    slog.Default(),
		metrics:   observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	retry := cfg.retry
	retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		cfg.logger.Debug("retrying sink write",
			slog.String("sink", s.Name()),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	}

	written := 0
	for {
		batch, runErr := sub.Request(ctx, cfg.batchSize)
		if len(batch) > 0 {
			_, err := generrors.Retry(ctx, retry, func(ctx context.Context) error {
				if cfg.writeTimeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, cfg.writeTimeout)
					defer cancel()
				}
				return s.Write(ctx, runID, batch)
			})
			cfg.metrics.RecordSinkWrite(ctx, s.Name(), len(batch), err)
			if err != nil {
				observability.LogSinkError(cfg.logger, s.Name(), err)
				return written, &generrors.SinkError{Sink: s.Name(), Op: "write", Err: err}
			}
			written += len(batch)
		}

		switch {
		case errors.Is(runErr, epcisgen.ErrExhausted):
			return written, nil
		case runErr != nil:
			return written, runErr
		}
	}
}
