// Package observability provides structured logging, metrics and tracing
// for generation runs.
//
// Features:
//   - Structured logging via slog
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds run context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "run-123", 42)
//	enriched.Info("step done") // includes run_id and seed
func EnrichLogger(logger *slog.Logger, runID string, seed int64) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.Int64("seed", seed),
	)
}

// LogRunStart logs the start of a generation run.
func LogRunStart(logger *slog.Logger, runID string, roots, nodes int) {
	if logger == nil {
		return
	}
	logger.Info("generation run starting",
		slog.String("run_id", runID),
		slog.Int("root_nodes", roots),
		slog.Int("event_nodes", nodes),
	)
}

// LogRunComplete logs an exhausted run.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, events, rounds int) {
	if logger == nil {
		return
	}
	logger.Info("generation run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("events", events),
		slog.Int("rounds", rounds),
	)
}

// LogRunError logs a run aborted by a production error.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, nodeID int) {
	if logger == nil {
		return
	}
	logger.Error("generation run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.Int("node_id", nodeID),
	)
}

// LogNodeProduced logs the events one node emitted in a round.
func LogNodeProduced(logger *slog.Logger, nodeID int, eventType string, round, count int) {
	if logger == nil {
		return
	}
	logger.Debug("node produced",
		slog.Int("node_id", nodeID),
		slog.String("event_type", eventType),
		slog.Int("round", round),
		slog.Int("events", count),
	)
}

// LogJoinAbandoned logs buffered upstream events a join node never consumed
// because another upstream ran out of budget.
func LogJoinAbandoned(logger *slog.Logger, nodeID int, pending int) {
	if logger == nil {
		return
	}
	logger.Warn("join abandoned with buffered upstream events",
		slog.Int("node_id", nodeID),
		slog.Int("pending", pending),
	)
}

// LogSinkError logs a failed sink write.
func LogSinkError(logger *slog.Logger, sink string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("sink write failed",
		slog.String("sink", sink),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
