package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records generation metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordEvents records events produced by a node.
	RecordEvents(ctx context.Context, nodeID int, eventType string, count int)

	// RecordIdentifiers records identifiers formatted for a kind.
	RecordIdentifiers(ctx context.Context, kind string, count int)

	// RecordStep records one production step.
	RecordStep(ctx context.Context, round int, duration time.Duration)

	// RecordRun records a run that exhausted or failed.
	RecordRun(ctx context.Context, success bool, duration time.Duration)

	// RecordSinkWrite records events written to a sink.
	RecordSinkWrite(ctx context.Context, sink string, count int, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	events      metric.Int64Counter
	identifiers metric.Int64Counter
	stepLatency metric.Float64Histogram
	runs        metric.Int64Counter
	runLatency  metric.Float64Histogram
	sinkWrites  metric.Int64Counter
	sinkErrors  metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily initializes the default OTel metrics.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("epcisgen")

	events, err := meter.Int64Counter("epcisgen.events",
		metric.WithDescription("Number of events produced"),
	)
	if err != nil {
		return nil, err
	}

	identifiers, err := meter.Int64Counter("epcisgen.identifiers",
		metric.WithDescription("Number of identifiers formatted"),
	)
	if err != nil {
		return nil, err
	}

	stepLatency, err := meter.Float64Histogram("epcisgen.step.latency_ms",
		metric.WithDescription("Production step latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter("epcisgen.runs",
		metric.WithDescription("Number of finished generation runs"),
	)
	if err != nil {
		return nil, err
	}

	runLatency, err := meter.Float64Histogram("epcisgen.run.latency_ms",
		metric.WithDescription("Generation run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	sinkWrites, err := meter.Int64Counter("epcisgen.sink.writes",
		metric.WithDescription("Number of events written to sinks"),
	)
	if err != nil {
		return nil, err
	}

	sinkErrors, err := meter.Int64Counter("epcisgen.sink.errors",
		metric.WithDescription("Number of failed sink writes"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		events:      events,
		identifiers: identifiers,
		stepLatency: stepLatency,
		runs:        runs,
		runLatency:  runLatency,
		sinkWrites:  sinkWrites,
		sinkErrors:  sinkErrors,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordEvents(ctx context.Context, nodeID int, eventType string, count int) {
	m.events.Add(ctx, int64(count), metric.WithAttributes(
		attribute.Int("node_id", nodeID),
		attribute.String("event_type", eventType),
	))
}

func (m *otelMetrics) RecordIdentifiers(ctx context.Context, kind string, count int) {
	if count <= 0 {
		return
	}
	m.identifiers.Add(ctx, int64(count), metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *otelMetrics) RecordStep(ctx context.Context, round int, duration time.Duration) {
	m.stepLatency.Record(ctx, float64(duration.Milliseconds()),
		metric.WithAttributes(attribute.Int("round", round)))
}

func (m *otelMetrics) RecordRun(ctx context.Context, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.runs.Add(ctx, 1, attrs)
	m.runLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (m *otelMetrics) RecordSinkWrite(ctx context.Context, sink string, count int, err error) {
	attrs := metric.WithAttributes(attribute.String("sink", sink))
	if err != nil {
		m.sinkErrors.Add(ctx, 1, attrs)
		return
	}
	m.sinkWrites.Add(ctx, int64(count), attrs)
}
