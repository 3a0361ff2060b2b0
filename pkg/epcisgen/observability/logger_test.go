package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandler captures log records as JSON lines.
type testHandler struct {
	buf   *bytes.Buffer
	level slog.Level
	attrs []slog.Attr
}

func newTestHandler() *testHandler {
	return &testHandler{
		buf:   &bytes.Buffer{},
		level: slog.LevelDebug,
	}
}

func (h *testHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, attr := range h.attrs {
		data[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newH := &testHandler{
		buf:   h.buf,
		level: h.level,
		attrs: make([]slog.Attr, len(h.attrs)+len(attrs)),
	}
	copy(newH.attrs, h.attrs)
	copy(newH.attrs[len(h.attrs):], attrs)
	return newH
}

func (h *testHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *testHandler) getLastRecord() map[string]any {
	lines := bytes.Split(h.buf.Bytes(), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if len(lines[i]) > 0 {
			var m map[string]any
			if err := json.Unmarshal(lines[i], &m); err == nil {
				return m
			}
		}
	}
	return nil
}

func TestEnrichLogger(t *testing.T) {
	t.Run("adds run_id and seed", func(t *testing.T) {
		h := newTestHandler()
		enriched := EnrichLogger(slog.New(h), "run-123", 42)
		enriched.Info("test message")

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "run-123", record["run_id"])
		assert.Equal(t, float64(42), record["seed"])
		assert.Equal(t, "test message", record["msg"])
	})

	t.Run("nil logger returns nil", func(t *testing.T) {
		assert.Nil(t, EnrichLogger(nil, "run-123", 1))
	})
}

func TestLogRunStart(t *testing.T) {
	h := newTestHandler()
	LogRunStart(slog.New(h), "run-456", 2, 5)

	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "generation run starting", record["msg"])
	assert.Equal(t, "run-456", record["run_id"])
	assert.Equal(t, float64(2), record["root_nodes"])
	assert.Equal(t, float64(5), record["event_nodes"])

	assert.NotPanics(t, func() { LogRunStart(nil, "run", 0, 0) })
}

func TestLogRunComplete(t *testing.T) {
	h := newTestHandler()
	LogRunComplete(slog.New(h), "run-789", 123.5, 40, 2)

	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "generation run completed", record["msg"])
	assert.Equal(t, 123.5, record["duration_ms"])
	assert.Equal(t, float64(40), record["events"])
	assert.Equal(t, float64(2), record["rounds"])

	assert.NotPanics(t, func() { LogRunComplete(nil, "run", 0, 0, 0) })
}

func TestLogRunError(t *testing.T) {
	h := newTestHandler()
	LogRunError(slog.New(h), "run-err", errors.New("bad gtin"), 50.0, 3)

	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "generation run failed", record["msg"])
	assert.Equal(t, "bad gtin", record["error"])
	assert.Equal(t, float64(3), record["node_id"])

	assert.NotPanics(t, func() { LogRunError(nil, "run", errors.New("x"), 0, 0) })
}

func TestLogNodeProduced(t *testing.T) {
	h := newTestHandler()
	LogNodeProduced(slog.New(h), 2, "AggregationEvent", 1, 3)

	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "DEBUG", record["level"])
	assert.Equal(t, "AggregationEvent", record["event_type"])
	assert.Equal(t, float64(1), record["round"])
	assert.Equal(t, float64(3), record["events"])
}

func TestLogJoinAbandoned(t *testing.T) {
	h := newTestHandler()
	LogJoinAbandoned(slog.New(h), 4, 2)

	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, float64(4), record["node_id"])
	assert.Equal(t, float64(2), record["pending"])
}

func TestLogSinkError(t *testing.T) {
	h := newTestHandler()
	LogSinkError(slog.New(h), "sqlite", errors.New("disk full"))

	record := h.getLastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "sqlite", record["sink"])
	assert.Equal(t, "disk full", record["error"])

	assert.NotPanics(t, func() { LogSinkError(nil, "memory", errors.New("x")) })
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	assert.GreaterOrEqual(t, done(), 0.0)
}
