package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/identifier"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/serial"
)

func TestCategoryString(t *testing.T) {
	tests := []struct {
		category Category
		expected string
	}{
		{CategoryConfiguration, "configuration"},
		{CategoryFormat, "format"},
		{CategoryCancelled, "cancelled"},
		{CategoryTransient, "transient"},
		{CategoryInternal, "internal"},
		{Category(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.category.String(); got != tt.expected {
				t.Errorf("Category(%d).String() = %s, want %s", tt.category, got, tt.expected)
			}
		})
	}
}

func TestCategorize(t *testing.T) {
	production := &epcisgen.ProductionError{NodeID: 1, Round: 2, Err: fmt.Errorf("identifier 1: %w", identifier.ErrOverflow)}

	tests := []struct {
		name     string
		err      error
		expected Category
	}{
		{"nil error", nil, CategoryInternal},
		{"config error", &epcisgen.ConfigError{NodeID: 1, Err: errors.New("bad")}, CategoryConfiguration},
		{"unknown node", fmt.Errorf("%w: 7", epcisgen.ErrUnknownNode), CategoryConfiguration},
		{"missing serial parameter", serial.ErrMissingParameter, CategoryConfiguration},
		{"unknown kind", identifier.ErrUnknownKind, CategoryConfiguration},
		{"config error wrapping format", &epcisgen.ConfigError{IdentifierID: 1, Err: identifier.ErrInvalidValue}, CategoryFormat},
		{"production overflow", production, CategoryFormat},
		{"cancellation", &epcisgen.CancellationError{Round: 3, Cause: context.Canceled}, CategoryCancelled},
		{"cancelled subscription", epcisgen.ErrCancelled, CategoryCancelled},
		{"deadline", context.DeadlineExceeded, CategoryTransient},
		{"timeout", &TimeoutError{Operation: "insert", Duration: "5s"}, CategoryTransient},
		{"categorized", Transient(errors.New("busy"), "insert"), CategoryTransient},
		{"sink error wrapping transient", &SinkError{Sink: "sqlite", Op: "insert", Err: Transient(errors.New("locked"), "")}, CategoryTransient},
		{"unknown error", errors.New("unknown"), CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Categorize(tt.err); got != tt.expected {
				t.Errorf("Categorize() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestIsConfiguration(t *testing.T) {
	if !IsConfiguration(epcisgen.ErrCycle) {
		t.Error("cycle should be a configuration error")
	}
	if !IsConfiguration(identifier.ErrOverflow) {
		t.Error("overflow should be a configuration error")
	}
	if IsConfiguration(context.Canceled) {
		t.Error("cancellation is not a configuration error")
	}
}

func TestCategorizedError(t *testing.T) {
	t.Run("error message with context", func(t *testing.T) {
		err := NewCategorized(errors.New("failed"), CategoryTransient, "insert")
		expected := "insert: failed (category: transient, attempts: 0)"
		if got := err.Error(); got != expected {
			t.Errorf("Error() = %q, want %q", got, expected)
		}
	})

	t.Run("error message without context", func(t *testing.T) {
		err := Internal(errors.New("failed"), "")
		expected := "failed (category: internal, attempts: 0)"
		if got := err.Error(); got != expected {
			t.Errorf("Error() = %q, want %q", got, expected)
		}
	})

	t.Run("unwrap", func(t *testing.T) {
		inner := errors.New("inner")
		if !errors.Is(Transient(inner, "x"), inner) {
			t.Error("expected errors.Is to find inner error")
		}
	})
}

func TestSummarize(t *testing.T) {
	if got := Summarize(nil); got != "" {
		t.Errorf("Summarize(nil) = %q, want empty", got)
	}

	single := &epcisgen.ConfigError{NodeID: 2, Field: "eventCount", Err: epcisgen.ErrInvalidNode}
	if got, want := Summarize(single), "[configuration] event node 2 eventCount: invalid event node"; got != want {
		t.Errorf("Summarize(single) = %q, want %q", got, want)
	}

	joined := errors.Join(
		&epcisgen.ConfigError{NodeID: 2, Field: "parentNodeId", Err: fmt.Errorf("%w: 9", epcisgen.ErrUnknownNode)},
		errors.Join(
			&epcisgen.ConfigError{IdentifierID: 1, Kind: "SGTIN", Field: "instanceData", Err: identifier.ErrInvalidValue},
		),
	)
	got := Summarize(joined)
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("Summarize(joined) = %q, want 3 lines", got)
	}
	if lines[0] != "2 problems:" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  - [configuration] event node 2 parentNodeId") {
		t.Errorf("line 1 = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "  - [format] identifier 1 SGTIN instanceData") {
		t.Errorf("line 2 = %q", lines[2])
	}
}

func TestSummarize_RunFailureIsOneProblem(t *testing.T) {
	g, err := epcisgen.Compile(&epcisgen.Template{
		Identifiers: []identifier.Node{{
			ID: 1,
			Instance: &identifier.Spec{
				Kind: identifier.SSCC, Value: "0952198", GCPLength: 6,
				Policy: serial.Range(9999999999),
			},
		}},
		Events: []epcisgen.EventNode{{
			NodeID: 1, EventType: "ObjectEvent", EventCount: 2,
			ReferencedIdentifiers: []epcisgen.Reference{epcisgen.FromIdentifier(1, 1, 0)},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = g.Generate(context.Background(), epcisgen.WithSeed(1))
	if !errors.Is(err, epcisgen.ErrRunFailed) {
		t.Fatalf("expected ErrRunFailed, got %v", err)
	}
	if n := len(Flatten(err)); n != 1 {
		t.Errorf("Flatten() = %d errors, want 1", n)
	}
	if got := Summarize(err); !strings.HasPrefix(got, "[format] generation run failed") {
		t.Errorf("Summarize() = %q", got)
	}
}

func TestByCategory(t *testing.T) {
	joined := errors.Join(epcisgen.ErrCycle, identifier.ErrOverflow, epcisgen.ErrUnknownNode)
	groups := ByCategory(joined)
	if len(groups[CategoryConfiguration]) != 2 {
		t.Errorf("configuration = %d, want 2", len(groups[CategoryConfiguration]))
	}
	if len(groups[CategoryFormat]) != 1 {
		t.Errorf("format = %d, want 1", len(groups[CategoryFormat]))
	}
}

func TestRetry_Success(t *testing.T) {
	calls := 0
	attempts, err := Retry(context.Background(), NoRetry, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil || attempts != 1 || calls != 1 {
		t.Errorf("attempts = %d, err = %v after %d calls", attempts, err, calls)
	}
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	p := RetryPolicy{Attempts: 3, Backoff: time.Millisecond}
	var retried []int
	p.OnRetry = func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) }

	calls := 0
	attempts, err := Retry(context.Background(), p, func(context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("database is locked"), "insert")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if fmt.Sprint(retried) != "[1 2]" {
		t.Errorf("OnRetry attempts = %v, want [1 2]", retried)
	}
}

func TestRetry_PermanentStops(t *testing.T) {
	p := RetryPolicy{Attempts: 5, Backoff: time.Millisecond}
	calls := 0
	_, err := Retry(context.Background(), p, func(context.Context) error {
		calls++
		return epcisgen.ErrUnknownNode
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	var catErr *CategorizedError
	if !errors.As(err, &catErr) || catErr.Category != CategoryConfiguration {
		t.Errorf("err = %v, want configuration CategorizedError", err)
	}
	if !errors.Is(err, epcisgen.ErrUnknownNode) {
		t.Errorf("err = %v does not wrap ErrUnknownNode", err)
	}
}

func TestRetry_Exhausted(t *testing.T) {
	p := RetryPolicy{Attempts: 2, Backoff: time.Millisecond, MaxBackoff: time.Millisecond}
	attempts, err := Retry(context.Background(), p, func(context.Context) error {
		return &TimeoutError{Operation: "insert", Duration: "1ms"}
	})
	var catErr *CategorizedError
	if !errors.As(err, &catErr) {
		t.Fatalf("err = %v, want CategorizedError", err)
	}
	if catErr.Context != "retries exhausted" || catErr.Retries != 2 || attempts != 2 {
		t.Errorf("unexpected error %+v after %d attempts", catErr, attempts)
	}
	if !IsRetryable(err) {
		t.Error("exhausted transient error should stay transient")
	}
}

func TestRetry_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts, err := Retry(ctx, DefaultRetry, func(context.Context) error {
		t.Fatal("fn must not run")
		return nil
	})
	if Categorize(err) != CategoryCancelled {
		t.Errorf("category = %s, want cancelled", Categorize(err))
	}
	if attempts != 0 {
		t.Errorf("attempts = %d, want 0", attempts)
	}
}

func TestRetry_CancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{Attempts: 3, Backoff: time.Hour}
	p.OnRetry = func(int, error, time.Duration) { cancel() }

	attempts, err := Retry(ctx, p, func(context.Context) error {
		return Transient(errors.New("busy"), "insert")
	})
	if Categorize(err) != CategoryCancelled || attempts != 1 {
		t.Errorf("attempts = %d, err = %v", attempts, err)
	}
}

func TestRetryPolicyWait(t *testing.T) {
	p := RetryPolicy{Backoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if got := p.wait(i + 1); got != w {
			t.Errorf("wait(%d) = %v, want %v", i+1, got, w)
		}
	}

	p.Jitter = 0.5
	for range 20 {
		got := p.wait(1)
		if got < 50*time.Millisecond || got > 150*time.Millisecond {
			t.Errorf("jitter out of range: %v", got)
		}
	}
}
