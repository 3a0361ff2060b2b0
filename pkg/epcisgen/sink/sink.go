// Package sink stores generated events.
package sink

import (
	"context"
	"errors"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen/epcis"
)

// Sink receives batches of events from a run.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Name identifies the sink in logs, metrics and errors.
	Name() string

	// Write appends events for a run, preserving order. A batch is
	// written completely or not at all.
	Write(ctx context.Context, runID string, events []*epcis.Event) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for sink operations.
var (
	// ErrSinkClosed indicates the sink has been closed.
	ErrSinkClosed = errors.New("sink closed")

	// ErrRunNotFound indicates no events were stored for a run.
	ErrRunNotFound = errors.New("run not found")
)
