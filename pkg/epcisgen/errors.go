package epcisgen

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for template validation (Compile).
var (
	// ErrEmptyTemplate indicates a template without event nodes.
	ErrEmptyTemplate = errors.New("template has no event nodes")

	// ErrUnknownNode indicates a reference to an event node id that does not exist.
	ErrUnknownNode = errors.New("unknown event node")

	// ErrUnknownIdentifier indicates a reference to an identifier node id that does not exist.
	ErrUnknownIdentifier = errors.New("unknown identifier node")

	// ErrDuplicateID indicates two nodes sharing an id.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrCycle indicates event nodes that depend on each other.
	ErrCycle = errors.New("dependency cycle")

	// ErrUnsatisfiableJoin indicates a node waiting on an upstream that can never produce.
	ErrUnsatisfiableJoin = errors.New("join can never be satisfied")

	// ErrInvalidReference indicates a malformed or misplaced identifier reference.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrInvalidNode indicates an event node field with an invalid value.
	ErrInvalidNode = errors.New("invalid event node")
)

// Sentinel errors for generation.
var (
	// ErrExhausted is returned once every root node has spent its budget
	// and the subscription's queue is drained.
	ErrExhausted = errors.New("event stream exhausted")

	// ErrCancelled is returned by a cancelled subscription.
	ErrCancelled = errors.New("subscription cancelled")

	// ErrRunFailed is returned to every subscription after a production
	// step failed.
	ErrRunFailed = errors.New("generation run failed")
)

// ConfigError describes one template problem found by Compile. NodeID and
// IdentifierID are 0 when the problem is not tied to that kind of node.
type ConfigError struct {
	NodeID       int
	IdentifierID int
	// Kind is the identifier type involved, if any.
	Kind string
	// Field is the template field at fault.
	Field string
	Err   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	var parts []string
	if e.NodeID != 0 {
		parts = append(parts, fmt.Sprintf("event node %d", e.NodeID))
	}
	if e.IdentifierID != 0 {
		parts = append(parts, fmt.Sprintf("identifier %d", e.IdentifierID))
	}
	if e.Kind != "" {
		parts = append(parts, e.Kind)
	}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	if len(parts) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ProductionError wraps an error raised while building an event.
type ProductionError struct {
	NodeID int
	Round  int
	Err    error
}

// Error implements the error interface.
func (e *ProductionError) Error() string {
	return fmt.Sprintf("event node %d, round %d: %v", e.NodeID, e.Round, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ProductionError) Unwrap() error {
	return e.Err
}

// CancellationError is returned when a consumer's context ends before the
// next production step.
type CancellationError struct {
	// Round is the last completed production step.
	Round int
	// Cause is context.Canceled or context.DeadlineExceeded.
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled after round %d: %v", e.Round, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// runFailure pairs ErrRunFailed with the production error that caused it.
type runFailure struct {
	cause error
}

func (e *runFailure) Error() string {
	return fmt.Sprintf("%v: %v", ErrRunFailed, e.cause)
}

func (e *runFailure) Unwrap() error {
	return e.cause
}

func (e *runFailure) Is(target error) bool {
	return target == ErrRunFailed
}
