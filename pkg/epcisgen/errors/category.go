// Package errors classifies generator errors and turns them into the
// single aggregated message the command line prints.
//
// The package implements a layered approach:
//   - Categorization: configuration, format, cancelled, transient or internal
//   - Summaries: one line per underlying problem of a joined error
//   - Retry: transient sink failures with exponential backoff
package errors

import (
	"context"
	"errors"
	"fmt"

	"github.com/randalmurphal/epcisgen/pkg/epcisgen"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/identifier"
	"github.com/randalmurphal/epcisgen/pkg/epcisgen/serial"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryConfiguration indicates a template that must be fixed.
	// Examples: unknown node ids, missing serial parameters, cycles.
	CategoryConfiguration Category = iota

	// CategoryFormat indicates an identifier that cannot be encoded.
	// Examples: wrong digit counts, serials overflowing a fixed length.
	CategoryFormat

	// CategoryCancelled indicates the caller stopped the run.
	CategoryCancelled

	// CategoryTransient indicates retry will likely help.
	// Examples: a busy database, a timed out write.
	CategoryTransient

	// CategoryInternal indicates anything else.
	CategoryInternal
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryConfiguration:
		return "configuration"
	case CategoryFormat:
		return "format"
	case CategoryCancelled:
		return "cancelled"
	case CategoryTransient:
		return "transient"
	case CategoryInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Retries is the number of attempts that have been made.
	Retries int

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Retries)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)",
		e.Err, e.Category, e.Retries)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorized creates a new categorized error.
func NewCategorized(err error, category Category, context string) *CategorizedError {
	return &CategorizedError{
		Err:      err,
		Category: category,
		Context:  context,
	}
}

// Transient creates a transient error.
func Transient(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryTransient, context)
}

// Internal creates an internal error.
func Internal(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryInternal, context)
}

// formatErrors are identifier encoding failures.
var formatErrors = []error{
	identifier.ErrInvalidValue,
	identifier.ErrInvalidPrefix,
	identifier.ErrOverflow,
}

// configErrors are template mistakes.
var configErrors = []error{
	epcisgen.ErrEmptyTemplate,
	epcisgen.ErrUnknownNode,
	epcisgen.ErrUnknownIdentifier,
	epcisgen.ErrDuplicateID,
	epcisgen.ErrCycle,
	epcisgen.ErrUnsatisfiableJoin,
	epcisgen.ErrInvalidReference,
	epcisgen.ErrInvalidNode,
	identifier.ErrUnknownKind,
	identifier.ErrUnsupportedRole,
	identifier.ErrMissingSpec,
	identifier.ErrInvalidSyntax,
	serial.ErrMissingParameter,
	serial.ErrInvalidParameter,
	serial.ErrUnknownType,
}

// Categorize determines how an error should be handled. Cancellation
// wins over everything else, then format errors, then configuration.
func Categorize(err error) Category {
	if err == nil {
		return CategoryInternal
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	var cancelErr *epcisgen.CancellationError
	if errors.As(err, &cancelErr) ||
		errors.Is(err, epcisgen.ErrCancelled) ||
		errors.Is(err, context.Canceled) {
		return CategoryCancelled
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}

	for _, target := range formatErrors {
		if errors.Is(err, target) {
			return CategoryFormat
		}
	}

	var cfgErr *epcisgen.ConfigError
	if errors.As(err, &cfgErr) {
		return CategoryConfiguration
	}
	for _, target := range configErrors {
		if errors.Is(err, target) {
			return CategoryConfiguration
		}
	}

	return CategoryInternal
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}

// IsConfiguration reports whether the template needs fixing.
func IsConfiguration(err error) bool {
	cat := Categorize(err)
	return cat == CategoryConfiguration || cat == CategoryFormat
}
