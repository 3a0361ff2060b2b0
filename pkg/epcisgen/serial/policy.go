// Package serial allocates serial numbers for identifiers.
//
// Three policies are supported:
//   - range: consecutive decimal values starting at RangeFrom
//   - random: strings of random length drawn from an alphabet
//   - static (or none): a single configured value
//
// All randomness comes from an Allocator, which wraps a seeded Mersenne
// Twister. One Allocator is created per generation run and threaded through
// every codec call, so a fixed seed reproduces the same serials.
package serial

import (
	"errors"
	"fmt"
)

// Type selects the allocation policy.
type Type string

const (
	// TypeRange allocates consecutive decimal values.
	TypeRange Type = "range"
	// TypeRandom allocates random strings from an alphabet.
	TypeRandom Type = "random"
	// TypeStatic returns the configured Value.
	TypeStatic Type = "static"
	// TypeNone is treated like TypeStatic.
	TypeNone Type = "none"
)

// Alphabet selects the character set for random serials.
type Alphabet string

const (
	Numeric      Alphabet = "numeric"
	Alphanumeric Alphabet = "alphanumeric"
	URLSafe      Alphabet = "urlsafe"
)

const (
	numericChars      = "0123456789"
	alphanumericChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	urlSafeChars      = alphanumericChars + "-._~"
)

// Sentinel errors for policy configuration.
var (
	// ErrMissingParameter indicates a policy lacks a parameter its type requires.
	ErrMissingParameter = errors.New("missing serial policy parameter")

	// ErrInvalidParameter indicates a policy parameter is out of range.
	ErrInvalidParameter = errors.New("invalid serial policy parameter")

	// ErrUnknownType indicates an unrecognised policy type.
	ErrUnknownType = errors.New("unknown serial policy type")
)

// Policy describes how serials are allocated for one identifier spec.
//
// RangeFrom is mutable state: every range allocation advances it by the
// number of values handed out, so two calls never return overlapping ranges.
type Policy struct {
	Type      Type     `yaml:"serialType,omitempty" json:"serialType,omitempty"`
	RangeFrom *int64   `yaml:"rangeFrom,omitempty" json:"rangeFrom,omitempty"`
	MinLength *int     `yaml:"randomMinLength,omitempty" json:"randomMinLength,omitempty"`
	MaxLength *int     `yaml:"randomMaxLength,omitempty" json:"randomMaxLength,omitempty"`
	Alphabet  Alphabet `yaml:"randomType,omitempty" json:"randomType,omitempty"`
	Value     string   `yaml:"serial,omitempty" json:"serial,omitempty"`
}

// Range returns a range policy starting at from.
func Range(from int64) Policy {
	return Policy{Type: TypeRange, RangeFrom: &from}
}

// Random returns a random policy with lengths in [minLen, maxLen].
func Random(minLen, maxLen int, alphabet Alphabet) Policy {
	return Policy{Type: TypeRandom, MinLength: &minLen, MaxLength: &maxLen, Alphabet: alphabet}
}

// Static returns a policy that always yields value.
func Static(value string) Policy {
	return Policy{Type: TypeStatic, Value: value}
}

// Clone returns a deep copy so range cursors are not shared.
func (p Policy) Clone() Policy {
	c := p
	if p.RangeFrom != nil {
		v := *p.RangeFrom
		c.RangeFrom = &v
	}
	if p.MinLength != nil {
		v := *p.MinLength
		c.MinLength = &v
	}
	if p.MaxLength != nil {
		v := *p.MaxLength
		c.MaxLength = &v
	}
	return c
}

// IsStatic reports whether the policy yields a fixed value.
func (p Policy) IsStatic() bool {
	return p.Type == "" || p.Type == TypeStatic || p.Type == TypeNone
}

// Numeric reports whether every serial the policy can produce is decimal.
func (p Policy) Numeric() bool {
	switch {
	case p.Type == TypeRange:
		return true
	case p.Type == TypeRandom:
		return p.Alphabet == Numeric
	default:
		for _, c := range p.Value {
			if c < '0' || c > '9' {
				return false
			}
		}
		return true
	}
}

// Validate checks that the parameters required by the policy type are set.
// A static policy without a value is valid here; it only fails when a
// non-zero count is requested.
func (p Policy) Validate() error {
	switch {
	case p.Type == TypeRange:
		if p.RangeFrom == nil {
			return fmt.Errorf("%w: range policy requires rangeFrom", ErrMissingParameter)
		}
		if *p.RangeFrom < 0 {
			return fmt.Errorf("%w: rangeFrom must not be negative, got %d", ErrInvalidParameter, *p.RangeFrom)
		}
	case p.Type == TypeRandom:
		if p.MinLength == nil || p.MaxLength == nil {
			return fmt.Errorf("%w: random policy requires randomMinLength and randomMaxLength", ErrMissingParameter)
		}
		if *p.MinLength < 1 {
			return fmt.Errorf("%w: randomMinLength must be at least 1, got %d", ErrInvalidParameter, *p.MinLength)
		}
		if *p.MaxLength < *p.MinLength {
			return fmt.Errorf("%w: randomMaxLength %d is less than randomMinLength %d",
				ErrInvalidParameter, *p.MaxLength, *p.MinLength)
		}
		if _, err := p.Alphabet.chars(); err != nil {
			return err
		}
	case p.IsStatic():
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, p.Type)
	}
	return nil
}

// MaxLen returns the longest serial the policy can produce for count values.
// For range policies this is the digit count of the last value.
func (p Policy) MaxLen(count int) int {
	switch {
	case p.Type == TypeRange && p.RangeFrom != nil:
		last := *p.RangeFrom + int64(count) - 1
		if last < *p.RangeFrom {
			last = *p.RangeFrom
		}
		return len(fmt.Sprint(last))
	case p.Type == TypeRandom && p.MaxLength != nil:
		return *p.MaxLength
	default:
		return len(p.Value)
	}
}

func (a Alphabet) chars() (string, error) {
	switch a {
	case Numeric:
		return numericChars, nil
	case Alphanumeric, "":
		return alphanumericChars, nil
	case URLSafe:
		return urlSafeChars, nil
	default:
		return "", fmt.Errorf("%w: unknown alphabet %q", ErrInvalidParameter, a)
	}
}
