package errors

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds how often a failed sink write is repeated. Only
// transient errors (see Categorize) are retried.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// Backoff is the first wait. It doubles after every failed attempt
	// up to MaxBackoff (0 means unbounded).
	Backoff    time.Duration
	MaxBackoff time.Duration

	// Jitter spreads each wait by up to ±Jitter of its length (0.0-1.0).
	Jitter float64

	// OnRetry, if set, is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultRetry is the policy for sink writes.
var DefaultRetry = RetryPolicy{
	Attempts:   3,
	Backoff:    50 * time.Millisecond,
	MaxBackoff: 2 * time.Second,
	Jitter:     0.1,
}

// NoRetry tries once.
var NoRetry = RetryPolicy{Attempts: 1}

// Retry calls fn until it succeeds, fails permanently or runs out of
// attempts, and returns the number of calls made. A failure comes back as
// a *CategorizedError carrying the attempt count; cancellation of ctx
// before a call or during a wait is CategoryCancelled.
func Retry(ctx context.Context, p RetryPolicy, fn func(context.Context) error) (int, error) {
	attempts := max(p.Attempts, 1)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, &CategorizedError{Err: err, Category: CategoryCancelled, Context: "write cancelled", Retries: attempt - 1}
		}

		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}

		category := Categorize(err)
		if category != CategoryTransient {
			return attempt, &CategorizedError{Err: err, Category: category, Retries: attempt}
		}
		if attempt == attempts {
			return attempt, &CategorizedError{Err: err, Category: category, Context: "retries exhausted", Retries: attempt}
		}

		wait := p.wait(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, &CategorizedError{Err: ctx.Err(), Category: CategoryCancelled, Context: "write cancelled", Retries: attempt}
		case <-timer.C:
		}
	}
}

// wait returns the pause after the given failed attempt (1-based).
func (p RetryPolicy) wait(attempt int) time.Duration {
	d := p.Backoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			d = p.MaxBackoff
			break
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	if p.Jitter > 0 {
		d += time.Duration(float64(d) * p.Jitter * (rand.Float64()*2 - 1))
	}
	return d
}
