// Package retry provides the retry policy shared by the REST and subgraph
// clients: bounded attempts, exponential backoff, and a retryable-error
// predicate.
package retry

import (
	"context"
	"time"
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt; it doubles per
	// attempt up to MaxDelay.
	BaseDelay time.Duration

	// MaxDelay caps the backoff. Zero means uncapped.
	MaxDelay time.Duration

	// Retryable reports whether an error is worth another attempt.
	// Nil means every error is retryable.
	Retryable func(error) bool
}

// Delay returns the wait before the given attempt (first attempt = 1).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := p.BaseDelay
	for i := 2; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, the policy is exhausted, the error is not
// retryable, or the context is cancelled. It returns the last error.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if wait := p.Delay(attempt); wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}
