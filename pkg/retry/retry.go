// Package retry provides a bounded-attempt retry policy for portal
// operations. The policy is deliberately simple: a fixed attempt budget
// with a fixed inter-attempt delay, no backoff, and the last observed
// error surfaced unchanged so callers can classify it themselves.
package retry

import (
	"context"
	"time"
)

// DefaultAttempts is the attempt budget used when a Policy leaves
// Attempts at zero.
const DefaultAttempts = 3

// Policy configures how Do retries a failing operation.
type Policy struct {
	// Attempts is the total number of invocations, including the first.
	// Zero means DefaultAttempts.
	Attempts int

	// Delay is the pause between attempts. The delay is skipped after
	// the final attempt so exhaustion surfaces immediately.
	Delay time.Duration

	// RetryIf decides whether a given error is worth another attempt.
	// When nil, every error is retried until the budget is spent.
	RetryIf func(error) bool
}

// Do invokes op until it succeeds, the attempt budget is exhausted, or
// the context is cancelled. On exhaustion the last error from op is
// returned as-is, without wrapping, so the original cause is preserved.
func Do(ctx context.Context, p Policy, op func() error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if p.RetryIf != nil && !p.RetryIf(lastErr) {
			return lastErr
		}

		// No pause after the last attempt.
		if attempt == attempts || p.Delay <= 0 {
			continue
		}

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
