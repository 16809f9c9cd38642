package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo(t *testing.T) {
	t.Run("returns immediately on first success", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), Policy{Attempts: 3}, func() error {
			calls++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("invokes exactly Attempts times and returns last error", func(t *testing.T) {
		calls := 0
		errs := []error{
			errors.New("first failure"),
			errors.New("second failure"),
			errors.New("third failure"),
		}

		err := Do(context.Background(), Policy{Attempts: 3}, func() error {
			calls++
			return errs[calls-1]
		})

		assert.Equal(t, 3, calls)
		// The final error must be op's last failure, unwrapped.
		assert.Same(t, errs[2], err)
	})

	t.Run("succeeds mid-budget", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), Policy{Attempts: 5}, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("zero attempts uses default budget", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := Do(context.Background(), Policy{}, func() error {
			calls++
			return boom
		})

		assert.Equal(t, DefaultAttempts, calls)
		assert.Same(t, boom, err)
	})

	t.Run("RetryIf short-circuits non-retryable errors", func(t *testing.T) {
		calls := 0
		fatal := errors.New("session expired")
		err := Do(context.Background(), Policy{
			Attempts: 5,
			RetryIf:  func(err error) bool { return false },
		}, func() error {
			calls++
			return fatal
		})

		assert.Equal(t, 1, calls)
		assert.Same(t, fatal, err)
	})

	t.Run("skips delay after the final attempt", func(t *testing.T) {
		start := time.Now()
		err := Do(context.Background(), Policy{Attempts: 2, Delay: 50 * time.Millisecond}, func() error {
			return errors.New("always")
		})

		require.Error(t, err)
		elapsed := time.Since(start)
		// One inter-attempt delay, not two.
		assert.Less(t, elapsed, 100*time.Millisecond)
		assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	})

	t.Run("honors context cancellation between attempts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0

		err := Do(ctx, Policy{Attempts: 10, Delay: time.Second}, func() error {
			calls++
			cancel()
			return errors.New("transient")
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context before first attempt", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		err := Do(ctx, Policy{Attempts: 3}, func() error {
			calls++
			return nil
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, calls)
	})
}
