package portal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want Kind
	}{
		{"connection refused", "dial tcp: connection refused", KindNetwork},
		{"playwright timeout", "Timeout 30000ms exceeded", KindNetwork},
		{"chromium net error", "net::ERR_NAME_NOT_RESOLVED", KindNetwork},
		{"expired session", "portal says: session expired, please log in", KindSession},
		{"unauthorized", "401 Unauthorized", KindSession},
		{"selector miss", "no element found matching selector", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyMessage(tt.msg))
		})
	}
}

func TestWrapErr(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, wrapErr("login", nil))
	})

	t.Run("tags and preserves cause", func(t *testing.T) {
		cause := errors.New("connection reset by peer")
		err := wrapErr("navigate to page", cause)

		var perr *Error
		assert.True(t, errors.As(err, &perr))
		assert.Equal(t, KindNetwork, perr.Kind)
		assert.Equal(t, "navigate to page", perr.Op)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("wrapped deeper still classifies", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", wrapErr("post update", errors.New("login required")))
		assert.Equal(t, KindSession, KindOf(err))
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(wrapErr("op", errors.New("request timed out"))))
	assert.True(t, IsRetryable(wrapErr("op", errors.New("something odd"))))
	assert.False(t, IsRetryable(wrapErr("op", errors.New("authentication failure"))))
	// Untagged errors default to retryable.
	assert.True(t, IsRetryable(errors.New("plain")))
}
