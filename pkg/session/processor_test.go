package session

import (
	"context"
	"errors"
	"testing"

	"github.com/entrhq/caseflow/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseProcessor(t *testing.T) {
	candidate := queue.Candidate{
		CaseID:      "C-300",
		AddressID:   "addr-1",
		AddressText: "Hauptstr. 12",
		Content:     "repair scheduled for Monday",
	}

	t.Run("opens, posts, and returns to listing", func(t *testing.T) {
		nav, _, store := newTestNavigator(t)
		adapter := &fakeAdapter{}
		sess := loggedIn(t, nav, adapter)

		processor := NewCaseProcessor(nav, true)
		require.NoError(t, processor.Process(context.Background(), candidate))

		assert.Equal(t, 1, adapter.postCalls)
		assert.Equal(t, "C-300", adapter.lastRequest.CaseID)
		assert.True(t, adapter.lastRequest.AutoConfirm)

		// Positioned for the next case.
		assert.Equal(t, StepCaseListing, sess.State().Step)
		require.Len(t, store.records, 1)
	})

	t.Run("failed post still audits and repositions", func(t *testing.T) {
		nav, _, store := newTestNavigator(t)
		adapter := &fakeAdapter{postErr: errors.New("portal rejected update")}
		sess := loggedIn(t, nav, adapter)

		processor := NewCaseProcessor(nav, false)
		err := processor.Process(context.Background(), candidate)
		require.Error(t, err)

		require.Len(t, store.records, 1)
		assert.Equal(t, StepCaseListing, sess.State().Step)
	})

	t.Run("no session fails before any adapter call", func(t *testing.T) {
		nav, _, store := newTestNavigator(t)
		processor := NewCaseProcessor(nav, false)

		err := processor.Process(context.Background(), candidate)
		assert.ErrorIs(t, err, ErrNoActiveSession)
		assert.Empty(t, store.records)
	})
}
