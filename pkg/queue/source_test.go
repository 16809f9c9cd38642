package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceSource(t *testing.T) {
	ctx := context.Background()

	t.Run("serves candidates in order then exhausts", func(t *testing.T) {
		source := NewSliceSource([]Candidate{
			{CaseID: "C-1", Content: "first"},
			{CaseID: "C-2", Content: "second"},
		})

		first, err := source.Next(ctx)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, "C-1", first.CaseID)
		assert.Equal(t, 1, source.Remaining())

		second, err := source.Next(ctx)
		require.NoError(t, err)
		require.NotNil(t, second)
		assert.Equal(t, "C-2", second.CaseID)

		done, err := source.Next(ctx)
		require.NoError(t, err)
		assert.Nil(t, done)
		assert.Equal(t, 0, source.Remaining())

		// Exhaustion is stable.
		done, err = source.Next(ctx)
		require.NoError(t, err)
		assert.Nil(t, done)
	})

	t.Run("empty source is exhausted immediately", func(t *testing.T) {
		source := NewSliceSource(nil)

		c, err := source.Next(ctx)
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("cancelled context stops iteration", func(t *testing.T) {
		source := NewSliceSource([]Candidate{{CaseID: "C-1"}})
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := source.Next(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("returned candidates are copies", func(t *testing.T) {
		source := NewSliceSource([]Candidate{{CaseID: "C-1", Content: "original"}})

		c, err := source.Next(ctx)
		require.NoError(t, err)
		c.Content = "mutated"

		assert.Equal(t, "original", source.candidates[0].Content)
	})
}
