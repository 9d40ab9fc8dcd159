package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fferrors "github.com/Poxagronka/fireflies-summary/pkg/errors"
)

func TestResolvePrevious(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	history := []Occurrence{
		{ID: "o1", StartTime: base, TranscriptReady: false},
		{ID: "o2", StartTime: base.Add(168 * time.Hour), TranscriptReady: true},
		{ID: "o3", StartTime: base.Add(336 * time.Hour), TranscriptReady: false},
	}

	t.Run("skips prior occurrence without transcript", func(t *testing.T) {
		got, err := ResolvePrevious(history, history[2].StartTime)
		require.NoError(t, err)
		assert.Equal(t, "o2", got.ID)
	})

	t.Run("boundary is strict", func(t *testing.T) {
		// An occurrence starting exactly at the cutoff is not "previous".
		got, err := ResolvePrevious(history, history[1].StartTime.Add(time.Nanosecond))
		require.NoError(t, err)
		assert.Equal(t, "o2", got.ID)

		_, err = ResolvePrevious(history, history[1].StartTime)
		assert.ErrorIs(t, err, fferrors.ErrNotFound)
	})

	t.Run("no ready transcript before cutoff", func(t *testing.T) {
		_, err := ResolvePrevious(history, history[1].StartTime)
		assert.ErrorIs(t, err, fferrors.ErrNotFound)
	})

	t.Run("empty history", func(t *testing.T) {
		_, err := ResolvePrevious(nil, base)
		assert.ErrorIs(t, err, fferrors.ErrNotFound)
	})

	t.Run("picks latest of several ready", func(t *testing.T) {
		h := append([]Occurrence{}, history...)
		h[2].TranscriptReady = true
		got, err := ResolvePrevious(h, h[2].StartTime.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, "o3", got.ID)
	})
}
