package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(base time.Time, gaps ...time.Duration) []time.Time {
	out := []time.Time{base}
	cur := base
	for _, g := range gaps {
		cur = cur.Add(g)
		out = append(out, cur)
	}
	return out
}

func TestClassifyInterval_Buckets(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	cfg := DefaultIntervalConfig()

	tests := []struct {
		name  string
		times []time.Time
		want  Cadence
	}{
		{"daily", ts(base, 24*time.Hour, 24*time.Hour, 24*time.Hour), CadenceDaily},
		{"daily with weekend gap", ts(base, 24*time.Hour, 24*time.Hour, 72*time.Hour, 24*time.Hour), CadenceDaily},
		{"weekly", ts(base, 168*time.Hour, 168*time.Hour, 168*time.Hour), CadenceWeekly},
		{"weekly with drift", ts(base, 167*time.Hour, 170*time.Hour, 168*time.Hour), CadenceWeekly},
		{"biweekly", ts(base, 336*time.Hour, 336*time.Hour), CadenceBiweekly},
		{"monthly", ts(base, 720*time.Hour, 700*time.Hour), CadenceMonthly},
		{"irregular median", ts(base, 100*time.Hour, 400*time.Hour, 50*time.Hour), CadenceAdhoc},
		{"irregular spread", ts(base, 48*time.Hour, 168*time.Hour, 500*time.Hour, 168*time.Hour), CadenceAdhoc},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cadence, _ := ClassifyInterval(tc.times, cfg)
			assert.Equal(t, tc.want, cadence)
		})
	}
}

func TestClassifyInterval_FewerThanTwoTimestamps(t *testing.T) {
	cfg := DefaultIntervalConfig()

	cadence, window := ClassifyInterval(nil, cfg)
	assert.Equal(t, CadenceUnknown, cadence)
	assert.Nil(t, window)

	cadence, window = ClassifyInterval([]time.Time{time.Now()}, cfg)
	assert.Equal(t, CadenceUnknown, cadence)
	assert.Nil(t, window)
}

func TestClassifyInterval_Window(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	cfg := DefaultIntervalConfig()

	cadence, window := ClassifyInterval(ts(base, 24*time.Hour, 24*time.Hour), cfg)
	require.Equal(t, CadenceDaily, cadence)
	require.NotNil(t, window)

	expected := base.Add(72 * time.Hour)
	assert.True(t, window.Contains(expected), "expected next occurrence inside window")
	assert.True(t, window.Start.Before(expected))
	assert.True(t, window.End.After(expected))

	// Half-width is tolerance/2 of the median gap: 24h * 0.3 / 2 = 3.6h.
	assert.InDelta(t, 3.6, window.HalfWidth().Hours(), 0.001)
}

func TestClassifyInterval_AdhocHasNoWindow(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	cadence, window := ClassifyInterval(
		ts(base, 100*time.Hour, 400*time.Hour, 50*time.Hour), DefaultIntervalConfig())
	assert.Equal(t, CadenceAdhoc, cadence)
	assert.Nil(t, window)
}

func TestClassifyInterval_UnsortedInput(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	times := []time.Time{base.Add(336 * time.Hour), base, base.Add(168 * time.Hour)}
	cadence, _ := ClassifyInterval(times, DefaultIntervalConfig())
	assert.Equal(t, CadenceWeekly, cadence)
}
