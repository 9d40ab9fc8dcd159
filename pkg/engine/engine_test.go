package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fferrors "github.com/Poxagronka/fireflies-summary/pkg/errors"
	"github.com/Poxagronka/fireflies-summary/pkg/queue"
	"github.com/Poxagronka/fireflies-summary/pkg/series"
	"github.com/Poxagronka/fireflies-summary/pkg/store"
)

// fakeIntake hands out its queued messages one batch per Dequeue call.
type fakeIntake struct {
	batches [][]queue.Message
}

func (f *fakeIntake) Dequeue(_ context.Context, max int) ([]queue.Message, error) {
	if len(f.batches) == 0 {
		return nil, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	if len(batch) > max {
		batch = batch[:max]
	}
	return batch, nil
}

// fakeRepo records persistence calls.
type fakeRepo struct {
	savedSeries      []string
	savedOccurrences []string
	transcriptMarks  []string
	loaded           []series.Series
}

func (f *fakeRepo) SaveSeries(_ context.Context, s series.Series) error {
	f.savedSeries = append(f.savedSeries, s.ID)
	return nil
}

func (f *fakeRepo) SaveOccurrence(_ context.Context, _ string, occ series.Occurrence) error {
	f.savedOccurrences = append(f.savedOccurrences, occ.ID)
	return nil
}

func (f *fakeRepo) MarkTranscriptReady(_ context.Context, occurrenceID string) error {
	f.transcriptMarks = append(f.transcriptMarks, occurrenceID)
	return nil
}

func (f *fakeRepo) LoadAll(_ context.Context, _ int) ([]series.Series, error) {
	return f.loaded, nil
}

func newTestEngine(repo Persister, intake IntakeSource) (*Engine, *store.Store) {
	st := store.New(store.DefaultConfig(), nil)
	m := series.NewMatcher(series.DefaultMatcherConfig(), nil)
	e := New(DefaultConfig(), st, m, repo, intake, nil, nil)
	return e, st
}

func standupOcc(id string, start time.Time) series.Occurrence {
	return series.Occurrence{
		ID:        id,
		Title:     "Daily Standup",
		TitleKey:  "daily standup",
		StartTime: start,
		Attendees: []string{"alice@x.io", "bob@x.io"},
	}
}

func TestProcessOccurrence_CreatesThenAttaches(t *testing.T) {
	e, _ := newTestEngine(nil, nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	first := e.ProcessOccurrence(ctx, standupOcc("o1", base))
	require.NoError(t, first.Err)
	assert.True(t, first.IsNew)
	require.NotEmpty(t, first.SeriesID)
	assert.Nil(t, first.Previous)

	second := e.ProcessOccurrence(ctx, standupOcc("o2", base.Add(24*time.Hour)))
	require.NoError(t, second.Err)
	assert.False(t, second.IsNew)
	assert.Equal(t, first.SeriesID, second.SeriesID)
	assert.Greater(t, second.Confidence, 0.0)
}

func TestProcessOccurrence_Idempotent(t *testing.T) {
	e, st := newTestEngine(nil, nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	occ := standupOcc("o1", base)
	first := e.ProcessOccurrence(ctx, occ)
	require.NoError(t, first.Err)

	again := e.ProcessOccurrence(ctx, occ)
	require.NoError(t, again.Err)
	assert.Equal(t, first.SeriesID, again.SeriesID)
	assert.False(t, again.IsNew)

	history, err := st.GetHistory(first.SeriesID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestProcessOccurrence_PersistsThrough(t *testing.T) {
	repo := &fakeRepo{}
	e, _ := newTestEngine(repo, nil)
	ctx := context.Background()

	res := e.ProcessOccurrence(ctx, standupOcc("o1", time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)))
	require.NoError(t, res.Err)

	assert.Equal(t, []string{res.SeriesID}, repo.savedSeries)
	assert.Equal(t, []string{"o1"}, repo.savedOccurrences)
}

func TestProcessBatch(t *testing.T) {
	e, _ := newTestEngine(nil, nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	titles := []string{
		"Budget Review", "Hiring Pipeline", "Incident Retro", "Arch Council",
		"Sales Forecast", "Launch Checklist", "Vendor Audit", "Roadmap Jam",
	}
	occs := make([]series.Occurrence, 0, len(titles))
	for i, title := range titles {
		key, _ := series.Normalize(title)
		occs = append(occs, series.Occurrence{
			ID:        fmt.Sprintf("o%d", i),
			Title:     title,
			TitleKey:  key,
			StartTime: base.Add(time.Duration(i) * time.Hour),
		})
	}

	results := e.ProcessBatch(ctx, occs)
	require.Len(t, results, len(titles))

	seen := make(map[string]struct{})
	for i, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, occs[i].ID, res.OccurrenceID, "results must align with input order")
		assert.True(t, res.IsNew)
		seen[res.SeriesID] = struct{}{}
	}
	assert.Len(t, seen, len(titles), "dissimilar titles must not share a series")
}

func TestProcessBatch_Empty(t *testing.T) {
	e, _ := newTestEngine(nil, nil)
	assert.Nil(t, e.ProcessBatch(context.Background(), nil))
}

func TestWarm(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	repo := &fakeRepo{loaded: []series.Series{{
		ID:              "persisted",
		TitleKey:        "daily standup",
		History:         []series.Occurrence{standupOcc("o1", base)},
		AttendeeProfile: series.Profile{"alice@x.io": 1, "bob@x.io": 1},
		TopicProfile:    series.NewProfile(),
		Cadence:         series.CadenceUnknown,
		LastActive:      base,
	}}}

	e, st := newTestEngine(repo, nil)
	require.NoError(t, e.Warm(context.Background(), 50))

	sid, ok := st.SeriesOf("o1")
	assert.True(t, ok)
	assert.Equal(t, "persisted", sid)

	// A warmed series is a live candidate for new occurrences.
	res := e.ProcessOccurrence(context.Background(), standupOcc("o2", base.Add(24*time.Hour)))
	require.NoError(t, res.Err)
	assert.Equal(t, "persisted", res.SeriesID)
}

func TestDrain(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	occMsg := func(id string, start time.Time) queue.Message {
		payload, err := json.Marshal(map[string]interface{}{
			"id":        id,
			"title":     "Daily Standup",
			"start":     start.Format(time.RFC3339),
			"attendees": []string{"alice@x.io", "bob@x.io"},
		})
		require.NoError(t, err)
		return queue.Message{ID: "m-" + id, Type: queue.MessageTypeOccurrence, Payload: payload}
	}

	intake := &fakeIntake{batches: [][]queue.Message{
		{
			occMsg("o1", base),
			{ID: "m-bad", Type: queue.MessageTypeOccurrence, Payload: json.RawMessage(`{"title":""}`)},
			{ID: "m-unknown", Type: "mystery", Payload: json.RawMessage(`{}`)},
		},
		{
			{
				ID:      "m-tr",
				Type:    queue.MessageTypeTranscriptReady,
				Payload: json.RawMessage(`{"occurrence_id":"o1"}`),
			},
			occMsg("o2", base.Add(24*time.Hour)),
		},
	}}

	e, st := newTestEngine(nil, intake)
	ctx := context.Background()

	// First drain: one valid occurrence, invalid and unknown entries skipped.
	results, err := e.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.True(t, results[0].IsNew)
	seriesID := results[0].SeriesID

	// Second drain: transcript flag applies before the new occurrence matches,
	// so o2's assignment carries o1 as previous context.
	results, err = e.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, seriesID, results[0].SeriesID)
	require.NotNil(t, results[0].Previous)
	assert.Equal(t, "o1", results[0].Previous.ID)

	history, err := st.GetHistory(seriesID)
	require.NoError(t, err)
	assert.True(t, history[0].TranscriptReady)

	// Queue exhausted.
	results, err = e.Drain(ctx)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestDrain_TranscriptRightBehindItsOccurrence(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	payload, err := json.Marshal(map[string]interface{}{
		"id":    "o1",
		"title": "Daily Standup",
		"start": base.Format(time.RFC3339),
	})
	require.NoError(t, err)

	// The calendar payload and its transcript update arrive in one batch, in
	// queue order. The flag must land on the freshly created occurrence.
	intake := &fakeIntake{batches: [][]queue.Message{{
		{ID: "m-occ", Type: queue.MessageTypeOccurrence, Payload: payload},
		{
			ID:      "m-tr",
			Type:    queue.MessageTypeTranscriptReady,
			Payload: json.RawMessage(`{"occurrence_id":"o1"}`),
		},
	}}}

	e, st := newTestEngine(nil, intake)
	results, err := e.Drain(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	history, err := st.GetHistory(results[0].SeriesID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].TranscriptReady,
		"transcript update in the same batch must not be dropped")
}

func TestDrain_NoIntake(t *testing.T) {
	e, _ := newTestEngine(nil, nil)
	results, err := e.Drain(context.Background())
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestResolvePrevious(t *testing.T) {
	e, st := newTestEngine(nil, nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	first := e.ProcessOccurrence(ctx, standupOcc("o1", base))
	require.NoError(t, first.Err)

	// No prior transcript yet.
	next := standupOcc("o2", base.Add(24*time.Hour))
	_, err := e.ResolvePrevious(first.SeriesID, next)
	assert.ErrorIs(t, err, fferrors.ErrNotFound)

	require.NoError(t, st.MarkTranscriptReady("o1"))
	prev, err := e.ResolvePrevious(first.SeriesID, next)
	require.NoError(t, err)
	assert.Equal(t, "o1", prev.ID)
}
