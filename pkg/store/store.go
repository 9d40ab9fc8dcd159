// Package store owns the MeetingSeries and MeetingOccurrence records. All
// other components receive read snapshots and propose mutations through the
// store's operations; nothing outside this package mutates series state.
//
// Mutations to a single series are serialized by a per-series mutex, so two
// occurrences attaching to the same series concurrently are both applied in
// order rather than one being rejected. Reads run against cloned snapshots
// and take no per-series locks.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	fferrors "github.com/Poxagronka/fireflies-summary/pkg/errors"
	"github.com/Poxagronka/fireflies-summary/pkg/logging"
	"github.com/Poxagronka/fireflies-summary/pkg/series"
)

// Config holds store tuning knobs.
type Config struct {
	// MaxWindow caps the number of occurrences kept in a series' in-memory
	// scoring window. Older occurrences are pruned from the window only;
	// durable records are retained by the persistence layer.
	MaxWindow int `yaml:"max_window"`

	// DecayFactor is applied to the rolling attendee/topic profile weights
	// on every attach, in (0, 1].
	DecayFactor float64 `yaml:"decay_factor"`

	// Interval configures cadence classification, re-run on every attach.
	Interval series.IntervalConfig `yaml:"interval"`
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		MaxWindow:   50,
		DecayFactor: 0.9,
		Interval:    series.DefaultIntervalConfig(),
	}
}

// seriesState pairs a series with the mutex serializing its mutations.
type seriesState struct {
	mu sync.Mutex
	s  series.Series
}

// Store is the in-memory series store.
type Store struct {
	cfg Config
	log logging.Logger

	// mu guards the maps themselves; per-series mutation holds the
	// seriesState mutex, not mu.
	mu       sync.RWMutex
	byID     map[string]*seriesState
	byKey    map[string]map[string]struct{} // title key -> series IDs
	occIndex map[string]string              // occurrence ID -> series ID
}

// New creates an empty store.
func New(cfg Config, log logging.Logger) *Store {
	if cfg.MaxWindow <= 0 {
		cfg.MaxWindow = DefaultConfig().MaxWindow
	}
	if cfg.DecayFactor <= 0 || cfg.DecayFactor > 1 {
		cfg.DecayFactor = DefaultConfig().DecayFactor
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Store{
		cfg:      cfg,
		log:      log,
		byID:     make(map[string]*seriesState),
		byKey:    make(map[string]map[string]struct{}),
		occIndex: make(map[string]string),
	}
}

// FindCandidates returns snapshots of candidate series for a title key.
// Exact key matches come first; series under other keys are included only
// when keyMatch accepts their key, so only the candidate set is cloned
// rather than the whole store. A nil keyMatch includes every series.
// Snapshots are clones; mutating them has no effect on the store.
func (st *Store) FindCandidates(titleKey string, keyMatch func(string) bool) []series.Series {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]series.Series, 0, len(st.byKey[titleKey]))
	for id := range st.byKey[titleKey] {
		if snap, ok := st.snapshotLocked(id); ok {
			out = append(out, snap)
		}
	}
	for key, ids := range st.byKey {
		if key == titleKey {
			continue
		}
		if keyMatch != nil && !keyMatch(key) {
			continue
		}
		for id := range ids {
			if snap, ok := st.snapshotLocked(id); ok {
				out = append(out, snap)
			}
		}
	}
	return out
}

// snapshotLocked clones the series with the given ID. Caller holds mu.
func (st *Store) snapshotLocked(id string) (series.Series, bool) {
	state, ok := st.byID[id]
	if !ok {
		return series.Series{}, false
	}
	state.mu.Lock()
	snap := state.s.Clone()
	state.mu.Unlock()
	return snap, true
}

// indexKeyLocked records a series under its title key. Caller holds mu.
func (st *Store) indexKeyLocked(titleKey, seriesID string) {
	ids, ok := st.byKey[titleKey]
	if !ok {
		ids = make(map[string]struct{})
		st.byKey[titleKey] = ids
	}
	ids[seriesID] = struct{}{}
}

// Create makes a new single-occurrence series for occ and returns its ID.
// A series with exactly one occurrence has cadence unknown.
func (st *Store) Create(occ series.Occurrence) (string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if existing, ok := st.occIndex[occ.ID]; ok {
		return "", fmt.Errorf("occurrence %s already attached to series %s: %w",
			occ.ID, existing, fferrors.ErrConflict)
	}

	s := series.Series{
		ID:              uuid.New().String(),
		TitleKey:        occ.TitleKey,
		Name:            occ.Title,
		History:         []series.Occurrence{occ},
		Cadence:         series.CadenceUnknown,
		AttendeeProfile: series.NewProfile(),
		TopicProfile:    series.NewProfile(),
		LastActive:      occ.StartTime,
	}
	s.AttendeeProfile.Observe(occ.Attendees, st.cfg.DecayFactor)
	s.TopicProfile.Observe(occ.TopicTokens, st.cfg.DecayFactor)

	st.byID[s.ID] = &seriesState{s: s}
	st.indexKeyLocked(s.TitleKey, s.ID)
	st.occIndex[occ.ID] = s.ID

	st.log.Debug("series created",
		logging.F("series_id", s.ID),
		logging.F("title_key", s.TitleKey))
	return s.ID, nil
}

// Attach appends occ to the series' history, re-aggregates the rolling
// profiles and re-classifies cadence. Attaching an occurrence that already
// belongs to a different series fails with ErrConflict and changes nothing;
// re-attaching to the same series is an idempotent no-op.
func (st *Store) Attach(seriesID string, occ series.Occurrence) error {
	st.mu.Lock()
	state, ok := st.byID[seriesID]
	if !ok {
		st.mu.Unlock()
		return fmt.Errorf("series %s: %w", seriesID, fferrors.ErrNotFound)
	}
	if existing, attached := st.occIndex[occ.ID]; attached {
		st.mu.Unlock()
		if existing == seriesID {
			return nil
		}
		return fmt.Errorf("occurrence %s already attached to series %s: %w",
			occ.ID, existing, fferrors.ErrConflict)
	}
	// Reserve the occurrence before releasing the map lock so a concurrent
	// attach of the same occurrence cannot slip in.
	st.occIndex[occ.ID] = seriesID
	st.mu.Unlock()

	state.mu.Lock()
	defer state.mu.Unlock()

	s := &state.s
	s.History = insertOrdered(s.History, occ)
	if len(s.History) > st.cfg.MaxWindow {
		s.History = s.History[len(s.History)-st.cfg.MaxWindow:]
	}
	s.AttendeeProfile.Observe(occ.Attendees, st.cfg.DecayFactor)
	s.TopicProfile.Observe(occ.TopicTokens, st.cfg.DecayFactor)
	if occ.StartTime.After(s.LastActive) {
		s.LastActive = occ.StartTime
	}

	s.Cadence, s.NextWindow = series.ClassifyInterval(historyTimes(s.History), st.cfg.Interval)

	st.log.Debug("occurrence attached",
		logging.F("series_id", seriesID),
		logging.F("occurrence_id", occ.ID),
		logging.F("cadence", string(s.Cadence)))
	return nil
}

// SetConfidence records the confidence and provisional flag of the last
// match decision against the series.
func (st *Store) SetConfidence(seriesID string, confidence float64, provisional bool) error {
	state, err := st.state(seriesID)
	if err != nil {
		return err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	state.s.Confidence = confidence
	state.s.Provisional = provisional
	return nil
}

// GetHistory returns the ordered occurrence history of a series.
func (st *Store) GetHistory(seriesID string) ([]series.Occurrence, error) {
	state, err := st.state(seriesID)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	out := make([]series.Occurrence, len(state.s.History))
	copy(out, state.s.History)
	return out, nil
}

// Get returns a snapshot of a series.
func (st *Store) Get(seriesID string) (series.Series, error) {
	state, err := st.state(seriesID)
	if err != nil {
		return series.Series{}, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.s.Clone(), nil
}

// SeriesOf returns the series an occurrence belongs to, if any.
func (st *Store) SeriesOf(occurrenceID string) (string, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	id, ok := st.occIndex[occurrenceID]
	return id, ok
}

// MarkTranscriptReady flips the transcript-ready flag on an occurrence. The
// flag is the only mutable attribute of an occurrence.
func (st *Store) MarkTranscriptReady(occurrenceID string) error {
	st.mu.RLock()
	seriesID, ok := st.occIndex[occurrenceID]
	st.mu.RUnlock()
	if !ok {
		return fmt.Errorf("occurrence %s: %w", occurrenceID, fferrors.ErrNotFound)
	}

	state, err := st.state(seriesID)
	if err != nil {
		return err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	for i := range state.s.History {
		if state.s.History[i].ID == occurrenceID {
			state.s.History[i].TranscriptReady = true
			return nil
		}
	}
	// Pruned from the scoring window; the durable record is updated by the
	// persistence layer, nothing to do here.
	return nil
}

// Snapshot returns clones of all series, ordered by last activity (most
// recent first). Used by the administrative surface and for persistence.
func (st *Store) Snapshot() []series.Series {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]series.Series, 0, len(st.byID))
	for _, state := range st.byID {
		state.mu.Lock()
		out = append(out, state.s.Clone())
		state.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActive.After(out[j].LastActive) })
	return out
}

// Load seeds the store with a previously persisted series. Intended for
// warm-up at process start, before any matching runs.
func (st *Store) Load(s series.Series) error {
	if len(s.History) == 0 {
		return fmt.Errorf("series %s has no occurrences: %w", s.ID, fferrors.ErrValidation)
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, occ := range s.History {
		if existing, ok := st.occIndex[occ.ID]; ok && existing != s.ID {
			return fmt.Errorf("occurrence %s already attached to series %s: %w",
				occ.ID, existing, fferrors.ErrConflict)
		}
	}
	clone := s.Clone()
	sort.Slice(clone.History, func(i, j int) bool {
		return clone.History[i].StartTime.Before(clone.History[j].StartTime)
	})
	st.byID[clone.ID] = &seriesState{s: clone}
	st.indexKeyLocked(clone.TitleKey, clone.ID)
	for _, occ := range clone.History {
		st.occIndex[occ.ID] = clone.ID
	}
	return nil
}

// state looks up the seriesState for an ID.
func (st *Store) state(seriesID string) (*seriesState, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	state, ok := st.byID[seriesID]
	if !ok {
		return nil, fmt.Errorf("series %s: %w", seriesID, fferrors.ErrNotFound)
	}
	return state, nil
}

// insertOrdered inserts occ keeping history strictly increasing by start
// timestamp. Out-of-order arrivals land at the right position instead of
// breaking the ordering invariant.
func insertOrdered(history []series.Occurrence, occ series.Occurrence) []series.Occurrence {
	i := sort.Search(len(history), func(i int) bool {
		return history[i].StartTime.After(occ.StartTime)
	})
	history = append(history, series.Occurrence{})
	copy(history[i+1:], history[i:])
	history[i] = occ
	return history
}

// historyTimes extracts the start timestamps of a history slice.
func historyTimes(history []series.Occurrence) []time.Time {
	times := make([]time.Time, len(history))
	for i, occ := range history {
		times[i] = occ.StartTime
	}
	return times
}
