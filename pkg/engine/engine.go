// Package engine orchestrates the series detection pipeline: it drains the
// intake queue, matches occurrences against the store, applies the decided
// mutation, resolves the previous occurrence for context, and writes through
// to durable persistence.
package engine

import (
	"context"
	"sync"

	fferrors "github.com/Poxagronka/fireflies-summary/pkg/errors"
	"github.com/Poxagronka/fireflies-summary/pkg/ingest"
	"github.com/Poxagronka/fireflies-summary/pkg/logging"
	"github.com/Poxagronka/fireflies-summary/pkg/queue"
	"github.com/Poxagronka/fireflies-summary/pkg/series"
	"github.com/Poxagronka/fireflies-summary/pkg/store"
)

// Persister is the durable store behind the in-memory scoring window.
// *store.Repository implements it; a nil Persister runs the engine
// memory-only.
type Persister interface {
	SaveSeries(ctx context.Context, s series.Series) error
	SaveOccurrence(ctx context.Context, seriesID string, occ series.Occurrence) error
	MarkTranscriptReady(ctx context.Context, occurrenceID string) error
	LoadAll(ctx context.Context, window int) ([]series.Series, error)
}

// IntakeSource supplies pending intake messages. *queue.Intake implements it.
type IntakeSource interface {
	Dequeue(ctx context.Context, max int) ([]queue.Message, error)
}

// Config holds engine tuning knobs.
type Config struct {
	// Workers bounds the number of occurrences matched in parallel within
	// one invocation.
	Workers int `yaml:"workers"`

	// BatchSize caps how many intake messages one drain pass consumes.
	BatchSize int `yaml:"batch_size"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{Workers: 4, BatchSize: 100}
}

// Assignment is the engine's output for one occurrence: the series it landed
// in and the prior occurrence to summarize from, handed to the external
// delivery component.
type Assignment struct {
	OccurrenceID string
	SeriesID     string
	Confidence   float64
	IsNew        bool
	Provisional  bool
	// Previous is nil when no prior occurrence has a ready transcript; the
	// caller sends no previous-context summary in that case.
	Previous *series.Occurrence
	// Err is set when the occurrence could not be assigned (conflict); the
	// batch keeps going regardless.
	Err error
}

// Engine ties the store, matcher and resolver together.
type Engine struct {
	cfg     Config
	store   *store.Store
	matcher *series.Matcher
	repo    Persister
	intake  IntakeSource
	log     logging.Logger
	metrics *Metrics
}

// New creates an engine. repo, intake and metrics may be nil.
func New(cfg Config, st *store.Store, matcher *series.Matcher, repo Persister, intake IntakeSource, log logging.Logger, metrics *Metrics) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Engine{
		cfg:     cfg,
		store:   st,
		matcher: matcher,
		repo:    repo,
		intake:  intake,
		log:     log,
		metrics: metrics,
	}
}

// Warm seeds the in-memory store from durable persistence. Call once at
// process start, before any matching runs.
func (e *Engine) Warm(ctx context.Context, window int) error {
	if e.repo == nil {
		return nil
	}
	all, err := e.repo.LoadAll(ctx, window)
	if err != nil {
		return err
	}
	for _, s := range all {
		if len(s.History) == 0 {
			continue
		}
		if err := e.store.Load(s); err != nil {
			e.log.Warn("skipping persisted series on warm-up",
				logging.F("series_id", s.ID), logging.Err(err))
		}
	}
	e.log.Info("store warmed", logging.F("series", len(all)))
	return nil
}

// ProcessOccurrence matches one occurrence, applies the store mutation and
// resolves the previous occurrence. All external I/O (attendee and topic
// fetch) has already happened at the ingest boundary, so only in-memory work
// runs inside the store's critical sections.
//
// Re-processing an already-attached occurrence is idempotent: it yields the
// same series without mutating anything.
func (e *Engine) ProcessOccurrence(ctx context.Context, occ series.Occurrence) Assignment {
	if seriesID, attached := e.store.SeriesOf(occ.ID); attached {
		return e.assignment(occ, seriesID, e.confidenceOf(seriesID), false, false)
	}

	candidates := e.store.FindCandidates(occ.TitleKey, e.matcher.KeyFilter(occ.TitleKey))
	result := e.matcher.Match(occ, candidates)

	var seriesID string
	switch {
	case result.IsNew:
		id, err := e.store.Create(occ)
		if err != nil {
			// Lost the race to another worker holding the same occurrence;
			// fall back to the winner's assignment.
			if fferrors.IsConflict(err) {
				if winner, ok := e.store.SeriesOf(occ.ID); ok {
					return e.assignment(occ, winner, e.confidenceOf(winner), false, false)
				}
			}
			e.metrics.observeConflict()
			return Assignment{OccurrenceID: occ.ID, Err: err}
		}
		seriesID = id
		e.metrics.observeMatch("created", result.Confidence)
		e.log.Info("new series created",
			logging.F("series_id", seriesID),
			logging.F("title", occ.Title))
	default:
		if err := e.store.Attach(result.SeriesID, occ); err != nil {
			if fferrors.IsConflict(err) {
				e.metrics.observeConflict()
			}
			return Assignment{OccurrenceID: occ.ID, Err: err}
		}
		seriesID = result.SeriesID
		if err := e.store.SetConfidence(seriesID, result.Confidence, result.Provisional); err != nil {
			e.log.Warn("recording confidence failed",
				logging.F("series_id", seriesID), logging.Err(err))
		}
		outcome := "attached"
		if result.Provisional {
			outcome = "provisional"
		}
		e.metrics.observeMatch(outcome, result.Confidence)
		e.log.Info("occurrence attached",
			logging.F("series_id", seriesID),
			logging.F("occurrence_id", occ.ID),
			logging.F("confidence", result.Confidence),
			logging.F("provisional", result.Provisional))
	}

	e.persist(ctx, seriesID, occ)
	return e.assignment(occ, seriesID, result.Confidence, result.IsNew, result.Provisional)
}

// ProcessBatch matches distinct occurrences concurrently with a bounded
// worker pool. Mutations to a single series stay serialized by the store, so
// two occurrences of the same series both attach, in order.
func (e *Engine) ProcessBatch(ctx context.Context, occs []series.Occurrence) []Assignment {
	if len(occs) == 0 {
		return nil
	}

	results := make([]Assignment, len(occs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := e.cfg.Workers
	if workers > len(occs) {
		workers = len(occs)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = e.ProcessOccurrence(ctx, occs[i])
			}
		}()
	}

	for i := range occs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

// Drain consumes one batch from the intake queue: occurrence payloads are
// validated and matched, transcript-ready updates flip the flag. Invalid
// payloads are logged and skipped; nothing here is fatal to the trigger loop.
//
// Messages take effect in queue order: runs of consecutive occurrences are
// matched as one parallel batch, and each transcript update applies at its
// position, after any occurrence that preceded it. An update enqueued right
// behind its own occurrence therefore lands on an existing record instead of
// being lost.
func (e *Engine) Drain(ctx context.Context) ([]Assignment, error) {
	if e.intake == nil {
		return nil, nil
	}

	msgs, err := e.intake.Dequeue(ctx, e.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	e.metrics.observeDrained(len(msgs))

	assignments := make([]Assignment, 0, len(msgs))
	occs := make([]series.Occurrence, 0, len(msgs))
	flush := func() {
		if len(occs) == 0 {
			return
		}
		assignments = append(assignments, e.ProcessBatch(ctx, occs)...)
		occs = occs[:0]
	}

	for _, msg := range msgs {
		switch msg.Type {
		case queue.MessageTypeOccurrence:
			occ, err := ingest.ParseOccurrence(msg.Payload)
			if err != nil {
				e.log.Warn("skipping invalid occurrence payload",
					logging.F("message_id", msg.ID), logging.Err(err))
				continue
			}
			occs = append(occs, occ)
		case queue.MessageTypeTranscriptReady:
			flush()
			e.applyTranscriptUpdate(ctx, msg)
		default:
			e.log.Warn("skipping unknown intake message type",
				logging.F("message_id", msg.ID),
				logging.F("type", string(msg.Type)))
		}
	}
	flush()

	return assignments, nil
}

// ResolvePrevious returns the most recent prior occurrence of a series with a
// ready transcript, strictly before the given occurrence start.
func (e *Engine) ResolvePrevious(seriesID string, occ series.Occurrence) (*series.Occurrence, error) {
	history, err := e.store.GetHistory(seriesID)
	if err != nil {
		return nil, err
	}
	prev, err := series.ResolvePrevious(history, occ.StartTime)
	if err != nil {
		e.metrics.observePrevious(false)
		return nil, err
	}
	e.metrics.observePrevious(true)
	return &prev, nil
}

// applyTranscriptUpdate flips the transcript-ready flag in memory and on the
// durable record.
func (e *Engine) applyTranscriptUpdate(ctx context.Context, msg queue.Message) {
	upd, err := ingest.ParseTranscriptUpdate(msg.Payload)
	if err != nil {
		e.log.Warn("skipping invalid transcript payload",
			logging.F("message_id", msg.ID), logging.Err(err))
		return
	}
	if err := e.store.MarkTranscriptReady(upd.OccurrenceID); err != nil && !fferrors.IsNotFound(err) {
		e.log.Warn("marking transcript ready failed",
			logging.F("occurrence_id", upd.OccurrenceID), logging.Err(err))
	}
	if e.repo != nil {
		if err := e.repo.MarkTranscriptReady(ctx, upd.OccurrenceID); err != nil && !fferrors.IsNotFound(err) {
			e.log.Warn("persisting transcript flag failed",
				logging.F("occurrence_id", upd.OccurrenceID), logging.Err(err))
		}
	}
}

// persist writes the mutated series and the new occurrence through to the
// durable store. Failures degrade durability, not matching; they are logged
// and the invocation continues.
func (e *Engine) persist(ctx context.Context, seriesID string, occ series.Occurrence) {
	if e.repo == nil {
		return
	}
	snap, err := e.store.Get(seriesID)
	if err != nil {
		e.log.Warn("snapshot for persistence failed",
			logging.F("series_id", seriesID), logging.Err(err))
		return
	}
	if err := e.repo.SaveSeries(ctx, snap); err != nil {
		e.log.Warn("persisting series failed",
			logging.F("series_id", seriesID), logging.Err(err))
		return
	}
	if err := e.repo.SaveOccurrence(ctx, seriesID, occ); err != nil {
		e.log.Warn("persisting occurrence failed",
			logging.F("occurrence_id", occ.ID), logging.Err(err))
	}
}

// assignment builds the Assignment including previous-occurrence context.
func (e *Engine) assignment(occ series.Occurrence, seriesID string, confidence float64, isNew, provisional bool) Assignment {
	a := Assignment{
		OccurrenceID: occ.ID,
		SeriesID:     seriesID,
		Confidence:   confidence,
		IsNew:        isNew,
		Provisional:  provisional,
	}
	prev, err := e.ResolvePrevious(seriesID, occ)
	if err == nil {
		a.Previous = prev
	}
	return a
}

// confidenceOf reads the recorded confidence of a series, 0 when unavailable.
func (e *Engine) confidenceOf(seriesID string) float64 {
	s, err := e.store.Get(seriesID)
	if err != nil {
		return 0
	}
	return s.Confidence
}
