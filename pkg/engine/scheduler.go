package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Poxagronka/fireflies-summary/pkg/logging"
)

// Scheduler runs the engine's drain pass on a fixed interval. The engine
// itself manages no timing; the scheduler is the external periodic trigger.
type Scheduler struct {
	cron   *cron.Cron
	engine *Engine
	log    logging.Logger
}

// NewScheduler creates a scheduler draining the engine every interval.
func NewScheduler(e *Engine, interval time.Duration, log logging.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler interval must be positive, got %s", interval)
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	s := &Scheduler{
		cron:   cron.New(),
		engine: e,
		log:    log,
	}

	spec := fmt.Sprintf("@every %s", interval)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("registering drain job: %w", err)
	}
	return s, nil
}

// Start begins the periodic trigger. It runs one immediate drain so a restart
// does not wait a full interval to catch up.
func (s *Scheduler) Start() {
	s.tick()
	s.cron.Start()
}

// Stop halts the trigger and waits for a running drain to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// tick runs one drain pass. A misclassification or skipped payload degrades
// summary relevance; it never crashes the loop.
func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	assignments, err := s.engine.Drain(ctx)
	if err != nil {
		s.log.Error("drain pass failed", logging.Err(err))
		return
	}
	if len(assignments) > 0 {
		s.log.Info("drain pass complete",
			logging.F("assignments", len(assignments)))
	}
}
