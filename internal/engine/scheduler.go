package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the poll cycle on a fixed cadence. A cycle that outlasts
// the interval causes the next trigger to be skipped, so at most one poll is
// in flight at a time.
type Scheduler struct {
	cron   *cron.Cron
	engine *Engine
	log    *slog.Logger
}

// NewScheduler creates a Scheduler polling at the given interval.
func NewScheduler(
	eng *Engine,
	interval time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger{log: log}),
	))

	s := &Scheduler{
		cron:   c,
		engine: eng,
		log:    log,
	}

	if _, err := c.AddFunc("@every "+interval.String(), s.runCycle); err != nil {
		return nil, err
	}

	return s, nil
}

// Start runs one immediate cycle and then begins the schedule.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.runCycle()
	s.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for a running cycle to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runCycle() {
	ctx := context.Background()
	if err := s.engine.RunCycle(ctx); err != nil {
		s.log.Warn("poll cycle failed", "error", err)
	}
}

// cronLogger adapts slog to the cron logging interface so skipped triggers
// show up in the watcher's log.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Info(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
