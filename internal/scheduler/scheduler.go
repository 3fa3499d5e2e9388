// Package scheduler runs analysis jobs on a cron timetable.
package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler manages cron-driven jobs.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a scheduler. Cron expressions use the standard five-field
// format.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Register schedules job under the given cron expression.
func (s *Scheduler) Register(expr string, job func()) error {
	if _, err := s.cron.AddFunc(expr, job); err != nil {
		return fmt.Errorf("register job %q: %w", expr, err)
	}
	s.log.Info().Str("cron", expr).Msg("job registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}
