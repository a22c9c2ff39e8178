// Package scheduler repeats pipeline runs on an interval or a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/amishk599/jobfacet/internal/pipeline"
)

// Schedule yields the next activation time after t. cron.Schedule satisfies it.
type Schedule interface {
	Next(t time.Time) time.Time
}

type every time.Duration

func (e every) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

// Every returns a schedule firing d after each activation.
func Every(d time.Duration) Schedule { return every(d) }

// ParseSchedule parses a standard five-field cron expression or a descriptor
// such as "@daily" or "@every 6h".
func ParseSchedule(expr string) (Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return sched, nil
}

// Runner performs one pipeline pass.
type Runner interface {
	Run(ctx context.Context) (pipeline.Report, error)
}

// Cleaner prunes stored results older than a cutoff.
type Cleaner interface {
	Cleanup(olderThan time.Duration) error
}

// Scheduler owns the main loop: one immediate run, then one per activation
// of its schedule.
type Scheduler struct {
	runner    Runner
	schedule  Schedule
	cleaner   Cleaner
	retention time.Duration
	logger    *slog.Logger
}

// NewScheduler creates a scheduler. When cleaner is non-nil and retention is
// positive, results older than retention are removed after every run.
func NewScheduler(runner Runner, schedule Schedule, cleaner Cleaner, retention time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{
		runner:    runner,
		schedule:  schedule,
		cleaner:   cleaner,
		retention: retention,
		logger:    logger,
	}
}

// Run starts the loop. It returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler")
	s.runOnce(ctx)

	for {
		next := s.schedule.Next(time.Now())
		s.logger.Info("next run scheduled", "at", next.Format(time.DateTime))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("shutting down scheduler")
			return nil
		case <-timer.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error("pipeline run failed", "error", err, "report", report)
	}

	if s.cleaner != nil && s.retention > 0 {
		if err := s.cleaner.Cleanup(s.retention); err != nil {
			s.logger.Warn("cleanup failed", "error", err)
		}
	}
}
