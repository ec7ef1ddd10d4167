package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/ports"
)

// Scheduler wires the cron-like driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler. Each trigger is
// fire-and-forget: the outcome is only logged.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		report, err := s.pipeline.RunDailyMatch(ctx)
		switch {
		case errors.Is(err, domain.ErrRunInProgress):
			s.logger.Info("trigger ignored, run in progress", "trigger", trigger)
		case err != nil:
			s.logger.Error("scheduled run failed", "trigger", trigger, "run_id", report.RunID, "error", err)
		default:
			s.logger.Info("scheduled run completed", "trigger", trigger, "run_id", report.RunID, "sent", report.Sent, "failed", report.Failed)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
