package usecase

import (
	"context"
	"fmt"

	"FeedPublisher/internal/ports"
)

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	// onCycle observes every finished cycle; optional.
	onCycle func(RunResult)
}

// NewScheduler returns a helper that runs the pipeline on every tick.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, onCycle func(RunResult)) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, onCycle: onCycle}
}

// Run blocks until ctx is cancelled and the in-flight cycle has finished.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return fmt.Errorf("scheduler is not configured")
	}

	return s.driver.Run(ctx, func(cycleCtx context.Context) {
		result := s.pipeline.RunOnce(cycleCtx)
		if s.onCycle != nil {
			s.onCycle(result)
		}
	})
}
