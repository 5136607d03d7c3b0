package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"FeedPublisher/internal/ports"
)

// IntervalScheduler runs a job immediately and then every interval.
type IntervalScheduler struct {
	interval time.Duration
	logger   *slog.Logger
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler with a fixed wall-clock interval.
func NewIntervalScheduler(interval time.Duration, log *slog.Logger) *IntervalScheduler {
	return &IntervalScheduler{interval: interval, logger: log}
}

// Run blocks until ctx is done. Each cycle gets a context that ignores the
// cancellation of ctx, so an interrupt lets the running cycle finish.
func (s *IntervalScheduler) Run(ctx context.Context, job func(context.Context)) error {
	if job == nil {
		return nil
	}
	if s.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", s.interval)
	}

	cycleCtx := context.WithoutCancel(ctx)
	for {
		job(cycleCtx)

		if ctx.Err() != nil {
			s.info("scheduler stopped")
			return nil
		}

		s.info("next cycle scheduled", "in", s.interval, "at", time.Now().Add(s.interval).Format(time.RFC3339))
		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.info("scheduler stopped")
			return nil
		case <-timer.C:
		}
	}
}

func (s *IntervalScheduler) info(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}
