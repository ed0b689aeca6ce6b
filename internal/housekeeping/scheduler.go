package housekeeping

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type Scheduler struct {
	Runner   Runner
	Interval time.Duration
	Logger   *slog.Logger
}

// Run executes the runner once at startup and then every Interval until ctx
// is done. A skipped pass because another process holds the lock is not an
// error.
func (s *Scheduler) Run(ctx context.Context) {
	if s.Runner == nil || s.Interval <= 0 {
		return
	}

	s.runOnce(ctx, "initial refresh failed")

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, "scheduled refresh failed")
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, msg string) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	err := s.Runner.RunOnce(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyRunning):
		logger.Info("refresh skipped", "reason", err.Error())
	case ctx.Err() != nil:
	default:
		logger.Error(msg, "err", err)
	}
}
