// Package scheduler runs a job at a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	apperrors "github.com/allisson/pfbackup/internal/errors"
)

// ErrInvalidSchedule indicates a schedule that is not <quantity><unit>.
var ErrInvalidSchedule = apperrors.Wrap(
	apperrors.ErrInvalidInput,
	"invalid backup schedule, expected <quantity><unit> with unit one of min, hr, d, wk",
)

var schedulePattern = regexp.MustCompile(`^(\d+)(min|hr|d|wk)$`)

var units = map[string]time.Duration{
	"min": time.Minute,
	"hr":  time.Hour,
	"d":   24 * time.Hour,
	"wk":  7 * 24 * time.Hour,
}

// ParseInterval parses schedules such as "30min", "6hr", "1d" or "2wk".
func ParseInterval(schedule string) (time.Duration, error) {
	match := schedulePattern.FindStringSubmatch(schedule)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSchedule, schedule)
	}

	quantity, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || quantity < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSchedule, schedule)
	}

	unit := units[match[2]]
	if quantity > int64(time.Duration(1<<63-1)/unit) {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidSchedule, schedule)
	}
	return time.Duration(quantity) * unit, nil
}

// Job is one scheduled run.
type Job func(ctx context.Context) error

// Scheduler invokes a Job every interval. The first run happens one interval after Run
// starts. Runs never overlap: a run that outlasts the interval delays the next tick.
type Scheduler struct {
	interval time.Duration
	job      Job
	logger   *slog.Logger
}

// New creates a Scheduler.
func New(interval time.Duration, job Job, logger *slog.Logger) *Scheduler {
	return &Scheduler{interval: interval, job: job, logger: logger}
}

// Run blocks until ctx is done. Job errors are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidSchedule)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", slog.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			start := time.Now()
			if err := s.job(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("scheduled job failed",
					slog.Any("error", err),
					slog.Duration("duration", time.Since(start)),
				)
				continue
			}
			s.logger.Debug("scheduled job finished", slog.Duration("duration", time.Since(start)))
		}
	}
}
