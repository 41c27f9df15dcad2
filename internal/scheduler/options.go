package scheduler

import (
	"log/slog"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/domain/srs"
)

// ParamsProvider supplies the algorithm parameters for the next grading call.
// The scheduling policy implements it.
type ParamsProvider interface {
	Params() *srs.Params
}

type defaultParams struct{}

func (defaultParams) Params() *srs.Params { return srs.NewDefaultParams() }

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the time zone whose midnights delimit study days.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithParams makes the scheduler read its algorithm parameters from p on
// every grading call. Without it the classic SuperMemo-2 constants apply.
func WithParams(p ParamsProvider) Option {
	return func(s *Scheduler) {
		if p != nil {
			s.params = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRetentionDays keeps review events of the trailing days local calendar
// days only, counting today. Older events are dropped on every grading call
// and on Restore. Zero or less keeps every event.
func WithRetentionDays(days int) Option {
	return func(s *Scheduler) {
		s.retentionDays = days
	}
}
