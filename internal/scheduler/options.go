package scheduler

import (
	"time"

	"github.com/specialistvlad/jobgrid/internal/events"
)

// DefaultPollInterval bounds how long the loop sleeps when no handle has
// signalled completion.
const DefaultPollInterval = 50 * time.Millisecond

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPollInterval sets the bounded idle wait. Non-positive values are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithObserver sends job events to o.
func WithObserver(o events.Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock replaces time.Now for start and end timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}
