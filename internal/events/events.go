// Package events carries live progress out of a run: job starts, completions,
// failures and the final run outcome.
//
// Events are advisory. Observers cannot fail a run and must not block the
// scheduler loop for long; anything slow belongs on its own goroutine.
package events

import (
	"context"
	"time"

	"github.com/specialistvlad/jobgrid/internal/job"
)

// Kind names an event. The values double as socket.io event names.
type Kind string

const (
	KindStarted     Kind = "job:started"
	KindCompleted   Kind = "job:completed"
	KindFailed      Kind = "job:failed"
	KindRunFinished Kind = "run:finished"
)

// Event is one observable step of a run.
type Event struct {
	Kind Kind
	// Job is empty for run-level events.
	Job    string
	Status job.Status
	At     time.Time
	// Output is set on completion and failure.
	Output []string
	// Err is the job failure, or the run outcome for KindRunFinished.
	Err error
}

// ForJob builds the event describing j's current state.
func ForJob(kind Kind, j *job.Job, at time.Time) Event {
	return Event{
		Kind:   kind,
		Job:    j.Name,
		Status: j.Status(),
		At:     at,
		Output: j.Output(),
		Err:    j.Err(),
	}
}

// Observer receives events in the order they happen.
type Observer interface {
	Observe(ctx context.Context, e Event)
}

// ObserverFunc adapts a function into an Observer.
type ObserverFunc func(ctx context.Context, e Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, e Event) { f(ctx, e) }

// Nop discards every event.
var Nop Observer = ObserverFunc(func(context.Context, Event) {})

// Multi fans every event out to each non-nil observer in turn.
func Multi(observers ...Observer) Observer {
	var list []Observer
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	switch len(list) {
	case 0:
		return Nop
	case 1:
		return list[0]
	}
	return ObserverFunc(func(ctx context.Context, e Event) {
		for _, o := range list {
			o.Observe(ctx, e)
		}
	})
}
