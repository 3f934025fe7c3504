package executor

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/panics"
)

// Tracker is a Handle whose outcome is recorded exactly once by the goroutine
// doing the work. Fields are written before done is closed and only read
// after, so no lock is needed.
type Tracker struct {
	once   sync.Once
	done   chan struct{}
	output []string
	err    error
}

// NewTracker returns a Tracker in the running state.
func NewTracker() *Tracker {
	return &Tracker{done: make(chan struct{})}
}

// Finish records the outcome. Only the first call has any effect; it returns
// false for every later call.
func (t *Tracker) Finish(output []string, err error) bool {
	finished := false
	t.once.Do(func() {
		t.output = output
		t.err = err
		close(t.done)
		finished = true
	})
	return finished
}

// State implements Handle.
func (t *Tracker) State() State {
	select {
	case <-t.done:
		if t.err != nil {
			return StateFailed
		}
		return StateSucceeded
	default:
		return StateRunning
	}
}

// Result implements Handle.
func (t *Tracker) Result() ([]string, error) {
	select {
	case <-t.done:
		return t.output, t.err
	default:
		return nil, ErrNotFinished
	}
}

// Done implements Handle.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// Func adapts a plain Go function into an Executor. Each Start runs the
// function on its own goroutine; a panic becomes a HostError.
type Func func(ctx context.Context, spec Spec) ([]string, error)

// Start implements Executor.
func (f Func) Start(ctx context.Context, spec Spec) (Handle, error) {
	t := NewTracker()
	go func() {
		var (
			output []string
			err    error
			pc     panics.Catcher
		)
		pc.Try(func() { output, err = f(ctx, spec) })
		if r := pc.Recovered(); r != nil {
			err = &HostError{Err: r.AsError()}
		}
		t.Finish(output, err)
	}()
	return t, nil
}
