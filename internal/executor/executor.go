// Package executor defines the contract between the scheduler and whatever
// actually runs a job's script.
//
// An Executor starts a script and immediately hands back a Handle. The handle
// progresses on its own; the scheduler only ever polls it, or waits on Done()
// to be woken early. No ordering is promised between distinct handles.
package executor

import (
	"context"
	"errors"
)

// State is the live state of a started unit of work.
type State int

const (
	// StateRunning means the script has not reached a terminal state yet.
	StateRunning State = iota
	// StateSucceeded means the script finished without error.
	StateSucceeded
	// StateFailed means the script or the host running it reported an error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state will no longer change.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// ErrNotFinished is returned by Handle.Result while the work is still running.
var ErrNotFinished = errors.New("execution has not finished")

// Spec is everything an executor needs to start one job. The scheduler never
// inspects Script.
type Spec struct {
	Name    string
	Script  string
	Shell   string
	Env     map[string]string
	WorkDir string
}

// Executor starts scripts as independently progressing units of work.
type Executor interface {
	// Start begins execution of spec and returns without waiting for it.
	// A non-nil error means the host could not launch the work at all.
	Start(ctx context.Context, spec Spec) (Handle, error)
}

// Handle is the scheduler's view of one started unit of work. A handle is
// owned by exactly one job.
type Handle interface {
	// State is non-blocking and reflects current progress.
	State() State
	// Result returns the captured output lines and the failure detail, if any.
	// It returns ErrNotFinished until State is terminal.
	Result() ([]string, error)
	// Done is closed once the work reaches a terminal state.
	Done() <-chan struct{}
}
