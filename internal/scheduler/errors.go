package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrRunFailed is the run-level failure raised after the first job fails.
	ErrRunFailed = errors.New("some jobs did not complete successfully")
	// ErrStalled means Pending jobs remain but none can ever be admitted, for
	// example because their needs form a cycle.
	ErrStalled = errors.New("no runnable jobs remain")
	// ErrInterrupted wraps the context error when a run is cancelled.
	ErrInterrupted = errors.New("run interrupted")
	// ErrAlreadyRun is returned by a second call to Run.
	ErrAlreadyRun = errors.New("scheduler has already run")
)

// JobError attributes a failure to the job that caused it.
type JobError struct {
	Name string
	Err  error
	// Blocked lists the jobs downstream of Name, in declaration order. None
	// of them will start in this run.
	Blocked []string
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job '%s' failed: %v", e.Name, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }
