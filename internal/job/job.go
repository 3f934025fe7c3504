// Package job holds the Task Record: a named script, the names it needs, and
// the status machine the scheduler drives it through.
//
// Status only ever moves forward along Pending -> Running -> {Completed,
// Failed}. Every transition method checks its source state and refuses
// anything else with ErrInvalidTransition, so a caller cannot move a job
// backwards even by mistake.
package job

import (
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/jobgrid/internal/executor"
)

// ErrInvalidTransition is returned when a transition is attempted from the
// wrong source status.
var ErrInvalidTransition = errors.New("invalid status transition")

// Job is a single schedulable unit of work.
type Job struct {
	// Name is the unique key every other job refers to this one by.
	Name string
	// Script is handed to the executor untouched.
	Script string
	// Needs lists the jobs that must be Completed before this one starts,
	// in declaration order.
	Needs []string

	// Executor hints. The scheduler never looks at these.
	Env     map[string]string
	Shell   string
	WorkDir string

	status    Status
	handle    executor.Handle
	startTime time.Time
	endTime   time.Time
	output    []string
	err       error
}

// Status returns the job's current status.
func (j *Job) Status() Status { return j.status }

// Handle returns the executor handle owned by this job, or nil if it never
// got one.
func (j *Job) Handle() executor.Handle { return j.handle }

// StartTime is the zero time until the job enters Running.
func (j *Job) StartTime() time.Time { return j.startTime }

// EndTime is the zero time until the job reaches a terminal status.
func (j *Job) EndTime() time.Time { return j.endTime }

// Started reports whether the job was ever admitted.
func (j *Job) Started() bool { return !j.startTime.IsZero() }

// Finished reports whether the job reached a terminal status.
func (j *Job) Finished() bool { return !j.endTime.IsZero() }

// Duration is EndTime - StartTime for finished jobs and zero otherwise.
func (j *Job) Duration() time.Duration {
	if !j.Started() || !j.Finished() {
		return 0
	}
	return j.endTime.Sub(j.startTime)
}

// Output returns the captured output lines, in order.
func (j *Job) Output() []string { return j.output }

// Err returns the failure detail of a Failed job.
func (j *Job) Err() error { return j.err }

// Spec converts the job into the request an executor understands.
func (j *Job) Spec() executor.Spec {
	return executor.Spec{
		Name:    j.Name,
		Script:  j.Script,
		Shell:   j.Shell,
		Env:     j.Env,
		WorkDir: j.WorkDir,
	}
}

// Start moves a Pending job to Running and takes ownership of h. A nil handle
// is accepted for jobs whose launch failed and that are about to be failed.
func (j *Job) Start(h executor.Handle, at time.Time) error {
	if j.status != Pending {
		return j.invalid(Running)
	}
	j.status = Running
	j.handle = h
	j.startTime = at
	return nil
}

// Complete moves a Running job to Completed.
func (j *Job) Complete(at time.Time, output []string) error {
	if j.status != Running {
		return j.invalid(Completed)
	}
	j.status = Completed
	j.endTime = j.clampEnd(at)
	j.output = output
	return nil
}

// Fail moves a Running job to Failed and records err.
func (j *Job) Fail(at time.Time, output []string, err error) error {
	if j.status != Running {
		return j.invalid(Failed)
	}
	if err == nil {
		err = errors.New("job failed without error detail")
	}
	j.status = Failed
	j.endTime = j.clampEnd(at)
	j.output = output
	j.err = err
	return nil
}

// clampEnd keeps EndTime from preceding StartTime when the clock steps back.
func (j *Job) clampEnd(at time.Time) time.Time {
	if at.Before(j.startTime) {
		return j.startTime
	}
	return at
}

func (j *Job) invalid(to Status) error {
	return fmt.Errorf("%w: job '%s' %s -> %s", ErrInvalidTransition, j.Name, j.status, to)
}
