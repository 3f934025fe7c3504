package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/jobgrid/internal/ctxlog"
	"github.com/specialistvlad/jobgrid/internal/dag"
	"github.com/specialistvlad/jobgrid/internal/events"
	"github.com/specialistvlad/jobgrid/internal/executor"
	"github.com/specialistvlad/jobgrid/internal/job"
)

// Scheduler runs one job set to completion or to its first failure.
type Scheduler struct {
	set          *job.Set
	jobs         []*job.Job
	graph        *dag.Graph
	exec         executor.Executor
	pollInterval time.Duration
	observer     events.Observer
	now          func() time.Time

	ran atomic.Bool
	// wake coalesces Done notifications from every running handle.
	wake chan struct{}
}

// New creates a scheduler for set. The set must not be modified by anyone
// else once Run has been called.
func New(set *job.Set, exec executor.Executor, opts ...Option) *Scheduler {
	s := &Scheduler{
		set:          set,
		jobs:         set.Jobs(),
		graph:        dag.FromSet(set),
		exec:         exec,
		pollInterval: DefaultPollInterval,
		observer:     events.Nop,
		now:          time.Now,
		wake:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run drives the set until every job is Completed, a job fails, no job can
// make progress, or ctx is cancelled. It returns nil only if every job
// Completed. The set is left intact for reporting in every case.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	logger := ctxlog.FromContext(ctx)

	// Closing stop releases the Done watchers of abandoned handles.
	stop := make(chan struct{})
	defer close(stop)

	logger.Debug("Starting scheduler loop.", "jobs", len(s.jobs), "pollInterval", s.pollInterval)
	for cycle := 1; ; cycle++ {
		if err := ctx.Err(); err != nil {
			return s.interrupted(ctx, err)
		}

		if err := s.sweepCompletions(ctx); err != nil {
			return err
		}
		admitted, err := s.sweepAdmissions(ctx, stop)
		if err != nil {
			return err
		}

		counts := s.set.Count()
		logger.Debug("Sweep finished.",
			"cycle", cycle,
			"admitted", admitted,
			"pending", counts[job.Pending],
			"running", counts[job.Running],
			"completed", counts[job.Completed],
		)

		if counts[job.Running] == 0 {
			if counts[job.Pending] == 0 {
				logger.Debug("All jobs completed.", "cycles", cycle)
				return nil
			}
			return s.stalled(ctx)
		}
		if admitted > 0 {
			continue
		}
		s.wait(ctx)
	}
}

// sweepCompletions polls every Running job in declaration order and stops at
// the first failure.
func (s *Scheduler) sweepCompletions(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	for _, j := range s.jobs {
		if j.Status() != job.Running {
			continue
		}
		h := j.Handle()
		state := h.State()
		if !state.Terminal() {
			continue
		}

		output, err := h.Result()
		now := s.now()
		if state == executor.StateSucceeded && err == nil {
			if terr := j.Complete(now, output); terr != nil {
				return terr
			}
			logger.Debug("Job finished.", "job", j.Name, "duration", j.Duration())
			s.observer.Observe(ctx, events.ForJob(events.KindCompleted, j, now))
			continue
		}

		if err == nil {
			err = &executor.HostError{Err: errors.New("executor reported failure without detail")}
		}
		if terr := j.Fail(now, output, err); terr != nil {
			return terr
		}
		s.observer.Observe(ctx, events.ForJob(events.KindFailed, j, now))
		return s.abort(ctx, j)
	}
	return nil
}

// sweepAdmissions starts every admissible job and reports how many started.
func (s *Scheduler) sweepAdmissions(ctx context.Context, stop <-chan struct{}) (int, error) {
	logger := ctxlog.FromContext(ctx)
	admitted := 0

	for _, j := range s.jobs {
		if !s.set.Admissible(j) {
			continue
		}

		logger.Debug("Admitting job.", "job", j.Name, "needs", j.Needs)
		h, err := s.exec.Start(ctx, j.Spec())
		now := s.now()
		if err == nil && h == nil {
			err = errors.New("executor returned no handle")
		}
		if err != nil {
			if !executor.IsHostFailure(err) {
				err = &executor.HostError{Err: err}
			}
			// A job that could not launch still passes through Running so its
			// status history stays a valid prefix.
			if terr := j.Start(nil, now); terr != nil {
				return admitted, terr
			}
			if terr := j.Fail(now, nil, err); terr != nil {
				return admitted, terr
			}
			s.observer.Observe(ctx, events.ForJob(events.KindFailed, j, now))
			return admitted, s.abort(ctx, j)
		}

		if terr := j.Start(h, now); terr != nil {
			return admitted, terr
		}
		s.observer.Observe(ctx, events.ForJob(events.KindStarted, j, now))
		s.watch(h, stop)
		admitted++
	}
	return admitted, nil
}

// watch nudges the loop as soon as h finishes.
func (s *Scheduler) watch(h executor.Handle, stop <-chan struct{}) {
	done := h.Done()
	if done == nil {
		return
	}
	go func() {
		select {
		case <-done:
			select {
			case s.wake <- struct{}{}:
			default:
			}
		case <-stop:
		}
	}()
}

// wait blocks until a handle finishes, the poll interval elapses, or ctx is
// done, whichever comes first.
func (s *Scheduler) wait(ctx context.Context) {
	timer := time.NewTimer(s.pollInterval)
	defer timer.Stop()

	select {
	case <-s.wake:
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (s *Scheduler) abort(ctx context.Context, failed *job.Job) error {
	logger := ctxlog.FromContext(ctx)

	var abandoned []string
	for _, j := range s.jobs {
		if j.Status() == job.Running {
			abandoned = append(abandoned, j.Name)
		}
	}
	blocked := s.downstream(failed.Name)
	logger.Error("Aborting run.", "failedJob", failed.Name, "error", failed.Err(), "abandoned", abandoned, "blocked", blocked)

	return fmt.Errorf("%w: %w", ErrRunFailed, &JobError{Name: failed.Name, Err: failed.Err(), Blocked: blocked})
}

// downstream returns every job that transitively needs name, in declaration
// order.
func (s *Scheduler) downstream(name string) []string {
	reached := make(map[string]bool)
	queue := []string{name}
	for len(queue) > 0 {
		next, _ := s.graph.Dependents(queue[0])
		queue = queue[1:]
		for _, d := range next {
			if !reached[d] {
				reached[d] = true
				queue = append(queue, d)
			}
		}
	}

	var out []string
	for _, j := range s.jobs {
		if reached[j.Name] && j.Name != name {
			out = append(out, j.Name)
		}
	}
	return out
}

func (s *Scheduler) stalled(ctx context.Context) error {
	var pending []string
	for _, j := range s.jobs {
		if j.Status() == job.Pending {
			pending = append(pending, j.Name)
		}
	}
	ctxlog.FromContext(ctx).Error("No job can be admitted.", "pending", pending)
	return fmt.Errorf("%w: still pending: %s", ErrStalled, strings.Join(pending, ", "))
}

func (s *Scheduler) interrupted(ctx context.Context, cause error) error {
	var abandoned []string
	for _, j := range s.jobs {
		if j.Status() == job.Running {
			abandoned = append(abandoned, j.Name)
		}
	}
	ctxlog.FromContext(ctx).Warn("Run interrupted.", "abandoned", abandoned)
	return fmt.Errorf("%w: %w", ErrInterrupted, cause)
}
