package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/jobgrid/internal/executor"
)

// Outcome is what a fake job reports when it finishes.
type Outcome struct {
	Output []string
	Err    error
}

// FakeExecutor is a scripted executor.Executor. By default every started job
// keeps running until the test finishes it with Succeed or Fail, which makes
// the interleaving of a run fully deterministic. Jobs configured with Auto
// finish the moment they start.
type FakeExecutor struct {
	// OnStart, when set, is called synchronously inside Start on the
	// scheduler's goroutine, before the handle is returned.
	OnStart func(spec executor.Spec)

	mu        sync.Mutex
	handles   map[string]*executor.Tracker
	records   map[string]*ExecutionRecord
	order     []string
	auto      map[string]Outcome
	startErrs map[string]error
	started   map[string]chan struct{}
}

// NewFakeExecutor returns an executor with no scripted behaviour.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{
		handles:   make(map[string]*executor.Tracker),
		records:   make(map[string]*ExecutionRecord),
		auto:      make(map[string]Outcome),
		startErrs: make(map[string]error),
		started:   make(map[string]chan struct{}),
	}
}

// Auto makes job name finish with outcome as soon as it starts.
func (f *FakeExecutor) Auto(name string, outcome Outcome) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auto[name] = outcome
	return f
}

// FailStart makes Start return err for job name, as if the host could not
// launch it.
func (f *FakeExecutor) FailStart(name string, err error) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startErrs[name] = err
	return f
}

// Start implements executor.Executor.
func (f *FakeExecutor) Start(_ context.Context, spec executor.Spec) (executor.Handle, error) {
	if f.OnStart != nil {
		f.OnStart(spec)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.startErrs[spec.Name]; ok {
		return nil, err
	}

	t := executor.NewTracker()
	f.handles[spec.Name] = t
	f.records[spec.Name] = &ExecutionRecord{Start: time.Now()}
	f.order = append(f.order, spec.Name)
	close(f.startedChan(spec.Name))

	if outcome, ok := f.auto[spec.Name]; ok {
		f.records[spec.Name].End = time.Now()
		t.Finish(outcome.Output, outcome.Err)
	}
	return t, nil
}

// Succeed finishes a started job successfully.
func (f *FakeExecutor) Succeed(t *testing.T, name string, output ...string) {
	t.Helper()
	f.finish(t, name, Outcome{Output: output})
}

// Fail finishes a started job with err.
func (f *FakeExecutor) Fail(t *testing.T, name string, err error, output ...string) {
	t.Helper()
	f.finish(t, name, Outcome{Output: output, Err: err})
}

func (f *FakeExecutor) finish(t *testing.T, name string, outcome Outcome) {
	t.Helper()
	f.mu.Lock()
	h, ok := f.handles[name]
	if ok {
		f.records[name].End = time.Now()
	}
	f.mu.Unlock()

	if !ok {
		t.Fatalf("job %q was never started", name)
	}
	if !h.Finish(outcome.Output, outcome.Err) {
		t.Fatalf("job %q was already finished", name)
	}
}

// WaitStarted blocks until job name has been started, failing the test after
// a generous timeout.
func (f *FakeExecutor) WaitStarted(t *testing.T, name string) {
	t.Helper()
	f.mu.Lock()
	ch := f.startedChan(name)
	f.mu.Unlock()

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("job %q was not started in time", name)
	}
}

// IsStarted reports whether job name has been started.
func (f *FakeExecutor) IsStarted(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handles[name]
	return ok
}

// Started returns job names in the order they were started.
func (f *FakeExecutor) Started() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Record returns the wall-clock record of job name.
func (f *FakeExecutor) Record(name string) (ExecutionRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[name]
	if !ok {
		return ExecutionRecord{}, false
	}
	return *r, true
}

// startedChan must be called with f.mu held.
func (f *FakeExecutor) startedChan(name string) chan struct{} {
	ch, ok := f.started[name]
	if !ok {
		ch = make(chan struct{})
		f.started[name] = ch
	}
	return ch
}
