// Package localexecutor runs job scripts as local shell processes.
//
// Each script gets its own process (and process group) and its own
// supervising goroutine. Processes are deliberately detached from the caller's
// context: cancelling a run abandons them rather than killing them. Shutdown
// is the explicit, opt-in way to reclaim them.
package localexecutor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"github.com/specialistvlad/jobgrid/internal/ctxlog"
	"github.com/specialistvlad/jobgrid/internal/executor"
)

// DefaultShell is used when neither the executor nor the job names one.
const DefaultShell = "bash -eo pipefail -c"

// outputDrainDelay bounds how long a finished script's output pipes may be
// held open by background children it left behind.
const outputDrainDelay = 2 * time.Second

// Executor implements executor.Executor with os/exec.
type Executor struct {
	shell []string
	env   []string

	wg    conc.WaitGroup
	mu    sync.Mutex
	procs map[*exec.Cmd]struct{}
}

// Option configures an Executor.
type Option func(*Executor)

// WithShell sets the default shell command line. The script is appended as
// the final argument.
func WithShell(shell string) Option {
	return func(e *Executor) {
		if fields := strings.Fields(shell); len(fields) > 0 {
			e.shell = fields
		}
	}
}

// WithBaseEnv replaces the environment jobs inherit. It defaults to the
// current process environment.
func WithBaseEnv(env []string) Option {
	return func(e *Executor) { e.env = env }
}

// New creates a local executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		shell: strings.Fields(DefaultShell),
		env:   os.Environ(),
		procs: make(map[*exec.Cmd]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches spec.Script and returns as soon as the process exists.
func (e *Executor) Start(ctx context.Context, spec executor.Spec) (executor.Handle, error) {
	logger := ctxlog.FromContext(ctx).With("job", spec.Name)

	shell := e.shell
	if fields := strings.Fields(spec.Shell); len(fields) > 0 {
		shell = fields
	}
	args := append(append([]string{}, shell[1:]...), spec.Script)

	cmd := exec.CommandContext(context.WithoutCancel(ctx), shell[0], args...)
	cmd.Dir = spec.WorkDir
	cmd.Env = mergeEnv(e.env, spec.Env)
	cmd.WaitDelay = outputDrainDelay
	setProcessGroup(cmd)

	// os/exec serialises writes when Stdout and Stderr are the same writer,
	// which keeps the two streams interleaved in arrival order.
	out := &lineWriter{}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return nil, &executor.HostError{Err: fmt.Errorf("failed to start %s: %w", shell[0], err)}
	}
	logger.Debug("Script launched.", "pid", cmd.Process.Pid, "shell", shell[0])

	e.track(cmd)
	h := executor.NewTracker()
	e.wg.Go(func() {
		defer e.untrack(cmd)

		var (
			lines  []string
			runErr error
			pc     panics.Catcher
		)
		pc.Try(func() {
			runErr = classify(cmd.Wait())
			lines = out.Lines()
		})
		if r := pc.Recovered(); r != nil {
			runErr = &executor.HostError{Err: r.AsError()}
		}
		h.Finish(lines, runErr)
	})
	return h, nil
}

// Shutdown kills every process still running and waits for their supervisors
// to finish, or for ctx to expire.
func (e *Executor) Shutdown(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	e.mu.Lock()
	killed := 0
	for cmd := range e.procs {
		if err := killProcessGroup(cmd); err != nil {
			logger.Warn("Failed to kill abandoned script.", "pid", cmd.Process.Pid, "error", err)
			continue
		}
		killed++
	}
	e.mu.Unlock()
	if killed > 0 {
		logger.Info("🧹 Killed abandoned scripts.", "count", killed)
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for scripts to exit: %w", ctx.Err())
	}
}

// Running returns how many processes are still being supervised.
func (e *Executor) Running() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.procs)
}

func (e *Executor) track(cmd *exec.Cmd) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.procs[cmd] = struct{}{}
}

func (e *Executor) untrack(cmd *exec.Cmd) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.procs, cmd)
}

// classify maps a Wait error onto the two failure kinds.
func classify(err error) error {
	if err == nil || errors.Is(err, exec.ErrWaitDelay) {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return &executor.ScriptError{ExitCode: code}
		}
		return &executor.HostError{Err: fmt.Errorf("script terminated: %w", err)}
	}
	return &executor.HostError{Err: err}
}

// mergeEnv overlays extra on base. Keys from extra win and are appended in
// sorted order.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, override := extra[key]; override {
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}
	return out
}
