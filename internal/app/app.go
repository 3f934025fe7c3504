package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/specialistvlad/jobgrid/internal/config"
	"github.com/specialistvlad/jobgrid/internal/ctxlog"
	"github.com/specialistvlad/jobgrid/internal/dag"
	"github.com/specialistvlad/jobgrid/internal/executor"
	"github.com/specialistvlad/jobgrid/internal/job"
	"github.com/specialistvlad/jobgrid/internal/localexecutor"
	"github.com/specialistvlad/jobgrid/internal/statusstore"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	loader     config.Loader
	exec       executor.Executor
	status     *statusstore.Store
	httpServer *http.Server
	now        func() time.Time
}

// Option customises an App.
type Option func(*App)

// WithExecutor replaces the local shell executor, mainly for tests.
func WithExecutor(e executor.Executor) Option {
	return func(a *App) { a.exec = e }
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		loader: loader,
		status: statusstore.New(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.exec == nil {
		var execOpts []localexecutor.Option
		if cfg.Shell != "" {
			execOpts = append(execOpts, localexecutor.WithShell(cfg.Shell))
		}
		a.exec = localexecutor.New(execOpts...)
	}
	return a
}

// Status exposes the live job status store. This is primarily for testing.
func (a *App) Status() *statusstore.Store {
	return a.status
}

// LoadJobs reads the job files and validates the dependency graph. With
// strict, cycles are rejected too. Every failure wraps ErrConfig.
func (a *App) LoadJobs(ctx context.Context, strict bool) (*job.Set, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("Loading jobs...", "path", a.config.JobsPath)

	model, err := a.loader.Load(ctx, a.config.JobsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load jobs: %w", ErrConfig, err)
	}

	set, err := model.JobSet()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if err := dag.Validate(set, strict); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	a.logger.Debug("Jobs loaded and validated.", "count", set.Len(), "strict", strict)
	return set, nil
}

// Validate loads the job files and checks the graph, cycles included,
// without running anything.
func (a *App) Validate(ctx context.Context) error {
	set, err := a.LoadJobs(ctx, true)
	if err != nil {
		return err
	}
	a.logger.Info("✅ Job graph is valid", "jobs", set.Len())
	return nil
}

// PrintOrder writes the topological order, one job per line.
func (a *App) PrintOrder(ctx context.Context, w io.Writer) error {
	set, err := a.LoadJobs(ctx, a.config.StrictGraph)
	if err != nil {
		return err
	}
	for _, name := range dag.Names(dag.Order(set)) {
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}
