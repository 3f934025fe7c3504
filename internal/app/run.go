package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/jobgrid/internal/artifacts"
	"github.com/specialistvlad/jobgrid/internal/ctxlog"
	"github.com/specialistvlad/jobgrid/internal/events"
	"github.com/specialistvlad/jobgrid/internal/history"
	"github.com/specialistvlad/jobgrid/internal/job"
	"github.com/specialistvlad/jobgrid/internal/report"
	"github.com/specialistvlad/jobgrid/internal/scheduler"
)

const (
	shutdownTimeout       = 10 * time.Second
	publisherTimeout      = 5 * time.Second
	historyPingTimeout    = 5 * time.Second
	historyRecordDeadline = 10 * time.Second
)

// shutdowner is implemented by executors that can kill abandoned work.
type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Run executes one full run: load, schedule, report. A failed or interrupted
// run returns the scheduler's error even when reporting fails too; a report
// failure alone wraps report.ErrReport.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	set, err := a.LoadJobs(ctx, a.config.StrictGraph)
	if err != nil {
		return err
	}
	if set.Len() == 0 {
		a.logger.Warn("No jobs found, execution not required.", "path", a.config.JobsPath)
	}

	runID := uuid.NewString()
	ctx, logger := ctxlog.With(ctx, "run_id", runID)
	a.status.Seed(set)

	if err := a.startHealthcheckServer(ctx); err != nil {
		return err
	}
	defer a.closeHealthcheckServer(ctx)

	observer, closeObservers := a.observers(ctx, runID)
	defer closeObservers()

	logger.Info("🚀 Starting run", "jobs", set.Len())
	sched := scheduler.New(set, a.exec,
		scheduler.WithPollInterval(a.pollInterval()),
		scheduler.WithObserver(observer),
		scheduler.WithClock(a.now),
	)
	runErr := sched.Run(ctx)

	// Reporting still happens after an interrupt.
	ctx = context.WithoutCancel(ctx)
	observer.Observe(ctx, events.Event{Kind: events.KindRunFinished, At: a.now(), Err: runErr})

	if runErr != nil && a.config.KillOnAbort {
		a.killAbandoned(ctx)
	}

	rep := report.Build(runID, set, runErr)
	reportErr := a.deliverReport(ctx, rep)
	a.recordHistory(ctx, rep)

	if runErr != nil {
		logger.Error("❌ Run failed", "error", runErr)
		if reportErr != nil {
			logger.Error("Report could not be delivered", "error", reportErr)
		}
		return runErr
	}

	counts := set.Count()
	logger.Info("✅ All jobs completed", "completed", counts[job.Completed], "wall_clock", rep.Metrics.WallClock.String())
	return reportErr
}

func (a *App) pollInterval() time.Duration {
	if a.config.PollInterval > 0 {
		return a.config.PollInterval
	}
	return scheduler.DefaultPollInterval
}

// observers assembles the console, status store and optional socket.io
// publisher into one observer. The returned func releases them.
func (a *App) observers(ctx context.Context, runID string) (events.Observer, func()) {
	list := []events.Observer{
		events.NewConsole(a.outW, a.config.GitHubAnnotations),
		a.status,
	}
	closeFn := func() {}

	if a.config.EventsURL != "" {
		pub, err := events.Connect(ctx, events.PublisherConfig{
			URL:                a.config.EventsURL,
			InsecureSkipVerify: a.config.EventsInsecure,
			ConnectTimeout:     publisherTimeout,
			RunID:              runID,
		})
		if err != nil {
			// Live progress is advisory; the run goes ahead without it.
			ctxlog.FromContext(ctx).Warn("Event publisher unavailable", "url", a.config.EventsURL, "error", err)
		} else {
			list = append(list, pub)
			closeFn = pub.Close
		}
	}
	return events.Multi(list...), closeFn
}

func (a *App) killAbandoned(ctx context.Context) {
	s, ok := a.exec.(shutdowner)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		ctxlog.FromContext(ctx).Warn("Abandoned scripts did not exit in time", "error", err)
	}
}

// deliverReport prints the terminal table and writes every configured
// destination. All destinations are attempted; failures are joined.
func (a *App) deliverReport(ctx context.Context, rep *report.Report) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error

	if err := report.Render(a.outW, report.FormatTable, rep); err != nil {
		errs = append(errs, err)
	}

	if path := a.config.ReportPath; path != "" {
		format := a.config.ReportFormat
		if format == "" {
			format = report.FormatForPath(path)
		}
		if err := report.WriteFile(path, format, rep, false); err != nil {
			errs = append(errs, err)
		} else {
			logger.Info("Report written", "path", path, "format", format)
		}
	}

	if path := a.config.SummaryPath; path != "" {
		if err := report.WriteFile(path, report.FormatMarkdown, rep, true); err != nil {
			errs = append(errs, err)
		} else {
			logger.Debug("Step summary appended.", "path", path)
		}
	}

	if a.config.Artifacts.Enabled() {
		if err := a.uploadArtifacts(ctx, rep); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", report.ErrReport, err))
		}
	}

	return errors.Join(errs...)
}

func (a *App) uploadArtifacts(ctx context.Context, rep *report.Report) error {
	store, err := artifacts.New(a.config.Artifacts)
	if err != nil {
		return err
	}

	files := []struct{ name, format string }{
		{"report.md", report.FormatMarkdown},
		{"report.json", report.FormatJSON},
	}
	for _, f := range files {
		var buf bytes.Buffer
		if err := report.Render(&buf, f.format, rep); err != nil {
			return err
		}
		key, err := store.Upload(ctx, rep.RunID, f.name, buf.Bytes())
		if err != nil {
			return err
		}
		ctxlog.FromContext(ctx).Info("Report uploaded", "key", key)
	}
	return nil
}

// recordHistory appends the run to the history database. It is advisory:
// failures are logged and never change the run outcome.
func (a *App) recordHistory(ctx context.Context, rep *report.Report) {
	if a.config.HistoryDSN == "" {
		return
	}
	logger := ctxlog.FromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, historyRecordDeadline)
	defer cancel()

	rec, err := history.Open(ctx, history.Config{URL: a.config.HistoryDSN, PingTimeout: historyPingTimeout})
	if err != nil {
		logger.Warn("Run history unavailable", "error", err)
		return
	}
	defer rec.Close()

	if err := rec.Record(ctx, rep); err != nil {
		logger.Warn("Failed to record run history", "error", err)
	}
}
