// Package history keeps an append-only record of finished runs in Postgres.
// Records are never read back by the scheduler.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/specialistvlad/jobgrid/internal/ctxlog"
	"github.com/specialistvlad/jobgrid/internal/report"
)

// Config locates the history database.
type Config struct {
	// URL is a Postgres connection string understood by pgx.
	URL string
	// PingTimeout bounds the connectivity check Open performs.
	PingTimeout time.Duration
}

// Validate reports a missing URL or a non-positive ping timeout.
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("history database URL is required")
	}
	if c.PingTimeout <= 0 {
		return errors.New("history ping timeout must be positive")
	}
	return nil
}

const schema = `CREATE TABLE IF NOT EXISTS jobgrid_runs (
	run_id           TEXT PRIMARY KEY,
	started_at       TIMESTAMPTZ,
	succeeded        BOOLEAN NOT NULL,
	error            TEXT NOT NULL DEFAULT '',
	wall_clock_ms    BIGINT NOT NULL,
	sequential_ms    BIGINT NOT NULL,
	efficiency_gain  DOUBLE PRECISION NOT NULL,
	jobs             JSONB NOT NULL,
	recorded_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertRun = `INSERT INTO jobgrid_runs
	(run_id, started_at, succeeded, error, wall_clock_ms, sequential_ms, efficiency_gain, jobs)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// execer is the subset of *sql.DB the recorder uses.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Recorder appends run records.
type Recorder struct {
	db     execer
	closer func() error
}

// Open connects with the pgx driver, pings under cfg.PingTimeout and makes
// sure the runs table exists.
func Open(ctx context.Context, cfg Config) (*Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(2)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	r := &Recorder{db: db, closer: db.Close}
	if err := r.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Recorder) migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	return nil
}

type jobRecord struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMS *int64 `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Record appends one finished run.
func (r *Recorder) Record(ctx context.Context, rep *report.Report) error {
	jobs := make([]jobRecord, 0, len(rep.Rows))
	for _, row := range rep.Rows {
		rec := jobRecord{Name: row.Name, Status: row.Status.String(), Error: row.Error}
		if row.Timed {
			ms := row.Duration.Milliseconds()
			rec.DurationMS = &ms
		}
		jobs = append(jobs, rec)
	}
	payload, err := json.Marshal(jobs)
	if err != nil {
		return fmt.Errorf("encode jobs: %w", err)
	}

	var startedAt any
	if !rep.StartedAt.IsZero() {
		startedAt = rep.StartedAt
	}

	_, err = r.db.ExecContext(ctx, insertRun,
		rep.RunID,
		startedAt,
		rep.Succeeded,
		rep.Error,
		rep.Metrics.WallClock.Milliseconds(),
		rep.Metrics.TotalSequential.Milliseconds(),
		rep.Metrics.EfficiencyGain,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rep.RunID, err)
	}

	ctxlog.FromContext(ctx).Debug("Run recorded in history.", "run_id", rep.RunID)
	return nil
}

func (r *Recorder) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
