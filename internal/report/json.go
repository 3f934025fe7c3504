package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/specialistvlad/jobgrid/internal/job"
)

type jsonReport struct {
	RunID     string         `json:"run_id"`
	Succeeded bool           `json:"succeeded"`
	Error     string         `json:"error,omitempty"`
	StartedAt *time.Time     `json:"started_at,omitempty"`
	Jobs      []jsonRow      `json:"jobs"`
	Metrics   jsonMetrics    `json:"metrics"`
	Timeline  []jsonTimeline `json:"timeline"`
	Edges     []jsonEdge     `json:"edges"`
}

type jsonRow struct {
	Name       string     `json:"name"`
	Status     job.Status `json:"status"`
	Needs      []string   `json:"needs"`
	DurationMS *int64     `json:"duration_ms,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type jsonMetrics struct {
	WallClockMS       int64   `json:"wall_clock_ms"`
	TotalSequentialMS int64   `json:"total_sequential_ms"`
	TimeSavedMS       int64   `json:"time_saved_ms"`
	EfficiencyGain    float64 `json:"efficiency_gain"`
	Jobs              int     `json:"jobs"`
	Completed         int     `json:"completed"`
	Failed            int     `json:"failed"`
	Running           int     `json:"running"`
	Pending           int     `json:"pending"`
}

type jsonTimeline struct {
	Name       string `json:"name"`
	OffsetMS   int64  `json:"offset_ms"`
	DurationMS int64  `json:"duration_ms"`
	Critical   bool   `json:"critical"`
}

type jsonEdge struct {
	From   string     `json:"from"`
	To     string     `json:"to"`
	Status job.Status `json:"status"`
}

// RenderJSON writes r as an indented JSON document with durations in
// milliseconds.
func RenderJSON(w io.Writer, r *Report) error {
	out := jsonReport{
		RunID:     r.RunID,
		Succeeded: r.Succeeded,
		Error:     r.Error,
		Jobs:      make([]jsonRow, 0, len(r.Rows)),
		Timeline:  make([]jsonTimeline, 0, len(r.Timeline)),
		Edges:     make([]jsonEdge, 0, len(r.Graph.Edges)),
		Metrics: jsonMetrics{
			WallClockMS:       r.Metrics.WallClock.Milliseconds(),
			TotalSequentialMS: r.Metrics.TotalSequential.Milliseconds(),
			TimeSavedMS:       r.Metrics.TimeSaved.Milliseconds(),
			EfficiencyGain:    r.Metrics.EfficiencyGain,
			Jobs:              r.Metrics.Jobs,
			Completed:         r.Metrics.Completed,
			Failed:            r.Metrics.Failed,
			Running:           r.Metrics.Running,
			Pending:           r.Metrics.Pending,
		},
	}
	if !r.StartedAt.IsZero() {
		started := r.StartedAt.UTC()
		out.StartedAt = &started
	}
	for _, row := range r.Rows {
		jr := jsonRow{Name: row.Name, Status: row.Status, Needs: row.Needs, Error: row.Error}
		if jr.Needs == nil {
			jr.Needs = []string{}
		}
		if row.Timed {
			ms := row.Duration.Milliseconds()
			jr.DurationMS = &ms
		}
		out.Jobs = append(out.Jobs, jr)
	}
	for _, e := range r.Timeline {
		out.Timeline = append(out.Timeline, jsonTimeline{
			Name:       e.Name,
			OffsetMS:   e.Offset.Milliseconds(),
			DurationMS: e.Duration.Milliseconds(),
			Critical:   e.Critical,
		})
	}
	for _, e := range r.Graph.Edges {
		out.Edges = append(out.Edges, jsonEdge(e))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
