// Package report turns a finished job set into the data every renderer needs:
// a row per job in topological order, aggregate timing metrics, a relative
// timeline and the dependency graph.
//
// Only jobs that both started and finished carry timing. A job that never
// started, or was abandoned while running, is absent from the timeline and
// the metrics but still present in the rows and the graph.
package report

import (
	"errors"
	"time"

	"github.com/specialistvlad/jobgrid/internal/dag"
	"github.com/specialistvlad/jobgrid/internal/job"
)

// ErrReport wraps every failure to produce or write a report. It is kept
// apart from the run outcome.
var ErrReport = errors.New("report failed")

// Row is one job's line in the summary table.
type Row struct {
	Name     string
	Status   job.Status
	Glyph    string
	Needs    []string
	Timed    bool
	Duration time.Duration
	Error    string
}

// Metrics aggregate the timing of every timed job.
type Metrics struct {
	WallClock       time.Duration
	TotalSequential time.Duration
	TimeSaved       time.Duration
	// EfficiencyGain is TimeSaved / TotalSequential, or 0 when nothing ran.
	EfficiencyGain float64

	Jobs      int
	Completed int
	Failed    int
	Running   int
	Pending   int
}

// TimelineEntry places one timed job relative to the earliest start of any
// job, including one abandoned while running.
type TimelineEntry struct {
	Name     string
	Status   job.Status
	Offset   time.Duration
	Duration time.Duration
	// Critical marks failed jobs.
	Critical bool
}

// Node is a job in the dependency graph.
type Node struct {
	Name   string
	Status job.Status
	Class  string
}

// Edge points from a need to the job that needs it. Status is that of the
// dependent job.
type Edge struct {
	From   string
	To     string
	Status job.Status
}

// Graph is the whole dependency structure, whether or not jobs ran. Needs
// that name no declared job have no edge.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Report is everything a renderer consumes.
type Report struct {
	RunID     string
	Succeeded bool
	Error     string
	StartedAt time.Time
	Rows      []Row
	Metrics   Metrics
	Timeline  []TimelineEntry
	Graph     Graph
}

// Build aggregates set after a run. runErr is the scheduler's outcome.
func Build(runID string, set *job.Set, runErr error) *Report {
	r := &Report{
		RunID:     runID,
		Succeeded: runErr == nil,
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}

	ordered := dag.Order(set)

	graph := dag.FromSet(set)

	// The run starts with the first job that started, timed or not. It ends
	// with the last timed job to finish.
	var earliest, latest time.Time
	for _, j := range ordered {
		if !j.Started() {
			continue
		}
		if earliest.IsZero() || j.StartTime().Before(earliest) {
			earliest = j.StartTime()
		}
		if timed(j) && j.EndTime().After(latest) {
			latest = j.EndTime()
		}
	}
	r.StartedAt = earliest

	for _, j := range ordered {
		row := Row{
			Name:   j.Name,
			Status: j.Status(),
			Glyph:  Glyph(j.Status()),
			Needs:  j.Needs,
			Timed:  timed(j),
		}
		if j.Err() != nil {
			row.Error = j.Err().Error()
		}
		r.Metrics.Jobs++
		switch j.Status() {
		case job.Completed:
			r.Metrics.Completed++
		case job.Failed:
			r.Metrics.Failed++
		case job.Running:
			r.Metrics.Running++
		default:
			r.Metrics.Pending++
		}

		if row.Timed {
			row.Duration = j.Duration()
			r.Metrics.TotalSequential += row.Duration
			r.Timeline = append(r.Timeline, TimelineEntry{
				Name:     j.Name,
				Status:   j.Status(),
				Offset:   j.StartTime().Sub(earliest),
				Duration: row.Duration,
				Critical: j.Status() == job.Failed,
			})
		}
		r.Rows = append(r.Rows, row)

		r.Graph.Nodes = append(r.Graph.Nodes, Node{Name: j.Name, Status: j.Status(), Class: Class(j.Status())})
		needs, _ := graph.Dependencies(j.Name)
		for _, need := range needs {
			r.Graph.Edges = append(r.Graph.Edges, Edge{From: need, To: j.Name, Status: j.Status()})
		}
	}

	if latest.After(earliest) {
		r.Metrics.WallClock = latest.Sub(earliest)
	}
	r.Metrics.TimeSaved = r.Metrics.TotalSequential - r.Metrics.WallClock
	if r.Metrics.TotalSequential > 0 {
		r.Metrics.EfficiencyGain = float64(r.Metrics.TimeSaved) / float64(r.Metrics.TotalSequential)
	}
	return r
}

func timed(j *job.Job) bool {
	return j.Started() && j.Finished()
}

// Glyph is the status marker used in tables.
func Glyph(s job.Status) string {
	switch s {
	case job.Completed:
		return "✅"
	case job.Failed:
		return "❌"
	case job.Running:
		return "⏳"
	default:
		return "⏸"
	}
}

// Class is the styling class of a graph node.
func Class(s job.Status) string {
	return s.String()
}
