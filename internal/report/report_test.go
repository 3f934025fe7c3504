package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/specialistvlad/jobgrid/internal/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func completed(t *testing.T, name string, start, end int, needs ...string) *job.Job {
	t.Helper()
	j := &job.Job{Name: name, Needs: needs}
	require.NoError(t, j.Start(nil, at(start)))
	require.NoError(t, j.Complete(at(end), nil))
	return j
}

func failed(t *testing.T, name string, start, end int, needs ...string) *job.Job {
	t.Helper()
	j := &job.Job{Name: name, Needs: needs}
	require.NoError(t, j.Start(nil, at(start)))
	require.NoError(t, j.Fail(at(end), []string{"boom"}, errors.New("exit 1")))
	return j
}

func set(t *testing.T, jobs ...*job.Job) *job.Set {
	t.Helper()
	s, err := job.NewSet(jobs...)
	require.NoError(t, err)
	return s
}

func TestBuild_Metrics(t *testing.T) {
	// --- Arrange ---
	// a: 0-1000, b: 0-600, c: 1000-1500 (needs a, b)
	s := set(t,
		completed(t, "a", 0, 1000),
		completed(t, "b", 0, 600),
		completed(t, "c", 1000, 1500, "a", "b"),
	)

	// --- Act ---
	r := Build("run-1", s, nil)

	// --- Assert ---
	m := r.Metrics
	assert.Equal(t, 1500*time.Millisecond, m.WallClock)
	assert.Equal(t, 2100*time.Millisecond, m.TotalSequential)
	assert.Equal(t, 600*time.Millisecond, m.TimeSaved)
	assert.InDelta(t, 600.0/2100.0, m.EfficiencyGain, 1e-9)
	assert.Equal(t, 3, m.Completed)
	assert.True(t, r.Succeeded)
	assert.Equal(t, t0, r.StartedAt)
}

func TestBuild_EfficiencyArithmetic(t *testing.T) {
	// timeSaved = sum(d) - W and efficiencyGain = timeSaved / sum(d) for
	// a range of overlapping layouts.
	layouts := [][][2]int{
		{{0, 100}},
		{{0, 100}, {0, 100}, {0, 100}},
		{{0, 250}, {50, 300}, {300, 310}, {120, 900}},
		{{10, 20}, {500, 700}},
	}
	for i, layout := range layouts {
		var jobs []*job.Job
		var sum time.Duration
		first, last := layout[0][0], layout[0][1]
		for k, span := range layout {
			jobs = append(jobs, completed(t, string(rune('a'+k)), span[0], span[1]))
			sum += time.Duration(span[1]-span[0]) * time.Millisecond
			first = min(first, span[0])
			last = max(last, span[1])
		}
		wall := time.Duration(last-first) * time.Millisecond

		m := Build("", set(t, jobs...), nil).Metrics

		assert.Equal(t, wall, m.WallClock, "layout %d", i)
		assert.Equal(t, sum-wall, m.TimeSaved, "layout %d", i)
		assert.InDelta(t, float64(sum-wall)/float64(sum), m.EfficiencyGain, 1e-9, "layout %d", i)
	}
}

func TestBuild_NothingRan(t *testing.T) {
	r := Build("", set(t, &job.Job{Name: "a"}), errors.New("stalled"))

	assert.Zero(t, r.Metrics.WallClock)
	assert.Zero(t, r.Metrics.EfficiencyGain)
	assert.Empty(t, r.Timeline)
	assert.False(t, r.Succeeded)
	assert.Equal(t, "stalled", r.Error)
	assert.True(t, r.StartedAt.IsZero())
}

func TestBuild_TimelineExcludesJobsThatNeverStarted(t *testing.T) {
	// --- Arrange ---
	// build fails; post needs build and never starts.
	post := &job.Job{Name: "post", Needs: []string{"build"}}
	s := set(t, failed(t, "build", 200, 700), post)

	// --- Act ---
	r := Build("run-2", s, errors.New("some jobs did not complete successfully"))

	// --- Assert ---
	require.Len(t, r.Timeline, 1)
	assert.Equal(t, "build", r.Timeline[0].Name)
	assert.Zero(t, r.Timeline[0].Offset)
	assert.Equal(t, 500*time.Millisecond, r.Timeline[0].Duration)
	assert.True(t, r.Timeline[0].Critical)

	names := make([]string, 0, len(r.Graph.Nodes))
	for _, n := range r.Graph.Nodes {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"build", "post"}, names)
	assert.Equal(t, "pending", r.Graph.Nodes[1].Class)
	assert.Equal(t, []Edge{{From: "build", To: "post", Status: job.Pending}}, r.Graph.Edges)

	require.Len(t, r.Rows, 2)
	assert.False(t, r.Rows[1].Timed)
	assert.Equal(t, "⏸", r.Rows[1].Glyph)
	assert.Equal(t, "exit 1", r.Rows[0].Error)

	var md bytes.Buffer
	require.NoError(t, RenderMarkdown(&md, r))
	gantt := section(md.String(), "gantt", "```")
	assert.Contains(t, gantt, ", j0, ")
	assert.NotContains(t, gantt, "post")
	flow := section(md.String(), "flowchart", "```")
	assert.Contains(t, flow, `j1["⏸ post"]:::pending`)
	assert.Contains(t, flow, "j0 --> j1")
}

func TestBuild_AbandonedRunningJobIsUntimed(t *testing.T) {
	running := &job.Job{Name: "slow"}
	require.NoError(t, running.Start(nil, at(0)))
	s := set(t, running, failed(t, "fast", 0, 100))

	r := Build("", s, errors.New("x"))

	assert.Equal(t, 100*time.Millisecond, r.Metrics.WallClock)
	assert.Equal(t, 1, r.Metrics.Running)
	require.Len(t, r.Timeline, 1)
	assert.Equal(t, "fast", r.Timeline[0].Name)
	assert.Equal(t, "⏳", r.Rows[0].Glyph)
}

func TestBuild_AbandonedJobStartsTheRun(t *testing.T) {
	// --- Arrange ---
	// slow starts first and is abandoned; fast runs 100-300.
	running := &job.Job{Name: "slow"}
	require.NoError(t, running.Start(nil, at(0)))
	s := set(t, running, failed(t, "fast", 100, 300))

	// --- Act ---
	r := Build("", s, errors.New("x"))

	// --- Assert ---
	assert.Equal(t, t0, r.StartedAt)
	assert.Equal(t, 300*time.Millisecond, r.Metrics.WallClock)
	assert.Equal(t, 200*time.Millisecond, r.Metrics.TotalSequential)
	require.Len(t, r.Timeline, 1)
	assert.Equal(t, 100*time.Millisecond, r.Timeline[0].Offset)
	assert.Equal(t, 200*time.Millisecond, r.Timeline[0].Duration)
}

func TestBuild_OnlyRunningJobs(t *testing.T) {
	running := &job.Job{Name: "slow"}
	require.NoError(t, running.Start(nil, at(50)))

	r := Build("", set(t, running), errors.New("x"))

	assert.Equal(t, at(50), r.StartedAt)
	assert.Zero(t, r.Metrics.WallClock)
	assert.Empty(t, r.Timeline)
}

func TestBuild_EdgesSkipUnknownAndRepeatedNeeds(t *testing.T) {
	// --- Arrange ---
	deploy := &job.Job{Name: "deploy", Needs: []string{"build", "ghost", "build"}}
	s := set(t, completed(t, "build", 0, 100), deploy)

	// --- Act ---
	r := Build("", s, nil)

	// --- Assert ---
	assert.Equal(t, []Edge{{From: "build", To: "deploy", Status: job.Pending}}, r.Graph.Edges)
	assert.Equal(t, []string{"build", "ghost", "build"}, r.Rows[1].Needs)
}

func TestBuild_RowsFollowTopologicalOrder(t *testing.T) {
	s := set(t,
		completed(t, "c", 200, 300, "b"),
		completed(t, "b", 100, 200, "a"),
		completed(t, "a", 0, 100),
	)
	r := Build("", s, nil)

	var names []string
	for _, row := range r.Rows {
		names = append(names, row.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
	assert.Equal(t, 100*time.Millisecond, r.Timeline[1].Offset)
}

func TestRenderMarkdown(t *testing.T) {
	s := set(t, completed(t, "lint", 0, 1200), completed(t, "unit|tests", 0, 800, "lint"))
	var buf bytes.Buffer

	require.NoError(t, RenderMarkdown(&buf, Build("abc", s, nil)))

	out := buf.String()
	assert.Contains(t, out, "## ✅ All jobs completed")
	assert.Contains(t, out, "Run `abc`")
	assert.Contains(t, out, "| lint | ✅ completed | - | 1.2s |")
	assert.Contains(t, out, `| unit\|tests | ✅ completed | lint | 800ms |`)
	assert.Contains(t, out, "lint :done, j0, 0, 1200")
	assert.Contains(t, out, `j1["✅ unit|tests"]:::completed`)
	assert.Contains(t, out, "j0 --> j1")
	assert.Contains(t, out, "classDef failed")
}

func TestRenderMarkdown_PunctuationDoesNotMergeJobs(t *testing.T) {
	// --- Arrange ---
	s := set(t,
		completed(t, "build-1", 0, 100),
		completed(t, "build_1", 0, 200),
		completed(t, "build.1", 0, 300),
		completed(t, "deploy", 100, 400, "build-1"),
	)

	// --- Act ---
	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, Build("", s, nil)))

	// --- Assert ---
	flow := section(buf.String(), "flowchart", "```")
	assert.Contains(t, flow, `j0["✅ build-1"]:::completed`)
	assert.Contains(t, flow, `j1["✅ build_1"]:::completed`)
	assert.Contains(t, flow, `j2["✅ build.1"]:::completed`)
	assert.Contains(t, flow, `j3["✅ deploy"]:::completed`)
	assert.Contains(t, flow, "j0 --> j3")
	assert.NotContains(t, flow, "j1 --> j3")
	assert.NotContains(t, flow, "j2 --> j3")

	gantt := section(buf.String(), "gantt", "```")
	for _, id := range []string{", j0, ", ", j1, ", ", j2, ", ", j3, "} {
		assert.Equal(t, 1, strings.Count(gantt, id), id)
	}
}

func TestRenderJSON(t *testing.T) {
	post := &job.Job{Name: "post", Needs: []string{"build"}}
	s := set(t, failed(t, "build", 0, 250), post)
	var buf bytes.Buffer

	require.NoError(t, RenderJSON(&buf, Build("r1", s, errors.New("boom"))))

	var decoded struct {
		RunID     string `json:"run_id"`
		Succeeded bool   `json:"succeeded"`
		Jobs      []struct {
			Name       string `json:"name"`
			Status     string `json:"status"`
			DurationMS *int64 `json:"duration_ms"`
		} `json:"jobs"`
		Timeline []struct {
			Name string `json:"name"`
		} `json:"timeline"`
		Edges []struct {
			From   string `json:"from"`
			To     string `json:"to"`
			Status string `json:"status"`
		} `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "r1", decoded.RunID)
	assert.False(t, decoded.Succeeded)
	require.Len(t, decoded.Jobs, 2)
	assert.Equal(t, "failed", decoded.Jobs[0].Status)
	require.NotNil(t, decoded.Jobs[0].DurationMS)
	assert.EqualValues(t, 250, *decoded.Jobs[0].DurationMS)
	assert.Nil(t, decoded.Jobs[1].DurationMS)
	assert.Len(t, decoded.Timeline, 1)
	require.Len(t, decoded.Edges, 1)
	assert.Equal(t, "pending", decoded.Edges[0].Status)
}

func TestRenderTable(t *testing.T) {
	s := set(t, completed(t, "compile", 0, 50), &job.Job{Name: "ship", Needs: []string{"compile"}})
	var buf bytes.Buffer

	require.NoError(t, RenderTable(&buf, Build("", s, nil)))

	out := buf.String()
	assert.Contains(t, out, "JOB")
	assert.Contains(t, out, "compile")
	assert.Contains(t, out, "ship")
	assert.Contains(t, out, "wall clock 50ms")
}

func TestRender_UnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, "pdf", Build("", set(t), nil))
	assert.ErrorIs(t, err, ErrReport)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "summary.md")
	r := Build("x", set(t, completed(t, "a", 0, 10)), nil)

	require.NoError(t, WriteFile(path, FormatMarkdown, r, true))
	require.NoError(t, WriteFile(path, FormatMarkdown, r, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "## ✅ All jobs completed"), "append mode accumulates")

	require.NoError(t, WriteFile(path, FormatMarkdown, r, false))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "## ✅ All jobs completed"))
}

func TestWriteFile_Unwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := WriteFile(filepath.Join(blocker, "report.md"), FormatMarkdown, Build("", set(t), nil), false)
	assert.ErrorIs(t, err, ErrReport)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatForPath("out/report.JSON"))
	assert.Equal(t, FormatTable, FormatForPath("report.txt"))
	assert.Equal(t, FormatMarkdown, FormatForPath("report.md"))
	assert.Equal(t, FormatMarkdown, FormatForPath("report"))
}

// section returns the text from the first line containing start up to the
// next occurrence of end.
func section(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	rest := s[i:]
	if j := strings.Index(rest, end); j >= 0 {
		return rest[:j]
	}
	return rest
}
