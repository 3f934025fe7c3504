package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/specialistvlad/jobgrid/internal/job"
)

// RenderMarkdown writes a summary table, timing metrics, a mermaid gantt
// chart of the timeline and a mermaid flowchart of the dependency graph.
func RenderMarkdown(w io.Writer, r *Report) error {
	ew := &errWriter{w: w}

	title := "✅ All jobs completed"
	if !r.Succeeded {
		title = "❌ Run failed"
	}
	ew.printf("## %s\n\n", title)
	if r.RunID != "" {
		ew.printf("Run `%s`\n\n", r.RunID)
	}
	if r.Error != "" {
		ew.printf("> %s\n\n", escapePipes(r.Error))
	}

	ew.printf("| Job | Status | Needs | Duration |\n")
	ew.printf("|-----|--------|-------|----------|\n")
	for _, row := range r.Rows {
		duration := "-"
		if row.Timed {
			duration = formatDuration(row.Duration)
		}
		needs := "-"
		if len(row.Needs) > 0 {
			needs = strings.Join(row.Needs, ", ")
		}
		ew.printf("| %s | %s %s | %s | %s |\n", escapePipes(row.Name), row.Glyph, row.Status, escapePipes(needs), duration)
	}

	m := r.Metrics
	ew.printf("\n### Timing\n\n")
	ew.printf("- Wall clock: %s\n", formatDuration(m.WallClock))
	ew.printf("- Sequential total: %s\n", formatDuration(m.TotalSequential))
	ew.printf("- Time saved: %s (%.1f%%)\n", formatDuration(m.TimeSaved), m.EfficiencyGain*100)

	ids := newMermaidIDs(r.Graph)

	if len(r.Timeline) > 0 {
		ew.printf("\n### Timeline\n\n```mermaid\n")
		writeGantt(ew, ids, r.Timeline)
		ew.printf("```\n")
	}

	ew.printf("\n### Dependencies\n\n```mermaid\n")
	writeFlowchart(ew, ids, r.Graph)
	ew.printf("```\n")

	return ew.err
}

func writeGantt(ew *errWriter, ids mermaidIDs, timeline []TimelineEntry) {
	ew.printf("gantt\n")
	ew.printf("    title Job timeline\n")
	ew.printf("    dateFormat x\n")
	ew.printf("    axisFormat %%M:%%S\n")
	ew.printf("    section jobs\n")
	for _, e := range timeline {
		start := e.Offset.Milliseconds()
		end := start + e.Duration.Milliseconds()
		var tags []string
		switch {
		case e.Critical:
			tags = append(tags, "crit")
		case e.Status == job.Completed:
			tags = append(tags, "done")
		}
		tags = append(tags, ids.of(e.Name))
		ew.printf("    %s :%s, %d, %d\n", ganttLabel(e.Name), strings.Join(tags, ", "), start, end)
	}
}

func writeFlowchart(ew *errWriter, ids mermaidIDs, g Graph) {
	ew.printf("flowchart LR\n")
	for _, n := range g.Nodes {
		ew.printf("    %s[\"%s %s\"]:::%s\n", ids.of(n.Name), Glyph(n.Status), quoteLabel(n.Name), n.Class)
	}
	for _, e := range g.Edges {
		ew.printf("    %s --> %s\n", ids.of(e.From), ids.of(e.To))
	}
	ew.printf("    classDef completed fill:#d4edda,stroke:#28a745\n")
	ew.printf("    classDef failed fill:#f8d7da,stroke:#dc3545\n")
	ew.printf("    classDef running fill:#fff3cd,stroke:#ffc107\n")
	ew.printf("    classDef pending fill:#e2e3e5,stroke:#6c757d\n")
}

// mermaidIDs maps job names to mermaid identifiers. Identifiers are assigned
// by node position, so distinct names never share one.
type mermaidIDs map[string]string

func newMermaidIDs(g Graph) mermaidIDs {
	ids := make(mermaidIDs, len(g.Nodes))
	for _, n := range g.Nodes {
		ids.of(n.Name)
	}
	return ids
}

func (ids mermaidIDs) of(name string) string {
	id, ok := ids[name]
	if !ok {
		id = "j" + strconv.Itoa(len(ids))
		ids[name] = id
	}
	return id
}

func quoteLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

// ganttLabel strips the characters that end a gantt task title.
func ganttLabel(s string) string {
	return strings.NewReplacer(":", " ", "#", " ", ";", " ").Replace(s)
}

func escapePipes(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

// formatDuration rounds to milliseconds for display.
func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

// errWriter remembers the first write error and skips everything after it.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
