package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/specialistvlad/jobgrid/internal/job"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	statusColors = map[job.Status]lipgloss.Color{
		job.Completed: lipgloss.Color("42"),
		job.Failed:    lipgloss.Color("196"),
		job.Running:   lipgloss.Color("214"),
		job.Pending:   lipgloss.Color("245"),
	}
)

// statusColumn is the index of the status column in the table.
const statusColumn = 1

// RenderTable writes a bordered terminal table followed by a metrics line.
func RenderTable(w io.Writer, r *Report) error {
	rows := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		duration := "-"
		if row.Timed {
			duration = formatDuration(row.Duration)
		}
		rows = append(rows, []string{
			row.Name,
			row.Glyph + " " + row.Status.String(),
			strings.Join(row.Needs, ", "),
			duration,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("JOB", "STATUS", "NEEDS", "DURATION").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == statusColumn && row >= 0 && row < len(r.Rows) {
				return cellStyle.Foreground(statusColors[r.Rows[row].Status])
			}
			return cellStyle
		})

	m := r.Metrics
	_, err := fmt.Fprintf(w, "%s\nwall clock %s · sequential %s · saved %s (%.1f%%)\n",
		t.Render(),
		formatDuration(m.WallClock),
		formatDuration(m.TotalSequential),
		formatDuration(m.TimeSaved),
		m.EfficiencyGain*100,
	)
	return err
}
