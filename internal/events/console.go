package events

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/specialistvlad/jobgrid/internal/ctxlog"
)

// Console logs every event through the context logger. With GitHub set it
// also writes workflow commands to w so each job's output folds into its own
// group and failures are annotated in the Actions UI.
type Console struct {
	GitHub bool
	mu     sync.Mutex
	w      io.Writer
}

// NewConsole returns a Console writing workflow commands to w.
func NewConsole(w io.Writer, github bool) *Console {
	return &Console{GitHub: github, w: w}
}

// Observe implements Observer.
func (c *Console) Observe(ctx context.Context, e Event) {
	logger := ctxlog.FromContext(ctx)

	switch e.Kind {
	case KindStarted:
		logger.Info("▶️ Job started", "job", e.Job)
	case KindCompleted:
		logger.Info("✅ Job completed", "job", e.Job, "lines", len(e.Output))
		for _, line := range e.Output {
			logger.Debug(line, "job", e.Job)
		}
		c.group(e)
	case KindFailed:
		logger.Error("❌ Job failed", "job", e.Job, "error", e.Err)
		c.group(e)
	case KindRunFinished:
		if e.Err != nil {
			logger.Error("🏁 Run finished with errors", "error", e.Err)
		} else {
			logger.Info("🏁 Run finished")
		}
	}
}

// group prints a finished job's output inside an Actions log group. Output is
// written in one piece so concurrent groups never interleave.
func (c *Console) group(e Event) {
	if !c.GitHub || c.w == nil {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "::group::%s (%s)\n", e.Job, e.Status)
	for _, line := range e.Output {
		b.WriteString(escapeCommand(line))
		b.WriteByte('\n')
	}
	b.WriteString("::endgroup::\n")
	if e.Kind == KindFailed && e.Err != nil {
		fmt.Fprintf(&b, "::error title=%s::%s\n", escapeProperty(e.Job), escapeData(e.Err.Error()))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, b.String())
}

// escapeCommand stops a script's own output from being read as a workflow
// command.
func escapeCommand(line string) string {
	if strings.HasPrefix(line, "::") {
		return " " + line
	}
	return line
}

func escapeData(s string) string {
	r := strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	return r.Replace(s)
}

func escapeProperty(s string) string {
	r := strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")
	return r.Replace(s)
}
