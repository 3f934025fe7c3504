package localexecutor

import (
	"strings"
	"sync"
)

// lineWriter splits everything written to it into lines. A trailing partial
// line is kept and returned by Lines.
type lineWriter struct {
	mu      sync.Mutex
	lines   []string
	partial strings.Builder
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := string(p)
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			w.partial.WriteString(s)
			return len(p), nil
		}
		w.partial.WriteString(s[:i])
		w.lines = append(w.lines, strings.TrimSuffix(w.partial.String(), "\r"))
		w.partial.Reset()
		s = s[i+1:]
	}
}

// Lines returns a copy of the captured lines.
func (w *lineWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, len(w.lines), len(w.lines)+1)
	copy(out, w.lines)
	if w.partial.Len() > 0 {
		out = append(out, w.partial.String())
	}
	return out
}
