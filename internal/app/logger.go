package app

import (
	"io"
	"log/slog"
)

// newLogger builds the application logger without touching slog.Default.
// Every record carries app=jobgrid.
func newLogger(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With("app", "jobgrid")
}

// parseLevel maps a configured level name to a slog.Level. Config has already
// rejected unknown names, so anything unparsable falls back to info.
func parseLevel(name string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return l
}
