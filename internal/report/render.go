package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Supported output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatTable    = "table"
)

// Render writes r in the named format.
func Render(w io.Writer, format string, r *Report) error {
	var err error
	switch strings.ToLower(format) {
	case FormatMarkdown, "md":
		err = RenderMarkdown(w, r)
	case FormatJSON:
		err = RenderJSON(w, r)
	case FormatTable:
		err = RenderTable(w, r)
	default:
		return fmt.Errorf("%w: unknown format %q", ErrReport, format)
	}
	if err != nil {
		return fmt.Errorf("%w: rendering %s: %w", ErrReport, format, err)
	}
	return nil
}

// FormatForPath picks a format from a file extension, defaulting to markdown.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".txt":
		return FormatTable
	default:
		return FormatMarkdown
	}
}

// WriteFile renders r into path, creating parent directories. With appendTo
// set the output is appended, which is how step summaries accumulate.
func WriteFile(path, format string, r *Report, appendTo bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrReport, err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendTo {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReport, err)
	}

	renderErr := Render(f, format, r)
	closeErr := f.Close()
	if renderErr != nil {
		return renderErr
	}
	if closeErr != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrReport, path, closeErr)
	}
	return nil
}
