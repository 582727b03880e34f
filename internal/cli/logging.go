package cli

import (
	"io"
	"log/slog"
)

// newLogger returns a text logger on w. Info and above are shown unless
// debug is set.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
