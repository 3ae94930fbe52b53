package output

import (
	"io"
	"log/slog"
)

// levelSilent is above every level slog emits.
const levelSilent = slog.LevelError + 100

// SetupLogger builds the CLI's text logger on w. Precedence is quiet, then
// debug, then verbose; the default shows warnings and errors.
func SetupLogger(quiet, verbose, debug bool, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case quiet:
		level = levelSilent
	case debug:
		level = slog.LevelDebug
	case verbose:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
