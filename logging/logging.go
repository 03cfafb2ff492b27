// Package logging configures the process-wide slog logger. Downstream
// packages take a plain *slog.Logger so callers can substitute their own
// handler in tests.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New builds a *slog.Logger writing to w. Level is one of debug, info, warn,
// error (case-insensitive, defaulting to info). Format is "json" or "text".
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
