// Package logger builds the structured logger every gosuperd component shares.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// LevelCritical sits above slog.LevelError, matching Python logging's
// CRITICAL (50) outranking ERROR (40) the way DEBUG/INFO/WARNING/ERROR
// already line up with slog's Debug/Info/Warn/Error.
const LevelCritical = slog.LevelError + 4

// New builds a *slog.Logger writing to stderr. level is one of
// "debug"/"info"/"warn"/"error"/"critical" (case-insensitive, defaults to
// info on an unrecognized value); format is "text" or "json" (defaults to
// text).
func New(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
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
	case "critical":
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}
