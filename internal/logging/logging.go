// Package logging builds the structured loggers used across lyapsim.
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// New returns a tint-backed logger writing to w. Color should be false when w
// is not a terminal.
func New(w io.Writer, level string, color bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      ParseLevel(level),
		TimeFormat: time.TimeOnly,
		NoColor:    !color,
	}))
}

// Discard drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
