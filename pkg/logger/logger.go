// Package logger builds the slog loggers the rest of the code shares.
package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON logger writing to stdout at the given level.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout,
		&slog.HandlerOptions{Level: level}))
}

// Named tags a logger with the component emitting through it.
func Named(l *slog.Logger, component string) *slog.Logger {
	return l.With(slog.String("component", component))
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
