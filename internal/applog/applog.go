// Package applog configures the process-wide slog logger used by the
// daemon and every internal package that accepts one.
package applog

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Level is one of the four verbosity levels the daemon accepts on its
// activation flag.
type Level string

const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// ParseLevel converts a string (as given on the command line) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return "", fmt.Errorf("invalid log level: %s (must be error, warn, info, or debug)", s)
	}
}

// New builds a text-handler slog.Logger writing to stderr at the given level.
func New(level Level) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case LevelError:
		slogLevel = slog.LevelError
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelDebug:
		slogLevel = slog.LevelDebug
	default:
		slogLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})
	return slog.New(handler)
}
