package telemetry

import (
	"log/slog"
	"os"

	tlog "go.temporal.io/sdk/log"
)

// LogLevel reads the level from the LOG_LEVEL environment variable.
// Accepted values: DEBUG, INFO, WARN, ERROR. Default: INFO.
func LogLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger. LOG_FORMAT=text selects the
// human-readable handler for development; the default is JSON.
func NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     LogLevel(),
		AddSource: LogLevel() == slog.LevelDebug,
	}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// NewTemporalLogger adapts the process logger for the Temporal client so the
// substrate logs through the same sink as everything else; no implicit
// global logger is retained anywhere.
func NewTemporalLogger(logger *slog.Logger) tlog.Logger {
	return tlog.NewStructuredLogger(logger)
}
