// Package logging provides structured logging utilities.
//
// Text logs are formatted in Maven-style, colored when writing to a
// terminal:
//
//	[LEVEL] [SYSTEM] [HH:MM:SS] message key=value
//
// JSON logs use the standard slog JSON handler for log shippers.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/config"
)

// SystemKey is the attribute shown in the [SYSTEM] bracket.
const SystemKey = "system"

// ParseLevel maps a config level name to a slog level. Unknown names
// default to info.
func ParseLevel(name string) slog.Level {
	switch name {
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

// NewLogger creates a structured logger writing to stdout
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	return NewLoggerTo(os.Stdout, cfg)
}

// NewLoggerTo creates a structured logger writing to w
func NewLoggerTo(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(NewMavenHandler(w, opts))
}

// NewLoggerWithSystem creates a logger scoped to a subsystem
// (e.g., "api", "sweep", "forecast").
func NewLoggerWithSystem(cfg config.LoggingConfig, system string) *slog.Logger {
	return NewLogger(cfg).With(SystemKey, system)
}
