// Package log wires the persistent logging flags into a slog handler.
package log

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"rollfwd.dev/rollfwd/internal/flags/enum"
)

// RegisterLoggingFlags adds the persistent logging flags to cmd.
func RegisterLoggingFlags(cmd *cobra.Command) {
	enum.Var(cmd.PersistentFlags(), "loglevel", []string{
		"warn",
		"debug",
		"info",
		"error",
	}, "set the log level")
	enum.Var(cmd.PersistentFlags(), "logformat", []string{"text", "json"}, "set the log format")
}

// GetBaseLogger builds the logger the flag values describe, writing to the
// command's error stream so machine-readable command output stays clean.
func GetBaseLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level, err := GetLoggerLevel(cmd)
	if err != nil {
		return nil, err
	}

	format, err := enum.Get(cmd.Flags(), "logformat")
	if err != nil {
		return nil, err
	}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	return slog.New(handler), nil
}

// GetLoggerLevel parses the loglevel flag.
func GetLoggerLevel(cmd *cobra.Command) (slog.Level, error) {
	logLevel, err := enum.Get(cmd.Flags(), "loglevel")
	if err != nil {
		return slog.LevelWarn, err
	}
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return slog.LevelWarn, fmt.Errorf("invalid log level: %s", logLevel)
	}
	return level, nil
}
