package app

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns the process logger for service, tagged with its name and
// environment. LOG_FORMAT=json selects the JSON handler.
func NewLogger(cfg *Config, service string) *slog.Logger {
	return newLogger(cfg, service, os.Stdout)
}

func newLogger(cfg *Config, service string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler = slog.NewTextHandler(w, opts)
	env := ""
	if cfg != nil {
		if level, err := parseLevel(cfg.LogLevel); err == nil {
			opts.Level = level
		}
		if cfg.LogFormat == "json" {
			handler = slog.NewJSONHandler(w, opts)
		}
		env = cfg.AppEnv
	}
	logger := slog.New(handler).With(slog.String("service", service))
	if env != "" {
		logger = logger.With(slog.String("env", env))
	}
	return logger
}

// parseLevel reads a slog level name; empty means info.
func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelInfo, nil
	}
	err := level.UnmarshalText([]byte(s))
	return level, err
}
