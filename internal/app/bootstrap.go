package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Dependency is a backend probed at startup.
type Dependency struct {
	Name     string
	Required bool
	Ping     func(ctx context.Context) error
}

// Bootstrap runs the startup connectivity check.
type Bootstrap struct {
	Logger  *slog.Logger
	Timeout time.Duration
	Deps    []Dependency
}

// Check pings every dependency, logging one line per dependency. It fails
// only when a required dependency is unreachable.
func (b Bootstrap) Check(ctx context.Context) error {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	var errs []error
	for _, dep := range b.Deps {
		if dep.Ping == nil {
			logger.Info("dependency skipped", slog.String("dependency", dep.Name))
			continue
		}
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		err := dep.Ping(pingCtx)
		cancel()
		if err == nil {
			logger.Info("dependency ready", slog.String("dependency", dep.Name), slog.Duration("latency", time.Since(start)))
			continue
		}
		if dep.Required {
			logger.Error("dependency unavailable", slog.String("dependency", dep.Name), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", dep.Name, err))
			continue
		}
		logger.Warn("dependency degraded", slog.String("dependency", dep.Name), slog.Any("error", err))
	}
	return errors.Join(errs...)
}
