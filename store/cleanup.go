package store

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultSessionRetention is how long idle sessions are kept.
	DefaultSessionRetention = 30 * 24 * time.Hour
	// DefaultCleanupInterval is the pause between retention sweeps.
	DefaultCleanupInterval = 24 * time.Hour
)

// CleanupConfig configures the session retention job.
type CleanupConfig struct {
	Retention time.Duration
	Interval  time.Duration
}

// RunSessionCleanup sweeps idle sessions until ctx is cancelled. Intended to
// run as its own goroutine; errors are logged, never fatal.
func (s *Store) RunSessionCleanup(ctx context.Context, cfg CleanupConfig) {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultSessionRetention
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultCleanupInterval
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.CleanupSessions(ctx, cfg.Retention)
			if err != nil {
				slog.Warn("session cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("session cleanup removed idle sessions", "count", removed)
			}
		}
	}
}
