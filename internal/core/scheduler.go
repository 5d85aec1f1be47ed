package core

// scheduler.go runs background maintenance.
//
// The session reaper drops lifecycle managers whose session has been idle
// longer than the configured timeout, so abandoned sessions do not pin their
// record sets in memory. A dropped manager is rebuilt from the store on the
// session's next request.

import (
	"context"
	"log/slog"
	"time"
)

// ReaperConfig controls the session reaper. Zero values use the defaults.
type ReaperConfig struct {
	IdleTimeout   time.Duration // Drop managers idle this long (default: 30m)
	CheckInterval time.Duration // How often to scan (default: 5m)
}

func (c ReaperConfig) withDefaults() ReaperConfig {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 5 * time.Minute
	}
	return c
}

// StartSessionReaper blocks, reaping idle managers every CheckInterval until
// ctx is cancelled.
func (s *Service) StartSessionReaper(ctx context.Context, cfg ReaperConfig) {
	cfg = cfg.withDefaults()

	slog.Info("session reaper started",
		"idle_timeout", cfg.IdleTimeout.String(),
		"check_interval", cfg.CheckInterval.String(),
	)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session reaper stopped")
			return
		case <-ticker.C:
			s.reapOnce(cfg.IdleTimeout)
		}
	}
}

func (s *Service) reapOnce(idle time.Duration) {
	start := time.Now()
	n := s.registry.ReapIdle(idle)
	if n > 0 {
		slog.Info("reaped idle sessions",
			"reaped", n,
			"remaining", s.registry.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
