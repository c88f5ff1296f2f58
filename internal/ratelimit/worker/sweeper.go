// Package worker runs the out-of-band maintenance for the fallback store.
package worker

import (
	"context"
	"log/slog"
	"time"

	"gatekeeper/internal/ratelimit/metrics"
	"gatekeeper/internal/ratelimit/ports"
)

// Sweeper periodically removes expired counter rows from the fallback store.
// Decision correctness never depends on it; rows past reset_at are already
// ignored by lookups, the sweep only reclaims space.
type Sweeper struct {
	store    ports.Sweeper
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

func New(store ports.Sweeper, interval time.Duration, opts ...Option) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s := &Sweeper{store: store, interval: interval}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is cancelled, sweeping once per interval. Sweep
// failures are logged and retried next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			removed, err := s.store.Sweep(ctx, now)
			if err != nil {
				if s.logger != nil {
					s.logger.WarnContext(ctx, "fallback counter sweep failed", "error", err)
				}
				continue
			}
			if s.metrics != nil {
				s.metrics.SweptRowsTotal.Add(float64(removed))
			}
			if removed > 0 && s.logger != nil {
				s.logger.DebugContext(ctx, "swept expired fallback counters", "removed", removed)
			}
		}
	}
}
