// Package redis implements the primary counter store on the shared Redis
// deployment. It is treated as unreliable: every call runs under a hard
// latency budget, and a failed or slow call marks the store unhealthy so
// subsequent checks skip straight to the fallback until the marker expires.
package redis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	dErrors "gatekeeper/pkg/domain-errors"
)

var incrementDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "gatekeeper_ratelimit_primary_increment_duration_ms",
	Help:    "Latency of primary store counter increments in milliseconds",
	Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 200},
})

// ErrUnavailable is returned when the store is skipped because of the
// unhealthy marker, or when a call failed or blew its latency budget.
var ErrUnavailable = dErrors.New(dErrors.CodeUnavailable, "primary counter store unavailable")

// Store is a fixed-window counter on Redis. The first increment of a window
// creates the key and sets its TTL; there is a brief moment where the key
// exists without a TTL. If the EXPIRE is lost the counter lingers and keeps
// counting, which over-restricts that one key until it is deleted by hand; it
// never under-counts, so the decision stays safe.
type Store struct {
	client       redis.Cmdable
	budget       time.Duration
	unhealthyFor time.Duration
	logger       *slog.Logger

	mu             sync.Mutex
	unhealthyUntil time.Time
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithLatencyBudget overrides the per-call budget (default 200ms).
func WithLatencyBudget(budget time.Duration) Option {
	return func(s *Store) {
		s.budget = budget
	}
}

// WithUnhealthyFor overrides how long the store is skipped after a failure
// before the next check re-probes it (default 30s).
func WithUnhealthyFor(d time.Duration) Option {
	return func(s *Store) {
		s.unhealthyFor = d
	}
}

func New(client redis.Cmdable, opts ...Option) *Store {
	s := &Store{
		client:       client,
		budget:       200 * time.Millisecond,
		unhealthyFor: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether the next Increment would attempt Redis at all.
func (s *Store) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().After(s.unhealthyUntil)
}

// Increment atomically bumps the counter for key, creating the window with a
// TTL on first use. Returns ErrUnavailable without touching the network while
// the unhealthy marker is in effect; the caller must not retry within the
// same check.
func (s *Store) Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	if !s.Available() {
		return 0, time.Time{}, ErrUnavailable
	}

	cctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	start := time.Now()
	count, err := s.client.Incr(cctx, key).Result()
	elapsed := time.Since(start)
	incrementDurationMs.Observe(float64(elapsed.Microseconds()) / 1000.0)

	if err != nil || elapsed > s.budget {
		s.markUnhealthy(err, elapsed)
		return 0, time.Time{}, ErrUnavailable
	}

	if count == 1 {
		// Fresh window: pin the TTL. A lost EXPIRE here is tolerated, see
		// the type comment.
		if err := s.client.Expire(cctx, key, window).Err(); err != nil && s.logger != nil {
			s.logger.DebugContext(ctx, "failed to set counter TTL", "key", key, "error", err)
		}
	}

	now := start
	resetAt := now.Add(window)
	if ttl, err := s.client.PTTL(cctx, key).Result(); err == nil && ttl > 0 {
		resetAt = now.Add(ttl)
	}

	return int(count), resetAt, nil
}

func (s *Store) markUnhealthy(cause error, elapsed time.Duration) {
	s.mu.Lock()
	s.unhealthyUntil = time.Now().Add(s.unhealthyFor)
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Warn("primary counter store marked unhealthy",
			"error", cause,
			"elapsed_ms", elapsed.Milliseconds(),
			"skip_for", s.unhealthyFor.String(),
		)
	}
}
