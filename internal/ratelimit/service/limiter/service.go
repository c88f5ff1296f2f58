// Package limiter implements the admission control core: resolve a counter
// key, try the primary store under its latency budget, fall through once to
// the durable fallback, and fail open when neither backend can count.
package limiter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gatekeeper/internal/ratelimit/metrics"
	"gatekeeper/internal/ratelimit/models"
	"gatekeeper/internal/ratelimit/observability"
	"gatekeeper/internal/ratelimit/ports"
	"gatekeeper/pkg/requestcontext"
)

const (
	backendPrimary  = "primary"
	backendFallback = "fallback"
	backendFailOpen = "fail_open"
)

// Service is the counting core. It is invoked once per tier per request; the
// caller owns tier composition (see models.Combine).
type Service struct {
	primary        ports.CounterStore // optional
	fallback       ports.CounterStore // optional
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher ports.AuditPublisher
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// New builds the core. Either store may be nil, not both: a limiter with no
// backend at all would silently fail open on every request.
func New(primary, fallback ports.CounterStore, opts ...Option) (*Service, error) {
	if primary == nil && fallback == nil {
		return nil, fmt.Errorf("at least one counter store is required")
	}

	svc := &Service{
		primary:  primary,
		fallback: fallback,
		tracer:   otel.Tracer("gatekeeper/ratelimit"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Check counts one request against a single tier and decides. Storage
// failures never surface: a dead primary falls through once to the fallback,
// and a dead fallback fails open. Panics when limit or window are out of
// range; that is caller misconfiguration, not a runtime condition.
func (s *Service) Check(ctx context.Context, identifier string, limit int, window time.Duration, endpoint string) *models.Decision {
	if limit < 1 {
		panic(fmt.Sprintf("limiter: limit must be >= 1, got %d", limit))
	}
	if window < time.Second {
		panic(fmt.Sprintf("limiter: window must be >= 1s, got %s", window))
	}

	ctx, span := s.tracer.Start(ctx, "ratelimit.check", trace.WithAttributes(
		attribute.Int("ratelimit.limit", limit),
		attribute.Int64("ratelimit.window_seconds", int64(window.Seconds())),
	))
	defer span.End()

	key := models.NewKey(identifier, window, endpoint).String()
	count, resetAt, backend := s.increment(ctx, key, window, identifier, endpoint)

	var decision *models.Decision
	if backend == backendFailOpen {
		now := requestcontext.Now(ctx)
		decision = &models.Decision{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			ResetAt:   now.Add(window),
			Current:   0,
		}
	} else {
		decision = models.NewDecision(count, limit, resetAt)
	}

	span.SetAttributes(
		attribute.String("ratelimit.backend", backend),
		attribute.Bool("ratelimit.allowed", decision.Allowed),
	)
	if s.metrics != nil {
		s.metrics.RecordCheck(backend, decision.Allowed)
	}
	if !decision.Allowed {
		observability.LogAudit(ctx, s.logger, s.auditPublisher, "rate_limit_exceeded",
			"identifier", identifier,
			"endpoint", endpoint,
			"limit", limit,
			"window_seconds", int(window.Seconds()),
			"current", decision.Current,
		)
	}

	return decision
}

// Increment bumps the counters for one tier without deciding anything. Used
// by callers that need a pure counter bump, e.g. recording a failed login
// attempt after the credentials check came back negative.
func (s *Service) Increment(ctx context.Context, identifier string, window time.Duration, endpoint string) int {
	if window < time.Second {
		panic(fmt.Sprintf("limiter: window must be >= 1s, got %s", window))
	}
	key := models.NewKey(identifier, window, endpoint).String()
	count, _, _ := s.increment(ctx, key, window, identifier, endpoint)
	return count
}

// increment runs the dual-backend protocol: primary once, fallback once,
// fail open. A failed or slow primary attempt is never retried within the
// same call; the store's own unhealthy marker suppresses attempts across
// calls.
func (s *Service) increment(ctx context.Context, key string, window time.Duration, identifier, endpoint string) (int, time.Time, string) {
	if s.primary != nil {
		count, resetAt, err := s.primary.Increment(ctx, key, window)
		if err == nil {
			return count, resetAt, backendPrimary
		}
		if s.metrics != nil {
			s.metrics.PrimaryUnavailableTotal.Inc()
		}
		if s.logger != nil {
			s.logger.DebugContext(ctx, "primary counter store unavailable, using fallback",
				"key", key, "error", err)
		}
	}

	if s.fallback != nil {
		count, resetAt, err := s.fallback.Increment(ctx, key, window)
		if err == nil {
			return count, resetAt, backendFallback
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "fallback counter store failed, failing open",
				"key", key, "error", err)
		}
	}

	// Deliberate trade-off: a limiter that cannot persist state must not
	// become an outage amplifier, so the request is admitted uncounted.
	if s.metrics != nil {
		s.metrics.FailOpenTotal.Inc()
	}
	observability.LogAudit(ctx, s.logger, s.auditPublisher, "rate_limit_fail_open",
		"identifier", identifier,
		"endpoint", endpoint,
	)
	return 0, time.Time{}, backendFailOpen
}
