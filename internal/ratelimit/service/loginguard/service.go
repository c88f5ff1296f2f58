// Package loginguard specializes the counting core for login brute force
// protection: two fixed tiers, automatic unblocking when the window resets,
// and a development bypass that short-circuits before any counter mutation.
package loginguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"gatekeeper/internal/ratelimit/config"
	"gatekeeper/internal/ratelimit/metrics"
	"gatekeeper/internal/ratelimit/models"
	"gatekeeper/internal/ratelimit/observability"
	"gatekeeper/internal/ratelimit/ports"
	"gatekeeper/pkg/platform/privacy"
	"gatekeeper/pkg/requestcontext"
)

// Login counters share one namespace, distinct from every API quota key.
const keyPrefix = "login_"

// CheckResult is the guard's verdict for one login attempt.
type CheckResult struct {
	Allowed        bool      `json:"allowed"`
	Bypassed       bool      `json:"bypassed,omitempty"`
	Remaining      int       `json:"remaining"`
	ResetAt        time.Time `json:"reset_at"`
	RetryAfter     int       `json:"retry_after,omitempty"`
	RetryAfterText string    `json:"retry_after_text,omitempty"`
}

// Limiter is the slice of the counting core the guard needs.
type Limiter interface {
	Check(ctx context.Context, identifier string, limit int, window time.Duration, endpoint string) *models.Decision
	Increment(ctx context.Context, identifier string, window time.Duration, endpoint string) int
}

type Service struct {
	limiter        Limiter
	cfg            config.LoginGuardConfig
	devMode        bool
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher ports.AuditPublisher
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

// WithDevMode marks the process as development; combined with BypassLocal it
// lets local traffic skip the guard.
func WithDevMode(dev bool) Option {
	return func(s *Service) {
		s.devMode = dev
	}
}

func New(limiter Limiter, cfg config.LoginGuardConfig, opts ...Option) (*Service, error) {
	if limiter == nil {
		return nil, errors.New("limiter is required")
	}
	if cfg.LongWindowAttempts <= cfg.ShortWindowAttempts || cfg.LongWindow <= cfg.ShortWindow {
		return nil, errors.New("long tier must be wider and more permissive than short tier")
	}

	svc := &Service{limiter: limiter, cfg: cfg}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Check counts this attempt against both tiers and denies when either is
// exhausted. Every call counts as an attempt, successful or not; failed
// attempts additionally go through RecordFailedAttempt.
func (s *Service) Check(ctx context.Context, clientID string) *CheckResult {
	// The bypass must run before any counter is touched so local traffic
	// never accumulates state.
	if s.bypassed(ctx) {
		return &CheckResult{Allowed: true, Bypassed: true, Remaining: s.cfg.ShortWindowAttempts}
	}

	identifier := keyPrefix + clientID
	short := s.limiter.Check(ctx, identifier, s.cfg.ShortWindowAttempts, s.cfg.ShortWindow, "")
	long := s.limiter.Check(ctx, identifier, s.cfg.LongWindowAttempts, s.cfg.LongWindow, "")
	combined := models.Combine(short, long)

	now := requestcontext.Now(ctx)
	result := &CheckResult{
		Allowed:   combined.Allowed,
		Remaining: combined.Remaining,
		ResetAt:   combined.ResetAt,
	}
	if !combined.Allowed {
		// The wait hint comes from the tier that actually denied; a short
		// window lockout must not tell the caller to wait out the long one.
		reset := deniedReset(short, long)
		result.ResetAt = reset
		result.RetryAfter = max(int(reset.Sub(now).Seconds()), 0)
		result.RetryAfterText = humanDuration(reset.Sub(now))

		if s.metrics != nil {
			s.metrics.LoginDenialsTotal.Inc()
		}
		observability.LogAudit(ctx, s.logger, s.auditPublisher, "login_rate_limited",
			"identifier", clientID,
			"ip", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
			"retry_after", result.RetryAfter,
		)
	}
	return result
}

// RecordFailedAttempt bumps both tier counters after a credentials check came
// back negative. Pure counter bump; it never denies by itself.
func (s *Service) RecordFailedAttempt(ctx context.Context, clientID string) {
	if s.bypassed(ctx) {
		return
	}
	identifier := keyPrefix + clientID
	s.limiter.Increment(ctx, identifier, s.cfg.ShortWindow, "")
	s.limiter.Increment(ctx, identifier, s.cfg.LongWindow, "")
}

// deniedReset returns the latest reset time among the tiers that denied.
func deniedReset(decisions ...*models.Decision) time.Time {
	var reset time.Time
	for _, d := range decisions {
		if d != nil && !d.Allowed && d.ResetAt.After(reset) {
			reset = d.ResetAt
		}
	}
	return reset
}

// bypassed reports whether this request is local/development traffic.
func (s *Service) bypassed(ctx context.Context) bool {
	if !s.cfg.BypassLocal {
		return false
	}
	if s.devMode {
		return true
	}
	ip := net.ParseIP(requestcontext.ClientIP(ctx))
	return ip != nil && ip.IsLoopback()
}

// humanDuration renders a retry hint for response bodies: "45 seconds",
// "about 14 minutes", "about 1 hour".
func humanDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", max(int(d.Seconds()), 1))
	case d < time.Hour:
		return fmt.Sprintf("about %d minutes", max(int(d.Round(time.Minute).Minutes()), 1))
	default:
		hours := int(d.Round(time.Hour).Hours())
		if hours == 1 {
			return "about 1 hour"
		}
		return fmt.Sprintf("about %d hours", hours)
	}
}
