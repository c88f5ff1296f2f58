// Package middleware adapts the counting core to HTTP: it resolves the
// endpoint's policy, checks both tiers, and renders the combined decision as
// status code and headers. It deliberately contains no counting logic.
package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"gatekeeper/internal/ratelimit/models"
	"gatekeeper/pkg/platform/httputil"
	"gatekeeper/pkg/requestcontext"
)

// Limiter is the slice of the counting core the middleware needs.
type Limiter interface {
	Check(ctx context.Context, identifier string, limit int, window time.Duration, endpoint string) *models.Decision
}

// PolicyResolver maps (endpoint, method) to a tiered limit configuration.
type PolicyResolver interface {
	Resolve(endpoint, method string) models.LimitPolicy
}

type Middleware struct {
	limiter  Limiter
	policies PolicyResolver
	logger   *slog.Logger
	identify func(r *http.Request) string
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// WithIdentifier overrides how the caller identity is derived from a request.
// The default uses the client IP placed in context by the metadata middleware.
func WithIdentifier(fn func(r *http.Request) string) Option {
	return func(m *Middleware) {
		m.identify = fn
	}
}

func New(limiter Limiter, policies PolicyResolver, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter:  limiter,
		policies: policies,
		logger:   logger,
		identify: identifyByIP,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled && logger != nil {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Limit enforces the resolved two-tier policy for every request passing
// through. Headers are set on allowed and denied responses alike.
func (m *Middleware) Limit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			identifier := m.identify(r)
			policy := m.policies.Resolve(r.URL.Path, r.Method)

			short := m.limiter.Check(ctx, identifier, policy.PerShortWindow, policy.ShortWindow, r.URL.Path)
			long := m.limiter.Check(ctx, identifier, policy.PerLongWindow, policy.LongWindow, r.URL.Path)
			combined := models.Combine(short, long)

			addRateLimitHeaders(w, combined, requestcontext.Now(ctx))

			if !combined.Allowed {
				writeRateLimitExceeded(w, combined, requestcontext.Now(ctx))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// addRateLimitHeaders renders the combined decision; set on every checked
// response so well-behaved clients can pace themselves before hitting 429.
func addRateLimitHeaders(w http.ResponseWriter, decision *models.Decision, now time.Time) {
	if decision == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
	w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter(now)))
}

func writeRateLimitExceeded(w http.ResponseWriter, decision *models.Decision, now time.Time) {
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: decision.RetryAfter(now),
	})
}

// identifyByIP derives the caller handle from the client IP. Prefers the
// value the metadata middleware resolved; falls back to RemoteAddr for
// handlers mounted without it.
func identifyByIP(r *http.Request) string {
	ip := requestcontext.ClientIP(r.Context())
	if ip == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip = host
	}
	return "ip_" + ip
}
