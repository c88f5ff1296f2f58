// Package config holds the static limit tables and tunables for the
// admission control module. Tables are loaded once at startup; the resolver
// treats them as immutable.
package config

import (
	"time"
)

// Tier windows are fixed project-wide: every endpoint limit is expressed as
// requests per minute plus requests per hour.
const (
	ShortWindow = time.Minute
	LongWindow  = time.Hour
)

// Limit is one two-tier quota.
type Limit struct {
	PerMinute int
	PerHour   int
}

// EndpointRule maps one (endpoint pattern, method) pair to a quota. Patterns
// may contain :param placeholders which match any single path segment.
// Table order is priority order for pattern rules.
type EndpointRule struct {
	Pattern string
	Method  string
	Limits  Limit
}

// PublicRouteRule overrides limits for unauthenticated routes, matched on the
// exact path regardless of method. These take priority over endpoint rules.
type PublicRouteRule struct {
	Path   string
	Limits Limit
}

// PrimaryStoreConfig bounds how the shared counter store is used.
type PrimaryStoreConfig struct {
	// LatencyBudget is the hard per-call budget; a slower or failed call
	// flips the store to unhealthy and the check falls through once.
	LatencyBudget time.Duration
	// UnhealthyFor is how long the store is skipped after a failure before
	// the next check re-probes it.
	UnhealthyFor time.Duration
}

// LoginGuardConfig fixes the brute force tiers for login traffic.
type LoginGuardConfig struct {
	ShortWindowAttempts int
	ShortWindow         time.Duration
	LongWindowAttempts  int
	LongWindow          time.Duration
	// BypassLocal allows loopback/development traffic to skip the guard
	// entirely. Evaluated before any counter is touched.
	BypassLocal bool
}

// Config is the module configuration consumed by the resolver, stores and
// services.
type Config struct {
	Defaults      Limit
	PublicRoutes  []PublicRouteRule
	EndpointRules []EndpointRule
	Primary       PrimaryStoreConfig
	LoginGuard    LoginGuardConfig
	SweepInterval time.Duration
}

// DefaultConfig returns the shipped limit tables.
func DefaultConfig() *Config {
	return &Config{
		Defaults: Limit{PerMinute: 60, PerHour: 1000},
		PublicRoutes: []PublicRouteRule{
			{Path: "/healthz", Limits: Limit{PerMinute: 120, PerHour: 5000}},
			{Path: "/v1/signup", Limits: Limit{PerMinute: 10, PerHour: 50}},
			{Path: "/v1/password-reset", Limits: Limit{PerMinute: 5, PerHour: 20}},
		},
		EndpointRules: []EndpointRule{
			{Pattern: "/v1/customers", Method: "POST", Limits: Limit{PerMinute: 20, PerHour: 200}},
			{Pattern: "/v1/customers", Method: "GET", Limits: Limit{PerMinute: 90, PerHour: 2000}},
			{Pattern: "/v1/customers/:id", Method: "GET", Limits: Limit{PerMinute: 90, PerHour: 2000}},
			{Pattern: "/v1/customers/:id", Method: "PATCH", Limits: Limit{PerMinute: 30, PerHour: 300}},
			{Pattern: "/v1/subscriptions", Method: "POST", Limits: Limit{PerMinute: 15, PerHour: 100}},
			{Pattern: "/v1/subscriptions/:id", Method: "DELETE", Limits: Limit{PerMinute: 10, PerHour: 50}},
			{Pattern: "/v1/appointments", Method: "POST", Limits: Limit{PerMinute: 30, PerHour: 400}},
			{Pattern: "/v1/appointments/:id", Method: "GET", Limits: Limit{PerMinute: 90, PerHour: 2000}},
			{Pattern: "/v1/clinics/:id/slots", Method: "GET", Limits: Limit{PerMinute: 120, PerHour: 3000}},
			{Pattern: "/v1/exports", Method: "POST", Limits: Limit{PerMinute: 2, PerHour: 10}},
		},
		Primary: PrimaryStoreConfig{
			LatencyBudget: 200 * time.Millisecond,
			UnhealthyFor:  30 * time.Second,
		},
		LoginGuard: LoginGuardConfig{
			ShortWindowAttempts: 5,
			ShortWindow:         15 * time.Minute,
			LongWindowAttempts:  20,
			LongWindow:          time.Hour,
			BypassLocal:         false,
		},
		SweepInterval: 5 * time.Minute,
	}
}
