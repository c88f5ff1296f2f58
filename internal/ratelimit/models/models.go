package models

import (
	"time"
)

// Decision is the outcome of a single rate limit check against one tier.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	Current   int       `json:"current"`
}

// RetryAfter returns the seconds until the window resets, clamped to >= 0 so
// it is always safe to render as a Retry-After header.
func (d *Decision) RetryAfter(now time.Time) int {
	return max(int(d.ResetAt.Sub(now).Seconds()), 0)
}

// NewDecision computes a Decision from an observed counter value.
func NewDecision(count, limit int, resetAt time.Time) *Decision {
	return &Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   resetAt,
		Current:   count,
	}
}

// Combine merges two per-tier decisions into the most pessimistic view: the
// request passes only if both tiers pass, the client is told the smallest
// effective quota and the latest reset. That makes the combined result safe
// to render directly as Retry-After.
func Combine(a, b *Decision) *Decision {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	combined := &Decision{
		Allowed:   a.Allowed && b.Allowed,
		Limit:     min(a.Limit, b.Limit),
		Remaining: min(a.Remaining, b.Remaining),
		ResetAt:   a.ResetAt,
		Current:   max(a.Current, b.Current),
	}
	if b.ResetAt.After(a.ResetAt) {
		combined.ResetAt = b.ResetAt
	}
	return combined
}

// LimitPolicy is the tiered limit configuration resolved for one endpoint.
type LimitPolicy struct {
	PerShortWindow int
	PerLongWindow  int
	ShortWindow    time.Duration
	LongWindow     time.Duration
}
