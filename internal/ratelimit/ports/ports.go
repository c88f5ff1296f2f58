// Package ports defines shared interfaces for the ratelimit module.
// Interfaces are placed here when consumed by multiple services to avoid duplication.
package ports

import (
	"context"
	"time"

	"gatekeeper/pkg/platform/audit"
)

// CounterStore is the atomic counting surface shared by the primary, fallback
// and in-memory stores. Increment bumps the fixed-window counter for key,
// creating the window on first use, and returns the post-increment count plus
// when the window resets.
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
}

// Sweeper removes expired fallback rows; implemented by the postgres store
// and driven by the maintenance worker, never by request traffic.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (removed int, err error)
}

// AuditPublisher emits audit events for security-relevant outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
