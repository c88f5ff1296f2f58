// Package memory implements an in-process fixed-window counter store. It
// backs unit tests and single-node deployments that run without Redis or
// Postgres.
package memory

import (
	"context"
	"sync"
	"time"

	"gatekeeper/pkg/requestcontext"
)

type counter struct {
	count   int
	resetAt time.Time
}

// Store counts in a plain map guarded by a mutex. Windows are fixed: resetAt
// is pinned when the first increment creates the window and does not move
// until it elapses.
type Store struct {
	mu       sync.Mutex
	counters map[string]*counter
}

func New() *Store {
	return &Store{counters: make(map[string]*counter)}
}

func (s *Store) Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.counters[key]
	if c == nil || !c.resetAt.After(now) {
		c = &counter{count: 0, resetAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	return c.count, c.resetAt, nil
}

// Sweep drops expired windows. Matches the fallback store's maintenance
// surface so the worker can drive either implementation.
func (s *Store) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, c := range s.counters {
		if !c.resetAt.After(now) {
			delete(s.counters, key)
			removed++
		}
	}
	return removed, nil
}
