// Package memory holds an in-memory audit store for tests and single-node use.
package memory

import (
	"context"
	"sync"

	audit "gatekeeper/pkg/platform/audit"
)

// Store keeps events in a bounded ring so a chatty limiter cannot grow the
// process without limit. Durable audit persistence lives outside this service.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
	max    int
}

func New(max int) *Store {
	if max <= 0 {
		max = 4096
	}
	return &Store{max: max}
}

func (s *Store) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if len(s.events) > s.max {
		s.events = s.events[len(s.events)-s.max:]
	}
	return nil
}

func (s *Store) List(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out, nil
}
