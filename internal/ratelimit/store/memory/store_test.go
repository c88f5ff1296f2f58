package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatekeeper/pkg/requestcontext"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Store
	now   time.Time
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *MemoryStoreSuite) TestIncrement() {
	s.Run("nth increment returns n", func() {
		for n := 1; n <= 5; n++ {
			count, _, err := s.store.Increment(s.ctx, "k1", time.Minute)
			s.Require().NoError(err)
			s.Equal(n, count)
		}
	})

	s.Run("reset time is pinned at window creation", func() {
		_, first, err := s.store.Increment(s.ctx, "k2", time.Minute)
		s.Require().NoError(err)
		s.Equal(s.now.Add(time.Minute), first)

		// Later increments within the window must not move the reset.
		later := requestcontext.WithTime(context.Background(), s.now.Add(30*time.Second))
		_, second, err := s.store.Increment(later, "k2", time.Minute)
		s.Require().NoError(err)
		s.Equal(first, second)
	})

	s.Run("expired window starts fresh at one", func() {
		_, _, err := s.store.Increment(s.ctx, "k3", time.Minute)
		s.Require().NoError(err)

		after := requestcontext.WithTime(context.Background(), s.now.Add(61*time.Second))
		count, resetAt, err := s.store.Increment(after, "k3", time.Minute)
		s.Require().NoError(err)
		s.Equal(1, count)
		s.Equal(s.now.Add(61*time.Second).Add(time.Minute), resetAt)
	})

	s.Run("keys are independent", func() {
		count, _, err := s.store.Increment(s.ctx, "k4", time.Minute)
		s.Require().NoError(err)
		s.Equal(1, count)

		count, _, err = s.store.Increment(s.ctx, "k5", time.Minute)
		s.Require().NoError(err)
		s.Equal(1, count)
	})
}

func (s *MemoryStoreSuite) TestConcurrentIncrements() {
	const goroutines = 100
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.store.Increment(s.ctx, "concurrent", time.Minute)
			s.NoError(err)
		}()
	}
	wg.Wait()

	count, _, err := s.store.Increment(s.ctx, "concurrent", time.Minute)
	s.Require().NoError(err)
	s.Equal(goroutines+1, count)
}

func (s *MemoryStoreSuite) TestSweep() {
	_, _, err := s.store.Increment(s.ctx, "expired", time.Minute)
	s.Require().NoError(err)
	_, _, err = s.store.Increment(s.ctx, "live", time.Hour)
	s.Require().NoError(err)

	removed, err := s.store.Sweep(context.Background(), s.now.Add(2*time.Minute))
	s.Require().NoError(err)
	s.Equal(1, removed)

	// The surviving window keeps counting.
	count, _, err := s.store.Increment(s.ctx, "live", time.Hour)
	s.Require().NoError(err)
	s.Equal(2, count)
}
