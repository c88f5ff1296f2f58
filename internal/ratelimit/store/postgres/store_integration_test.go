//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"gatekeeper/pkg/requestcontext"
	"gatekeeper/pkg/testutil/containers"
)

type PostgresStoreIntegrationSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
	now   time.Time
	ctx   context.Context
}

func TestPostgresStoreIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreIntegrationSuite))
}

func (s *PostgresStoreIntegrationSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = New(s.pg.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreIntegrationSuite) TearDownSuite() {
	if s.pg != nil {
		_ = s.pg.DB.Close()
		_ = s.pg.Container.Terminate(context.Background())
	}
}

func (s *PostgresStoreIntegrationSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateCounters(context.Background()))
	s.now = time.Now().Truncate(time.Second)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *PostgresStoreIntegrationSuite) TestIncrement() {
	s.Run("counts sequentially within a window", func() {
		for n := 1; n <= 5; n++ {
			count, resetAt, err := s.store.Increment(s.ctx, "ratelimit:seq:60", time.Minute)
			s.Require().NoError(err)
			s.Equal(n, count)
			s.Equal(s.now.Add(time.Minute).Unix(), resetAt.Unix())
		}
	})

	s.Run("expired window rolls over in the same statement", func() {
		_, _, err := s.store.Increment(s.ctx, "ratelimit:roll:60", time.Minute)
		s.Require().NoError(err)

		later := requestcontext.WithTime(context.Background(), s.now.Add(2*time.Minute))
		count, resetAt, err := s.store.Increment(later, "ratelimit:roll:60", time.Minute)
		s.Require().NoError(err)
		s.Equal(1, count)
		s.Equal(s.now.Add(3*time.Minute).Unix(), resetAt.Unix())
	})
}

// TestConcurrentIncrements drives parallel increments against one key; the
// upsert must serialize on the row so no increment is lost.
func (s *PostgresStoreIntegrationSuite) TestConcurrentIncrements() {
	const workers = 50

	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			_, _, err := s.store.Increment(s.ctx, "ratelimit:conc:60", time.Minute)
			return err
		})
	}
	s.Require().NoError(g.Wait())

	count, _, err := s.store.Get(s.ctx, "ratelimit:conc:60")
	s.Require().NoError(err)
	s.Equal(workers, count)
}

func (s *PostgresStoreIntegrationSuite) TestGet() {
	s.Run("missing key reads as zero", func() {
		count, resetAt, err := s.store.Get(s.ctx, "ratelimit:absent:60")
		s.Require().NoError(err)
		s.Equal(0, count)
		s.True(resetAt.IsZero())
	})

	s.Run("expired row reads as zero", func() {
		_, _, err := s.store.Increment(s.ctx, "ratelimit:stale:60", time.Minute)
		s.Require().NoError(err)

		later := requestcontext.WithTime(context.Background(), s.now.Add(2*time.Minute))
		count, _, err := s.store.Get(later, "ratelimit:stale:60")
		s.Require().NoError(err)
		s.Equal(0, count)
	})
}

func (s *PostgresStoreIntegrationSuite) TestSweep() {
	_, _, err := s.store.Increment(s.ctx, "ratelimit:old:60", time.Minute)
	s.Require().NoError(err)
	_, _, err = s.store.Increment(s.ctx, "ratelimit:fresh:3600", time.Hour)
	s.Require().NoError(err)

	removed, err := s.store.Sweep(context.Background(), s.now.Add(2*time.Minute))
	s.Require().NoError(err)
	s.Equal(1, removed)

	count, _, err := s.store.Get(s.ctx, "ratelimit:fresh:3600")
	s.Require().NoError(err)
	s.Equal(1, count)
}
