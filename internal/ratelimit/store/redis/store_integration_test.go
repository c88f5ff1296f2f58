//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatekeeper/pkg/testutil/containers"
)

type RedisStoreIntegrationSuite struct {
	suite.Suite
	rc    *containers.RedisContainer
	store *Store
}

func TestRedisStoreIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreIntegrationSuite))
}

func (s *RedisStoreIntegrationSuite) SetupSuite() {
	s.rc = containers.NewRedisContainer(s.T())
	s.store = New(s.rc.Client)
}

func (s *RedisStoreIntegrationSuite) TearDownSuite() {
	if s.rc != nil {
		_ = s.rc.Client.Close()
		_ = s.rc.Container.Terminate(context.Background())
	}
}

func (s *RedisStoreIntegrationSuite) SetupTest() {
	s.Require().NoError(s.rc.FlushAll(context.Background()))
}

func (s *RedisStoreIntegrationSuite) TestIncrement() {
	ctx := context.Background()

	s.Run("counts sequentially and stays healthy", func() {
		for n := 1; n <= 5; n++ {
			count, _, err := s.store.Increment(ctx, "ratelimit:seq:60", time.Minute)
			s.Require().NoError(err)
			s.Equal(n, count)
		}
		s.True(s.store.Available())
	})

	s.Run("first increment pins the window TTL", func() {
		before := time.Now()
		_, resetAt, err := s.store.Increment(ctx, "ratelimit:ttl:60", time.Minute)
		s.Require().NoError(err)

		s.WithinDuration(before.Add(time.Minute), resetAt, 2*time.Second)

		ttl, err := s.rc.Client.PTTL(ctx, "ratelimit:ttl:60").Result()
		s.Require().NoError(err)
		s.Positive(ttl)
		s.LessOrEqual(ttl, time.Minute)
	})

	s.Run("later increments keep the original reset", func() {
		_, first, err := s.store.Increment(ctx, "ratelimit:pin:60", time.Minute)
		s.Require().NoError(err)

		time.Sleep(100 * time.Millisecond)
		_, second, err := s.store.Increment(ctx, "ratelimit:pin:60", time.Minute)
		s.Require().NoError(err)
		s.WithinDuration(first, second, 500*time.Millisecond)
	})

	s.Run("expired key starts a fresh window", func() {
		count, _, err := s.store.Increment(ctx, "ratelimit:exp:1", time.Second)
		s.Require().NoError(err)
		s.Equal(1, count)

		time.Sleep(1200 * time.Millisecond)
		count, _, err = s.store.Increment(ctx, "ratelimit:exp:1", time.Second)
		s.Require().NoError(err)
		s.Equal(1, count)
	})
}
