package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type StoreSuite struct {
	suite.Suite
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

// unreachableClient dials a port nothing listens on, so every command fails
// fast with a connection error.
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		ReadTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func (s *StoreSuite) TestFailureMarksUnhealthy() {
	client := unreachableClient()
	defer client.Close()
	store := New(client, WithUnhealthyFor(time.Hour))

	s.True(store.Available())
	_, _, err := store.Increment(context.Background(), "ratelimit:k:60", time.Minute)
	s.ErrorIs(err, ErrUnavailable)
	s.False(store.Available())
}

func (s *StoreSuite) TestUnhealthyMarkerSkipsNetwork() {
	client := unreachableClient()
	store := New(client, WithUnhealthyFor(time.Hour))

	_, _, err := store.Increment(context.Background(), "ratelimit:k:60", time.Minute)
	s.Require().ErrorIs(err, ErrUnavailable)
	client.Close()

	// A nil client would panic on any command; the marker must return
	// before one is issued.
	store.client = nil
	_, _, err = store.Increment(context.Background(), "ratelimit:k:60", time.Minute)
	s.ErrorIs(err, ErrUnavailable)
}

func (s *StoreSuite) TestReprobeAfterMarkerExpires() {
	client := unreachableClient()
	defer client.Close()
	store := New(client, WithUnhealthyFor(10*time.Millisecond))

	_, _, err := store.Increment(context.Background(), "ratelimit:k:60", time.Minute)
	s.Require().ErrorIs(err, ErrUnavailable)

	time.Sleep(20 * time.Millisecond)
	s.True(store.Available())

	// The re-probe reaches the network again and re-arms the marker.
	_, _, err = store.Increment(context.Background(), "ratelimit:k:60", time.Minute)
	s.ErrorIs(err, ErrUnavailable)
	s.False(store.Available())
}
