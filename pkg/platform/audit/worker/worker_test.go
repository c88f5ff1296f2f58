package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "gatekeeper/pkg/platform/audit"
	memory "gatekeeper/pkg/platform/audit/store/memory"
)

func TestRunDrainsInboxIntoStore(t *testing.T) {
	publisher := audit.NewPublisher(8)
	store := memory.New(16)
	worker := NewWorker(store, publisher.Inbox(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	for _, action := range []string{"rate_limit_exceeded", "login_rate_limited", "rate_limit_fail_open"} {
		require.NoError(t, publisher.Emit(ctx, audit.NewEvent(action, "203.0.113.0/24")))
	}

	assert.Eventually(t, func() bool {
		events, err := store.List(ctx)
		return err == nil && len(events) == 3
	}, time.Second, 10*time.Millisecond)
}
