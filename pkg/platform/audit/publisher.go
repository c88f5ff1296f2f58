package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Publisher hands audit events to a bounded inbox drained by the Worker.
// Emit never blocks the request path: when the inbox is full the event is
// dropped and the caller's logger remains the record of it.
type Publisher struct {
	inbox chan Event
}

// NewPublisher creates a publisher with the given inbox capacity.
func NewPublisher(capacity int) *Publisher {
	if capacity <= 0 {
		capacity = 256
	}
	return &Publisher{inbox: make(chan Event, capacity)}
}

// Emit enqueues an event, filling in ID and timestamp when absent.
// Returns ErrInboxFull when the event had to be dropped.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		return ErrInboxFull
	}
}

// Inbox exposes the receive side for the drain worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
