// Package audit defines the security audit event model and its sinks.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Severity grades how urgently an event should be reviewed.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Event is a single append-only audit record. Rate limit denials, lockouts
// and degraded-mode transitions all flow through this shape.
type Event struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject"` // anonymized identifier (IP prefix, tenant id)
	Endpoint  string    `json:"endpoint,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent builds an event with a fresh ID and timestamp.
func NewEvent(action, subject string) Event {
	return Event{
		ID:        uuid.NewString(),
		Action:    action,
		Subject:   subject,
		Severity:  SeverityInfo,
		Timestamp: time.Now(),
	}
}

// Store is the persistence sink for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context) ([]Event, error)
}
