// Package worker drains the audit publisher inbox into a store.
package worker

import (
	"context"
	"log/slog"

	audit "gatekeeper/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. It keeps
// background processing testable without wiring queue implementations.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run blocks until ctx is cancelled. Store failures are logged, not fatal;
// losing an audit record must not take the drain loop down with it.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil && w.logger != nil {
				w.logger.WarnContext(ctx, "failed to persist audit event",
					"action", event.Action, "error", err)
			}
		}
	}
}
