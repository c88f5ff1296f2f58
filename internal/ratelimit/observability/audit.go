// Package observability provides audit logging helpers for the ratelimit module.
package observability

import (
	"context"
	"log/slog"

	"gatekeeper/internal/ratelimit/ports"
	"gatekeeper/pkg/platform/audit"
	"gatekeeper/pkg/requestcontext"
)

// LogAudit logs audit events to both structured logger and audit publisher.
// It enriches events with the request ID and extracts the subject and reason
// from attrList.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher ports.AuditPublisher, event string, attrList ...any) {
	requestID := requestcontext.RequestID(ctx)

	if requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}

	args := append(attrList, "event", event, "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, event, args...)
	}

	if publisher == nil {
		return
	}

	err := publisher.Emit(ctx, audit.Event{
		Action:    event,
		Subject:   extractString(attrList, "identifier", "ip"),
		Endpoint:  extractString(attrList, "endpoint"),
		RequestID: requestID,
		Reason:    extractString(attrList, "reason"),
		Severity:  audit.SeverityWarning,
	})
	if err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event, "error", err)
	}
}

// extractString returns the first string value found for any of the keys in a
// slog-style key-value list.
func extractString(attrList []any, keys ...string) string {
	for _, key := range keys {
		for i := 0; i+1 < len(attrList); i += 2 {
			if k, ok := attrList[i].(string); ok && k == key {
				if v, ok := attrList[i+1].(string); ok && v != "" {
					return v
				}
			}
		}
	}
	return ""
}
