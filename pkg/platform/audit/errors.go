package audit

import (
	dErrors "gatekeeper/pkg/domain-errors"
)

// ErrInboxFull signals that an event was dropped because the worker is behind.
var ErrInboxFull = dErrors.New(dErrors.CodeUnavailable, "audit inbox full, event dropped")
