// Package httputil holds small helpers shared by HTTP handlers and middleware.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "gatekeeper/pkg/domain-errors"
)

// WriteJSON serializes v as the response body with the given status code.
// Encoding failures after the header is written can only be logged by the
// caller's middleware; the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a coded domain error to an HTTP response. Server-side
// failures never leak their message to the client.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": errorToken(code)}

	switch code {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
		// Message stays in the logs.
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			body["error_description"] = de.Message
		}
	}

	WriteJSON(w, statusOf(code), body)
}

func statusOf(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorToken(code dErrors.Code) string {
	if code == dErrors.CodeInternal {
		return "internal_error"
	}
	return string(code)
}
