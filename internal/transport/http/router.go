// Package httpapi is the thin HTTP layer over the admission control services.
// Handlers delegate to domain services without embedding decision logic so
// transport concerns remain isolated.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ratelimitmw "gatekeeper/internal/ratelimit/middleware"
	"gatekeeper/internal/ratelimit/models"
	"gatekeeper/internal/ratelimit/service/loginguard"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/httputil"
	"gatekeeper/pkg/requestcontext"
)

// Handler bundles the services the HTTP surface exposes.
type Handler struct {
	login    *loginguard.Service
	policies ratelimitmw.PolicyResolver
	logger   *slog.Logger
}

func NewHandler(login *loginguard.Service, policies ratelimitmw.PolicyResolver, logger *slog.Logger) *Handler {
	return &Handler{login: login, policies: policies, logger: logger}
}

// NewRouter wires all endpoints. The generic limiter middleware covers the
// /v1 subtree; health and metrics stay outside it.
func NewRouter(h *Handler, limit *ratelimitmw.Middleware) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestMetadata)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(limit.Limit())
		r.Post("/login/check", h.handleLoginCheck)
		r.Post("/login/attempts", h.handleLoginAttempt)
		r.Get("/limits", h.handleLimits)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Identifier string `json:"identifier"`
}

func (r *loginRequest) validate() string {
	r.Identifier = strings.TrimSpace(r.Identifier)
	if r.Identifier == "" {
		return "identifier is required"
	}
	if len(r.Identifier) > 255 {
		return "identifier must be 255 characters or less"
	}
	return ""
}

// handleLoginCheck is called by the upstream authenticator before verifying
// credentials. 200 means proceed; 429 means the caller is locked out.
func (h *Handler) handleLoginCheck(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	if msg := req.validate(); msg != "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, msg))
		return
	}

	result := h.login.Check(r.Context(), req.Identifier)
	if !result.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
		httputil.WriteJSON(w, http.StatusTooManyRequests, &models.LoginLockedResponse{
			Error:          "login_rate_limited",
			Message:        "Too many login attempts. Please try again later.",
			RetryAfter:     result.RetryAfter,
			RetryAfterText: result.RetryAfterText,
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// handleLoginAttempt records a failed credentials check. Counter bump only;
// the response never blocks the caller.
func (h *Handler) handleLoginAttempt(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	if msg := req.validate(); msg != "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, msg))
		return
	}

	h.login.RecordFailedAttempt(r.Context(), req.Identifier)
	w.WriteHeader(http.StatusNoContent)
}

// handleLimits reports the policy that would apply to an endpoint/method
// pair. Operational inspection endpoint.
func (h *Handler) handleLimits(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Query().Get("endpoint")
	method := r.URL.Query().Get("method")
	if endpoint == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "endpoint is required"))
		return
	}
	if method == "" {
		method = http.MethodGet
	}

	policy := h.policies.Resolve(endpoint, method)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"endpoint":         endpoint,
		"method":           strings.ToUpper(method),
		"per_minute":       policy.PerShortWindow,
		"per_hour":         policy.PerLongWindow,
		"short_window_sec": int(policy.ShortWindow.Seconds()),
		"long_window_sec":  int(policy.LongWindow.Seconds()),
		"request_id":       requestcontext.RequestID(r.Context()),
	})
}
