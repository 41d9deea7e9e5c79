// Package gateway wires the request-processing pipeline: credential
// verification, strict schema validation, the suppression policy, the single
// delivery attempt, and the mapping of every outcome to one deterministic
// response.
package gateway

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opsmux/alertgate/internal/auth"
	"github.com/opsmux/alertgate/internal/config"
	"github.com/opsmux/alertgate/internal/mailmux"
	"github.com/opsmux/alertgate/internal/metrics"
	"github.com/opsmux/alertgate/internal/policy"
	"github.com/opsmux/alertgate/internal/schema"
)

// Handler holds the pipeline dependencies. Stores and clients are injected
// so there is no package-level mutable state.
type Handler struct {
	cfg       *config.Settings
	verifier  *auth.Verifier
	validator *schema.Validator
	policy    *policy.Engine
	delivery  *mailmux.Client
}

// New builds the HTTP handler and registers all routes.
func New(cfg *config.Settings, verifier *auth.Verifier, validator *schema.Validator, pol *policy.Engine, delivery *mailmux.Client) http.Handler {
	h := &Handler{
		cfg:       cfg,
		verifier:  verifier,
		validator: validator,
		policy:    pol,
		delivery:  delivery,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware(cfg.RequestIDHeader))
	r.Use(recoverMiddleware)

	r.Post("/v1/alerts", h.submitAlert)
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// requestTrace accumulates per-stage results for the access log.
type requestTrace struct {
	auth       string
	validation string
	policy     string
	mailmux    int
	outcome    string
}

// submitAlert runs one request through the fixed stage sequence. Every stage
// failure is terminal and maps to exactly one response; nothing is retried.
func (h *Handler) submitAlert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := RequestID(r.Context())
	tr := requestTrace{auth: "ok", validation: "ok", policy: "accepted"}
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RequestsTotal.WithLabelValues(tr.outcome).Inc()
		metrics.RequestDuration.Observe(float64(latency))
		slog.Info("alert request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"auth_result", tr.auth,
			"validation_result", tr.validation,
			"policy_result", tr.policy,
			"mailmux_status", tr.mailmux,
			"outcome", tr.outcome,
			"latency_ms", latency,
		)
	}()

	// Stage: authenticate.
	if !h.verifier.Verify(r.Header.Get("Authorization"), r.Header.Get(h.cfg.Auth.SecretHeaderName)) {
		tr.auth, tr.outcome = "fail", "auth_failed"
		w.Header().Set("WWW-Authenticate", `Bearer realm="alertgate"`)
		writeFailure(w, http.StatusUnauthorized, requestID, errorBody{
			Type:    TypeAuth,
			Code:    CodeAuthInvalid,
			Message: "Authentication failed: missing or invalid credentials.",
		})
		return
	}

	// Stage: parse.
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "application/json") {
		tr.validation, tr.outcome = "fail", "unsupported_media"
		writeFailure(w, http.StatusUnsupportedMediaType, requestID, errorBody{
			Type:    TypeValidation,
			Code:    CodeUnsupportedMediaType,
			Message: "Content-Type must be application/json.",
		})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		tr.validation = "fail"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			tr.outcome = "too_large"
			writeFailure(w, http.StatusRequestEntityTooLarge, requestID, errorBody{
				Type:    TypeValidation,
				Code:    CodePayloadTooLarge,
				Message: "Request body exceeded maximum size.",
			})
			return
		}
		tr.outcome = "invalid"
		writeFailure(w, http.StatusBadRequest, requestID, errorBody{
			Type:    TypeValidation,
			Code:    CodeJSONInvalid,
			Message: "Request body is not valid JSON.",
		})
		return
	}

	// Stage: validate.
	a, fieldErrs, err := h.validator.Validate(body)
	if err != nil {
		tr.validation = "fail"
		if errors.Is(err, schema.ErrMalformedJSON) {
			tr.outcome = "invalid"
			writeFailure(w, http.StatusBadRequest, requestID, errorBody{
				Type:    TypeValidation,
				Code:    CodeJSONInvalid,
				Message: "Request body is not valid JSON.",
			})
			return
		}
		tr.outcome = "internal_error"
		slog.Error("validator failure", "request_id", requestID, "err", err)
		writeFailure(w, http.StatusInternalServerError, requestID, errorBody{
			Type:    TypeInternal,
			Code:    CodeInternal,
			Message: "Unexpected server error.",
		})
		return
	}
	if len(fieldErrs) > 0 {
		tr.validation, tr.outcome = "fail", "invalid"
		writeFailure(w, http.StatusBadRequest, requestID, errorBody{
			Type:    TypeValidation,
			Code:    CodeSchemaInvalid,
			Message: "Request body failed validation.",
			Details: map[string]any{"field_errors": fieldErrs},
		})
		return
	}

	// Stage: policy.
	decision := h.policy.Check(a)
	if decision.Dedupe.Suppressed {
		tr.policy, tr.outcome = "deduped", "deduped"
		retryAfter := int(decision.Dedupe.RetryAfter.Seconds())
		w.Header().Set("X-Policy-Result", "deduped")
		w.Header().Set("X-Dedupe-Key", decision.Dedupe.Key)
		w.Header().Set("X-Dedupe-Window-Seconds", strconv.Itoa(h.cfg.Policy.DedupeWindowSeconds))
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeFailure(w, http.StatusConflict, requestID, errorBody{
			Type:    TypePolicy,
			Code:    CodeDeduped,
			Message: "Alert suppressed by deduplication window.",
			Details: map[string]any{
				"dedupe_window_seconds": h.cfg.Policy.DedupeWindowSeconds,
				"dedupe_key":            decision.Dedupe.Key,
			},
		})
		return
	}
	if decision.RateLimit.Limited {
		tr.policy, tr.outcome = "rate_limited", "rate_limited"
		w.Header().Set("X-Policy-Result", "rate_limited")
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(h.cfg.Policy.RateLimitMax))
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.RateLimit.ResetAt.Unix(), 10))
		w.Header().Set("Retry-After", strconv.Itoa(int(decision.RateLimit.RetryAfter.Seconds())))
		writeFailure(w, http.StatusTooManyRequests, requestID, errorBody{
			Type:    TypePolicy,
			Code:    CodeRateLimited,
			Message: "Rate limit exceeded for service+error_code window.",
			Details: map[string]any{
				"rate_limit_max":            h.cfg.Policy.RateLimitMax,
				"rate_limit_window_seconds": h.cfg.Policy.RateLimitWindowSeconds,
				"key":                       decision.RateLimit.Key,
			},
		})
		return
	}

	// Stage: deliver. One call, no retries under any outcome.
	outcome, err := h.delivery.Deliver(r.Context(), a, requestID)
	if err != nil {
		tr.outcome = "internal_error"
		slog.Error("delivery failure", "request_id", requestID, "err", err)
		writeFailure(w, http.StatusInternalServerError, requestID, errorBody{
			Type:    TypeInternal,
			Code:    CodeInternal,
			Message: "Unexpected server error.",
		})
		return
	}
	tr.mailmux = outcome.Status
	switch outcome.Kind {
	case mailmux.Delivered:
		tr.outcome = "delivered"
		writeDelivered(w, requestID, outcome.Status)
	case mailmux.TimedOut:
		tr.outcome = "upstream_timeout"
		writeFailure(w, http.StatusGatewayTimeout, requestID, errorBody{
			Type:    TypeUpstream,
			Code:    CodeMailmuxTimeout,
			Message: "Mailmux request timed out; no retry was attempted.",
			Details: map[string]any{"timeout_ms": h.cfg.Mailmux.TimeoutMs},
		})
	default:
		tr.outcome = "upstream_failed"
		writeFailure(w, http.StatusBadGateway, requestID, errorBody{
			Type:    TypeUpstream,
			Code:    CodeMailmuxFailed,
			Message: "Mailmux returned non-success status.",
			Details: map[string]any{"upstream_status": outcome.Status},
		})
	}
}

// healthz is the liveness probe.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RequestID(r.Context()), map[string]string{"status": "ok"})
}

// readyz reports readiness with policy store occupancy for operators.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RequestID(r.Context()), map[string]any{
		"status":               "ready",
		"dedupe_store_keys":    h.policy.Dedupe.Len(),
		"ratelimit_store_keys": h.policy.RateLimit.Len(),
	})
}
