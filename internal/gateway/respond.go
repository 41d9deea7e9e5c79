package gateway

import (
	"encoding/json"
	"net/http"
)

// Error taxonomy. Every failed request maps to exactly one of these types.
const (
	TypeAuth       = "AUTH"
	TypeValidation = "VALIDATION"
	TypePolicy     = "POLICY"
	TypeUpstream   = "UPSTREAM"
	TypeInternal   = "INTERNAL"
)

// Machine-stable error codes.
const (
	CodeAuthInvalid          = "AUTH_INVALID"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeJSONInvalid          = "JSON_INVALID"
	CodeSchemaInvalid        = "SCHEMA_INVALID"
	CodeDeduped              = "DEDUPED"
	CodeRateLimited          = "RATE_LIMITED"
	CodeMailmuxFailed        = "MAILMUX_FAILED"
	CodeMailmuxTimeout       = "MAILMUX_TIMEOUT"
	CodeInternal             = "INTERNAL"
)

// envelope is the JSON body returned on every outcome.
type envelope struct {
	OK        bool           `json:"ok"`
	RequestID string         `json:"request_id"`
	Result    string         `json:"result,omitempty"`
	Mailmux   *mailmuxStatus `json:"mailmux,omitempty"`
	Error     *errorBody     `json:"error,omitempty"`
}

type mailmuxStatus struct {
	Status int `json:"status"`
}

type errorBody struct {
	Type    string         `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// writeJSON encodes v with the request identifier echoed in the header.
func writeJSON(w http.ResponseWriter, status int, requestID string, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", requestID)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDelivered(w http.ResponseWriter, requestID string, upstreamStatus int) {
	writeJSON(w, http.StatusAccepted, requestID, envelope{
		OK:        true,
		RequestID: requestID,
		Result:    "DELIVERED",
		Mailmux:   &mailmuxStatus{Status: upstreamStatus},
	})
}

func writeFailure(w http.ResponseWriter, status int, requestID string, e errorBody) {
	writeJSON(w, status, requestID, envelope{
		OK:        false,
		RequestID: requestID,
		Error:     &e,
	})
}
