package gateway

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey int

const requestIDKey ctxKey = 0

// RequestID returns the request identifier attached by the middleware, or ""
// outside of one.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestIDMiddleware takes the caller-supplied identifier from headerName,
// generating one when absent, and echoes it on the response. Every response,
// success or failure, carries the identifier.
func requestIDMiddleware(headerName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(headerName)
			if id == "" {
				id = uuid.New().String()
			}
			w.Header().Set("X-Request-Id", id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
		})
	}
}

// recoverMiddleware converts a handler panic into the 500 INTERNAL envelope.
// No diagnostic text reaches the caller; the request identifier allows
// correlation with the logged error.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				requestID := RequestID(r.Context())
				slog.Error("panic while handling request",
					"request_id", requestID,
					"path", r.URL.Path,
					"panic", rec,
				)
				writeFailure(w, http.StatusInternalServerError, requestID, errorBody{
					Type:    TypeInternal,
					Code:    CodeInternal,
					Message: "Unexpected server error.",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
