package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/iho/entryledger/internal/adapter/http/dto"
)

// IdempotencyKeyHeader is the header name for idempotency keys.
const IdempotencyKeyHeader = "X-Idempotency-Key"

// maxIdempotencyKeyLength bounds keys accepted from the header.
const maxIdempotencyKeyLength = 255

type idempotencyKeyCtx struct{}

// IdempotencyKey lifts the idempotency key header into the request context.
// Deduplication itself happens in the engine against stored transactions.
func IdempotencyKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		values := r.Header.Values(IdempotencyKeyHeader)
		if len(values) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		if len(values) > 1 {
			rejectKey(w, "idempotency key header given more than once")
			return
		}

		key := strings.TrimSpace(values[0])
		if key == "" || len(key) > maxIdempotencyKeyLength {
			rejectKey(w, "idempotency key must be between 1 and 255 characters")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdempotencyKey(r.Context(), key)))
	})
}

// WithIdempotencyKey stores key in ctx.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

// IdempotencyKeyFromContext returns the key set by IdempotencyKey, if any.
func IdempotencyKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKeyCtx{}).(string)
	return key, ok && key != ""
}

func rejectKey(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, dto.ErrorResponse{
		Error:   "invalid idempotency key",
		Message: message,
	})
}
