package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds the request context instead of buffering the response like
// http.TimeoutHandler. Synchronous batches observe the deadline between items
// and report the rest as cancelled.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
