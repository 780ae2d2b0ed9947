// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ManuGH/relay247/internal/log"
)

const (
	defaultControlLimit  = 10
	defaultControlWindow = time.Minute
)

// ControlRateLimit caps start and stop calls per client IP and endpoint
// within a sliding window. Non-positive arguments fall back to 10 calls
// per minute.
func ControlRateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = defaultControlLimit
	}
	if window <= 0 {
		window = defaultControlWindow
	}
	retryAfter := strconv.Itoa(int(window.Round(time.Second) / time.Second))

	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger := log.WithComponentFromContext(r.Context(), "ratelimit")
			logger.Warn().
				Str(log.FieldEvent, "control.rate_limited").
				Str("path", r.URL.Path).
				Msg("control request rejected")
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}` + "\n"))
		}),
	)
}
