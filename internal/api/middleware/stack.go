// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// StackConfig selects the optional layers of the ingress chain.
type StackConfig struct {
	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool
}

// NewRouter returns a chi router with the ingress chain installed.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(cfg.chain()...)
	return r
}

// chain is ordered outermost first. Panic recovery wraps everything and
// the access log sits innermost so it sees the final status.
func (c StackConfig) chain() []func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{Recoverer, RequestID}
	if c.EnableMetrics {
		mws = append(mws, Metrics())
	}
	if c.TracingService != "" {
		mws = append(mws, Tracing(c.TracingService))
	}
	if c.EnableLogging {
		mws = append(mws, AccessLog)
	}
	return mws
}
