// SPDX-License-Identifier: MIT

// Package middleware provides HTTP middleware for the control API.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracing opens a server span per request through otelhttp, which handles
// W3C propagation and status mapping. Spans are named by method and chi
// route pattern; unrouted requests carry the method only.
func Tracing(service string) func(http.Handler) http.Handler {
	instrument := otelhttp.NewMiddleware(service,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return spanName(r)
		}),
	)
	return func(next http.Handler) http.Handler {
		return instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			// Handlers below may have routed a copy of r; the chi context is shared.
			span := trace.SpanFromContext(r.Context())
			span.SetName(spanName(r))
			if route := chiRoute(r); route != "" {
				span.SetAttributes(semconv.HTTPRouteKey.String(route))
			}
		}))
	}
}

func spanName(r *http.Request) string {
	if route := chiRoute(r); route != "" {
		return r.Method + " " + route
	}
	return r.Method
}

func chiRoute(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}
