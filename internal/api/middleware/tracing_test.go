// SPDX-License-Identifier: MIT

package middleware

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ManuGH/relay247/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

func noopProvider(t *testing.T) {
	t.Helper()
	_, err := telemetry.NewProvider(context.Background(), telemetry.Config{
		Enabled:     false,
		ServiceName: "test",
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
}

func TestTracing_Success(t *testing.T) {
	noopProvider(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// noop spans are not valid, but are present
		if span := trace.SpanFromContext(r.Context()); span == nil {
			t.Error("Expected span in context")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	Tracing("test-tracer")(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got %s", rec.Body.String())
	}
}

func TestTracing_Error(t *testing.T) {
	noopProvider(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/start", nil)
	rec := httptest.NewRecorder()
	Tracing("test-tracer")(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rec.Code)
	}
}

type testResponseWriter struct {
	*httptest.ResponseRecorder
}

func (t testResponseWriter) Flush() {}

func (t testResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return nil, nil, errors.New("not implemented")
}

func TestStack_PreservesResponseWriterInterfaces(t *testing.T) {
	noopProvider(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if _, ok := w.(http.Flusher); !ok {
			t.Error("expected ResponseWriter to implement http.Flusher")
		}
		if _, ok := w.(http.Hijacker); !ok {
			t.Error("expected ResponseWriter to implement http.Hijacker")
		}
		w.WriteHeader(http.StatusOK)
	})

	r := NewRouter(StackConfig{EnableMetrics: true, TracingService: "test", EnableLogging: true})
	r.Get("/api/v1/status/stream", handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status/stream", nil)
	rec := testResponseWriter{ResponseRecorder: httptest.NewRecorder()}
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestRecoverer_ReturnsJSON500(t *testing.T) {
	r := NewRouter(StackConfig{})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Expected JSON content type, got %q", rec.Header().Get("Content-Type"))
	}
}

func TestRequestID_PropagatesOrGenerates(t *testing.T) {
	r := NewRouter(StackConfig{})
	r.Get("/x", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Header().Get(HeaderRequestID) == "" {
		t.Error("expected generated request id")
	}
}

func TestTracing_SpanNamedByRoute(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		noopProvider(t)
	})

	for _, cfg := range []StackConfig{
		{TracingService: "relay247/api"},
		{TracingService: "relay247/api", EnableMetrics: true, EnableLogging: true},
	} {
		exp.Reset()
		r := NewRouter(cfg)
		r.Get("/api/v1/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/items/42", nil))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere/42", nil))

		spans := exp.GetSpans()
		require.Len(t, spans, 2)

		routed := spans[0]
		assert.Equal(t, "GET /api/v1/items/{id}", routed.Name)
		assert.Equal(t, trace.SpanKindServer, routed.SpanKind)
		assert.Equal(t, codes.Error, routed.Status.Code)
		assert.Contains(t, routed.Attributes, semconv.HTTPRouteKey.String("/api/v1/items/{id}"))

		assert.Equal(t, "GET", spans[1].Name, "unrouted paths stay out of span names")
	}
}
