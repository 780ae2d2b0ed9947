// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the relay control plane: status, start and stop, a
// websocket status stream, health probes and Prometheus metrics.
package api

import (
	"net/http"
	"time"

	"github.com/ManuGH/relay247/internal/api/middleware"
	"github.com/ManuGH/relay247/internal/controller"
	"github.com/ManuGH/relay247/internal/health"
	"github.com/ManuGH/relay247/internal/status"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Controller is the subset of *controller.Controller the API drives.
type Controller interface {
	Start() bool
	Stop() bool
	State() controller.State
	Running() bool
	LastError() error
}

// Config tunes the handler.
type Config struct {
	// Token enables bearer authentication on /api/v1 when non-empty.
	Token      string
	RateLimit  int
	RateWindow time.Duration
	// PingInterval is the websocket keepalive period.
	PingInterval time.Duration
	Tracing      bool
}

// Server holds the handler dependencies.
type Server struct {
	cfg      Config
	ctrl     Controller
	hub      *status.Hub[controller.Status]
	health   *health.Manager
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// New builds a Server. health may be nil, in which case the probes report
// healthy with no checks.
func New(cfg Config, ctrl Controller, hub *status.Hub[controller.Status], hm *health.Manager, logger zerolog.Logger) *Server {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if hm == nil {
		hm = health.NewManager("")
	}
	return &Server{
		cfg:    cfg,
		ctrl:   ctrl,
		hub:    hub,
		health: hm,
		logger: logger.With().Str("component", "api").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	stack := middleware.StackConfig{
		EnableMetrics: true,
		EnableLogging: true,
	}
	if s.cfg.Tracing {
		stack.TracingService = "relay247/api"
	}
	r := middleware.NewRouter(stack)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/status", s.handleStatus)
		r.Get("/status/stream", s.handleStatusStream)
		r.Group(func(r chi.Router) {
			r.Use(middleware.ControlRateLimit(s.cfg.RateLimit, s.cfg.RateWindow))
			r.Post("/start", s.handleStart)
			r.Post("/stop", s.handleStop)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}
