// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/relay247/internal/log"
)

// ShutdownHook releases a resource during graceful shutdown.
type ShutdownHook func(ctx context.Context) error

// Manager owns the control API listener and the ordered teardown of
// everything Bootstrap wired. Hooks run in reverse registration order.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	RegisterShutdownHook(name string, hook ShutdownHook)
}

type phase int

const (
	phaseNew phase = iota
	phaseServing
	phaseDraining
)

// serveFailureGrace bounds teardown when the listener dies on its own.
const serveFailureGrace = 30 * time.Second

type manager struct {
	cfg     ServerConfig
	handler http.Handler
	logger  zerolog.Logger

	mu    sync.Mutex
	phase phase
	srv   *http.Server
	hooks []namedHook
}

type namedHook struct {
	name string
	fn   ShutdownHook
}

// NewManager validates deps and returns an idle Manager.
func NewManager(cfg ServerConfig, deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	return &manager{
		cfg:     cfg,
		handler: deps.APIHandler,
		logger:  deps.Logger.With().Str(log.FieldComponent, "manager").Logger(),
	}, nil
}

// Start binds the listener, then blocks until ctx ends or serving fails.
// Either way Shutdown runs before Start returns.
func (m *manager) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.New("start context is nil")
	}

	m.mu.Lock()
	if m.phase != phaseNew {
		m.mu.Unlock()
		return errors.New("manager already started")
	}
	m.phase = phaseServing
	m.srv = m.newServer()
	srv := m.srv
	m.mu.Unlock()

	// Bind synchronously so a port conflict fails Start itself.
	ln, err := net.Listen("tcp", m.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", m.cfg.ListenAddr, err)
	}
	m.logger.Info().
		Str(log.FieldEvent, "api.listening").
		Str("addr", ln.Addr().String()).
		Dur("shutdown_timeout", m.cfg.ShutdownTimeout).
		Msg("control API listening")

	served := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			served <- err
		}
		close(served)
	}()

	select {
	case <-ctx.Done():
		m.logger.Info().Str(log.FieldEvent, "manager.stop_requested").Msg("stopping daemon")
		return m.Shutdown(context.WithoutCancel(ctx))
	case err, ok := <-served:
		if !ok {
			// Serve returned ErrServerClosed: someone else called Shutdown.
			return nil
		}
		m.logger.Error().Err(err).Str(log.FieldEvent, "api.server.failed").Msg("control API failed")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serveFailureGrace)
		defer cancel()
		serveErr := fmt.Errorf("API server: %w", err)
		if shutErr := m.Shutdown(sctx); shutErr != nil {
			return errors.Join(serveErr, shutErr)
		}
		return serveErr
	}
}

func (m *manager) newServer() *http.Server {
	return &http.Server{
		Addr:              m.cfg.ListenAddr,
		Handler:           m.handler,
		ReadTimeout:       m.cfg.ReadTimeout,
		ReadHeaderTimeout: m.cfg.ReadTimeout / 2,
		WriteTimeout:      m.cfg.WriteTimeout,
		IdleTimeout:       m.cfg.IdleTimeout,
		MaxHeaderBytes:    m.cfg.MaxHeaderBytes,
	}
}

// Shutdown drains the listener and runs the hooks newest first. It is
// idempotent once draining has begun.
func (m *manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return errors.New("shutdown context is nil")
	}

	m.mu.Lock()
	switch m.phase {
	case phaseNew:
		m.mu.Unlock()
		return ErrManagerNotStarted
	case phaseDraining:
		m.mu.Unlock()
		return nil
	}
	m.phase = phaseDraining
	srv := m.srv
	hooks := append([]namedHook(nil), m.hooks...)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			// Graceful drain overran; cut the remaining connections.
			_ = srv.Close()
			errs = append(errs, fmt.Errorf("API server shutdown: %w", err))
		}
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		began := time.Now()
		err := h.fn(ctx)
		ev := m.logger.Debug()
		if err != nil {
			ev = m.logger.Error().Err(err)
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
		}
		ev.Str(log.FieldEvent, "manager.hook").
			Str("hook", h.name).
			Dur("took", time.Since(began)).
			Msg("shutdown hook finished")
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	m.logger.Info().Str(log.FieldEvent, "manager.stopped").Msg("daemon stopped cleanly")
	return nil
}

func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	m.hooks = append(m.hooks, namedHook{name: name, fn: hook})
	m.mu.Unlock()
}
