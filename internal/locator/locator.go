// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package locator resolves candidate identifiers to live source URLs.
// An empty URL with a nil error means the candidate is offline.
package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/relay247/internal/platform/httpx"
	"github.com/ManuGH/relay247/internal/resilience"
	"github.com/rs/zerolog"
)

var (
	// ErrUnresolvable means the backend could not interpret the answer.
	ErrUnresolvable = errors.New("locator answer unresolvable")
	// ErrUnknownBackend is returned by New for unsupported backends.
	ErrUnknownBackend = errors.New("unknown locator backend")
)

// Backend is one way of finding a live source.
type Backend interface {
	Find(ctx context.Context, id string) (string, error)
	Name() string
}

// DefaultHeaders are sent by the streamlink backend unless overridden.
var DefaultHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36",
	"Referer":    "https://live.douyin.com/",
}

// Config selects and tunes a backend.
type Config struct {
	Backend       string // "streamlink" or "http"
	URLTemplate   string
	StreamlinkBin string
	Quality       string
	Headers       map[string]string
	Endpoint      string
	Timeout       time.Duration
	Proxy         string

	Rate             float64
	Burst            int
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// New builds the configured backend wrapped in rate limiting and a
// circuit breaker.
func New(cfg Config, logger zerolog.Logger) (*Guarded, error) {
	var backend Backend
	switch cfg.Backend {
	case "", "streamlink":
		backend = NewStreamlink(StreamlinkConfig{
			Bin:         cfg.StreamlinkBin,
			URLTemplate: cfg.URLTemplate,
			Quality:     cfg.Quality,
			Headers:     cfg.Headers,
			Timeout:     cfg.Timeout,
			Proxy:       cfg.Proxy,
		})
	case "http":
		client, err := httpx.New(httpx.Options{Timeout: cfg.Timeout, Proxy: cfg.Proxy, Tracing: true})
		if err != nil {
			return nil, fmt.Errorf("locator http client: %w", err)
		}
		backend = NewHTTPResolver(cfg.Endpoint, client, cfg.Headers)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	var breaker *resilience.CircuitBreaker
	if cfg.BreakerThreshold > 0 {
		breaker = resilience.NewCircuitBreaker("locator", cfg.BreakerThreshold, cfg.BreakerCooldown)
	}
	return NewGuarded(backend, GuardOptions{
		Rate:    cfg.Rate,
		Burst:   cfg.Burst,
		Breaker: breaker,
	}, logger), nil
}
