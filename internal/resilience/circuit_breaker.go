// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resilience guards flaky upstreams with a consecutive-failure
// circuit breaker.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/relay247/internal/metrics"
)

// State is the breaker position.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// ErrCircuitOpen is returned without calling the guarded function.
var ErrCircuitOpen = errors.New("circuit breaker is open")

const (
	defaultThreshold = 3
	defaultCooldown  = 30 * time.Second
)

// CircuitBreaker opens after threshold consecutive failures. Once the
// cooldown has passed it admits exactly one probe; the probe's outcome
// closes or reopens it.
type CircuitBreaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	state    State
	streak   int
	openedAt time.Time
	probe    bool
}

// Option customises a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithClock replaces the time source.
func WithClock(c interface{ Now() time.Time }) Option {
	return func(cb *CircuitBreaker) { cb.now = c.Now }
}

// NewCircuitBreaker returns a closed breaker. Zero or negative arguments
// fall back to 3 failures and a 30s cooldown.
func NewCircuitBreaker(name string, threshold int, cooldown time.Duration, opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
		state:     StateClosed,
	}
	if cb.threshold <= 0 {
		cb.threshold = defaultThreshold
	}
	if cb.cooldown <= 0 {
		cb.cooldown = defaultCooldown
	}
	for _, o := range opts {
		o(cb)
	}
	metrics.SetBreakerState(name, string(StateClosed))
	return cb
}

// Execute is ExecuteContext without a context.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	return cb.ExecuteContext(context.Background(), func(context.Context) error { return fn() })
}

// ExecuteContext runs fn unless the breaker is open. An error that is
// just the caller's own cancellation does not count against the upstream.
func (cb *CircuitBreaker) ExecuteContext(ctx context.Context, fn func(context.Context) error) error {
	if !cb.admit() {
		return ErrCircuitOpen
	}
	err := fn(ctx)
	cb.settle(err, ctx.Err() != nil && errors.Is(err, ctx.Err()))
	return err
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return false
		}
		cb.move(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.probe {
			return false
		}
		cb.probe = true
	}
	return true
}

func (cb *CircuitBreaker) settle(err error, cancelled bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probe = false
	switch {
	case cancelled:
	case err == nil:
		cb.streak = 0
		cb.move(StateClosed)
	default:
		cb.streak++
		if cb.state == StateHalfOpen {
			metrics.RecordBreakerTrip(cb.name, "half_open_failure")
			cb.move(StateOpen)
		} else if cb.state == StateClosed && cb.streak >= cb.threshold {
			metrics.RecordBreakerTrip(cb.name, "threshold_exceeded")
			cb.move(StateOpen)
		}
	}
}

// move must be called with mu held.
func (cb *CircuitBreaker) move(to State) {
	if cb.state == to {
		return
	}
	cb.state = to
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	metrics.SetBreakerState(cb.name, string(to))
}

// State reports the current position.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
