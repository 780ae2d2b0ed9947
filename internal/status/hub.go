// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package status fans controller status snapshots out to any number of
// readers. Publishing never blocks: a subscriber that falls behind loses
// its oldest pending snapshots, never the newest one.
package status

import (
	"sync"

	"github.com/ManuGH/relay247/internal/metrics"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 16

// Hub stores the latest value and broadcasts every published value.
type Hub[T any] struct {
	mu     sync.RWMutex
	latest T
	has    bool
	subs   map[*Subscription[T]]struct{}
	buffer int
}

// NewHub creates a hub. buffer <= 0 uses DefaultBuffer.
func NewHub[T any](buffer int) *Hub[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub[T]{
		subs:   make(map[*Subscription[T]]struct{}),
		buffer: buffer,
	}
}

// Publish records v as the latest value and offers it to every subscriber.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = v
	h.has = true
	for s := range h.subs {
		s.offer(v)
	}
}

// Latest returns the most recently published value.
func (h *Hub[T]) Latest() (T, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.has
}

// Subscribe registers a reader. If a value was already published the
// subscription starts with it.
func (h *Hub[T]) Subscribe() *Subscription[T] {
	s := &Subscription[T]{hub: h, ch: make(chan T, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[s] = struct{}{}
	if h.has {
		s.ch <- h.latest
	}
	return s
}

// Subscribers returns the number of open subscriptions.
func (h *Hub[T]) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Subscription is one reader of a Hub.
type Subscription[T any] struct {
	hub  *Hub[T]
	ch   chan T
	once sync.Once
}

// C returns the delivery channel. It is closed by Close.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		close(s.ch)
		s.hub.mu.Unlock()
	})
}

// offer is called with the hub lock held, so no other sender races it.
func (s *Subscription[T]) offer(v T) {
	select {
	case s.ch <- v:
		return
	default:
	}
	select {
	case <-s.ch:
		metrics.IncStatusDrop()
	default:
	}
	select {
	case s.ch <- v:
	default:
	}
}
