// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"sync"
)

// Memory keeps the registration in process memory only.
type Memory struct {
	mu  sync.Mutex
	reg *Registration
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(context.Context) (Registration, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reg == nil {
		return Registration{}, false, nil
	}
	return *m.reg, true, nil
}

func (m *Memory) Save(_ context.Context, reg Registration) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reg = &reg
	return nil
}

func (m *Memory) Close() error { return nil }
