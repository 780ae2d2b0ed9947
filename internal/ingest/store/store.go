// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store persists the remote ingest registration so the same stream
// key survives daemon restarts.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("store: unknown backend")
	// ErrInvalidRegistration is returned when a registration lacks a field.
	ErrInvalidRegistration = errors.New("store: invalid registration")
)

// Registration is the persisted ingest endpoint.
type Registration struct {
	StreamID string `json:"stream_id"`
	RTMPURL  string `json:"rtmp_url"`
}

// Validate reports whether both fields are present.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.StreamID) == "" {
		return fmt.Errorf("%w: stream_id is empty", ErrInvalidRegistration)
	}
	if strings.TrimSpace(r.RTMPURL) == "" {
		return fmt.Errorf("%w: rtmp_url is empty", ErrInvalidRegistration)
	}
	return nil
}

// Store loads and saves a single Registration.
// Load returns ok=false when nothing has been saved yet.
type Store interface {
	Load(ctx context.Context) (Registration, bool, error)
	Save(ctx context.Context, reg Registration) error
	Close() error
}

func encode(reg Registration) ([]byte, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(reg, "", "  ")
}

// decode treats an incomplete document as absent so a fresh endpoint gets created.
func decode(data []byte) (Registration, bool, error) {
	var reg Registration
	if err := json.Unmarshal(data, &reg); err != nil {
		return Registration{}, false, fmt.Errorf("store: decode registration: %w", err)
	}
	if reg.Validate() != nil {
		return Registration{}, false, nil
	}
	return reg, true, nil
}
