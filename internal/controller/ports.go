// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package controller

import (
	"context"
	"time"
)

// Process is one running publish process.
type Process interface {
	IsAlive() bool
	// Terminate kills the process and waits up to timeout. Idempotent.
	Terminate(timeout time.Duration)
	PID() int
}

// Launcher starts a publish process pushing source to ingestURL. For
// standby the source is looped.
type Launcher interface {
	Launch(ctx context.Context, source, ingestURL string, standby bool) (Process, error)
}

// Locator resolves a candidate identifier to a live source URL. An empty
// URL with a nil error means the candidate is offline.
type Locator interface {
	Find(ctx context.Context, id string) (string, error)
}

// Endpoint is a reusable remote ingest registration.
type Endpoint struct {
	StreamID  string
	IngestURL string
}

// IngestProvider provisions the remote side of the relay.
type IngestProvider interface {
	// GetOrCreateIngestEndpoint is idempotent across runs.
	GetOrCreateIngestEndpoint(ctx context.Context) (Endpoint, error)
	// CreateAndBindBroadcast returns the new broadcast id.
	CreateAndBindBroadcast(ctx context.Context, streamID string) (string, error)
}

// Candidate is one identifier and its fixed scan position.
type Candidate struct {
	ID       string
	Position int
}

// Settings is read once per run during Initializing.
type Settings struct {
	Candidates     []Candidate
	StandbyAsset   string
	RescanInterval time.Duration
	// Launcher overrides Deps.Launcher for this run, so encoder profiles
	// follow the configuration current at Start.
	Launcher Launcher
}

// CandidatesFromIDs assigns positions in order.
func CandidatesFromIDs(ids []string) []Candidate {
	out := make([]Candidate, len(ids))
	for i, id := range ids {
		out[i] = Candidate{ID: id, Position: i}
	}
	return out
}

// SettingsSource supplies Settings.
type SettingsSource interface {
	LoadSettings(ctx context.Context) (Settings, error)
}

// SettingsFunc adapts a function to SettingsSource.
type SettingsFunc func(ctx context.Context) (Settings, error)

func (f SettingsFunc) LoadSettings(ctx context.Context) (Settings, error) { return f(ctx) }

// Status is the snapshot published after every transition and poll tick.
type Status struct {
	State       State     `json:"state"`
	Source      string    `json:"source,omitempty"`
	Candidate   string    `json:"candidate,omitempty"`
	PID         int       `json:"pid"`
	BroadcastID string    `json:"broadcast_id,omitempty"`
	StreamID    string    `json:"stream_id,omitempty"`
	RunID       string    `json:"run_id,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StatusSink receives status snapshots. Publish must not block.
type StatusSink interface {
	Publish(Status)
}
