// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ingest provisions the remote ingest: a reusable stream key that
// is persisted across restarts, and a fresh broadcast bound to it per run.
package ingest

import (
	"context"
	"sync"

	"github.com/ManuGH/relay247/internal/ingest/store"
	"github.com/ManuGH/relay247/internal/log"
	"github.com/ManuGH/relay247/internal/metrics"
	"github.com/ManuGH/relay247/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "relay247/ingest"

// Endpoint is the resolved ingest registration.
type Endpoint struct {
	StreamID  string
	IngestURL string
}

// Service combines the YouTube client with a registration store.
type Service struct {
	client *YouTube
	store  store.Store
	logger zerolog.Logger

	mu        sync.Mutex
	broadcast string
}

// NewService wires a client to a store.
func NewService(client *YouTube, st store.Store, logger zerolog.Logger) *Service {
	return &Service{
		client: client,
		store:  st,
		logger: logger.With().Str(log.FieldComponent, "ingest").Logger(),
	}
}

// GetOrCreateIngestEndpoint returns the persisted registration, creating
// and saving a reusable stream when none exists.
func (s *Service) GetOrCreateIngestEndpoint(ctx context.Context) (Endpoint, error) {
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "ingest.endpoint")
	defer span.End()
	logger := log.WithContext(ctx, s.logger)

	reg, ok, err := s.store.Load(ctx)
	if err != nil {
		// A broken store must not mint a second stream key on every run.
		fail(span, err)
		metrics.RecordIngestProvision("endpoint", "error")
		return Endpoint{}, err
	}
	if ok {
		span.SetAttributes(attribute.Bool(telemetry.AttrReused, true))
		span.SetAttributes(telemetry.IngestAttributes(reg.StreamID, "")...)
		metrics.RecordIngestProvision("endpoint", "reused")
		logger.Info().
			Str(log.FieldEvent, "ingest.endpoint_loaded").
			Str(log.FieldStreamID, reg.StreamID).
			Msg("loaded persisted ingest endpoint")
		return Endpoint{StreamID: reg.StreamID, IngestURL: reg.RTMPURL}, nil
	}

	logger.Info().Str(log.FieldEvent, "ingest.endpoint_create").Msg("no persisted ingest endpoint, creating reusable stream")
	stream, err := s.client.CreateStream(ctx)
	if err != nil {
		fail(span, err)
		metrics.RecordIngestProvision("endpoint", "error")
		return Endpoint{}, err
	}
	span.SetAttributes(attribute.Bool(telemetry.AttrReused, false))
	span.SetAttributes(telemetry.IngestAttributes(stream.ID, "")...)

	if err := s.store.Save(ctx, store.Registration{StreamID: stream.ID, RTMPURL: stream.RTMPURL}); err != nil {
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "ingest.endpoint_save_failed").
			Str(log.FieldStreamID, stream.ID).
			Msg("created ingest endpoint but could not persist it")
	}
	metrics.RecordIngestProvision("endpoint", "created")
	logger.Info().
		Str(log.FieldEvent, "ingest.endpoint_created").
		Str(log.FieldStreamID, stream.ID).
		Msg("created reusable ingest endpoint")
	return Endpoint{StreamID: stream.ID, IngestURL: stream.RTMPURL}, nil
}

// CreateAndBindBroadcast creates a broadcast and binds it to streamID.
func (s *Service) CreateAndBindBroadcast(ctx context.Context, streamID string) (string, error) {
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "ingest.broadcast")
	defer span.End()
	logger := log.WithContext(ctx, s.logger)
	s.setBroadcast("")

	id, err := s.client.InsertBroadcast(ctx)
	if err != nil {
		fail(span, err)
		metrics.RecordIngestProvision("broadcast", "error")
		return "", err
	}
	metrics.RecordIngestProvision("broadcast", "created")
	span.SetAttributes(telemetry.IngestAttributes(streamID, id)...)

	if err := s.client.BindBroadcast(ctx, id, streamID); err != nil {
		fail(span, err)
		metrics.RecordIngestProvision("bind", "error")
		return "", err
	}
	metrics.RecordIngestProvision("bind", "ok")
	s.setBroadcast(id)

	logger.Info().
		Str(log.FieldEvent, "ingest.broadcast_bound").
		Str(log.FieldBroadcastID, id).
		Str(log.FieldStreamID, streamID).
		Msg("broadcast created and bound")
	return id, nil
}

// CurrentBroadcast returns the last successfully bound broadcast id.
func (s *Service) CurrentBroadcast() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broadcast
}

func (s *Service) setBroadcast(id string) {
	s.mu.Lock()
	s.broadcast = id
	s.mu.Unlock()
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
