// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the relay.
const (
	// Controller attributes
	AttrRunID    = "relay.run_id"
	AttrStandby  = "relay.standby"
	AttrScanHits = "relay.scan.hit"

	// Locator attributes
	AttrCandidate    = "locator.candidate"
	AttrCandidatePos = "locator.position"
	AttrBackend      = "locator.backend"

	// Publish attributes
	AttrProfile = "publish.profile"
	AttrPID     = "publish.pid"

	// Ingest attributes
	AttrStreamID    = "ingest.stream_id"
	AttrBroadcastID = "ingest.broadcast_id"
	AttrReused      = "ingest.reused"
)

// CandidateAttributes describes one locator lookup.
func CandidateAttributes(backend, id string, position int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrCandidate, id),
		attribute.Int(AttrCandidatePos, position),
	}
	if backend != "" {
		attrs = append(attrs, attribute.String(AttrBackend, backend))
	}
	return attrs
}

// IngestAttributes describes a resolved ingest registration. Empty values
// are left out.
func IngestAttributes(streamID, broadcastID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if streamID != "" {
		attrs = append(attrs, attribute.String(AttrStreamID, streamID))
	}
	if broadcastID != "" {
		attrs = append(attrs, attribute.String(AttrBroadcastID, broadcastID))
	}
	return attrs
}
