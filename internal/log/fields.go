// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRunID       = "run_id"
	FieldRequestID   = "request_id"
	FieldCandidate   = "candidate"
	FieldStreamID    = "stream_id"
	FieldBroadcastID = "broadcast_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"
	FieldProfile   = "profile"
	FieldExitCode  = "exit_code"

	// Media / stream fields
	FieldCodec   = "codec"
	FieldSource  = "source"
	FieldStandby = "standby"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath     = "path"
	FieldEndpoint = "endpoint"
)
