// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextIDs(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		id   string
	}{
		{name: "nil context", ctx: nil, id: "run-123"},
		{name: "background context", ctx: context.Background(), id: "run-456"},
		{name: "empty id", ctx: context.Background(), id: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.id, RunIDFromContext(ContextWithRunID(tt.ctx, tt.id)))
			assert.Equal(t, tt.id, RequestIDFromContext(ContextWithRequestID(tt.ctx, tt.id)))
		})
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := ContextWithRunID(context.Background(), "run-1")
	ctx = ContextWithRequestID(ctx, "req-1")

	l := WithContext(ctx, logger)
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-1", entry[FieldRunID])
	assert.Equal(t, "req-1", entry[FieldRequestID])
}

func TestWithContextWithoutFieldsReturnsSameLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	l := WithContext(context.Background(), logger)
	l.Info().Msg("plain")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, FieldRunID)
	assert.NotContains(t, entry, FieldRequestID)
}

func TestBuildConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := build(Config{Level: "debug", Format: "console", Output: &buf, Service: "svc"})
	l.Info().Str(FieldEvent, "test.event").Msg("console line")

	out := buf.String()
	assert.Contains(t, out, "console line")
	assert.Contains(t, out, "test.event")
}

func TestBuildJSONIncludesServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	l := build(Config{Output: &buf, Service: "svc", Version: "1.2.3"})
	l.Info().Msg("json line")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "svc", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
}
