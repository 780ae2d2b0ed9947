// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package controller

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_TextRoundTrip(t *testing.T) {
	for i, name := range StateNames() {
		var s State
		require.NoError(t, s.UnmarshalText([]byte(name)))
		assert.Equal(t, State(i), s)
		assert.Equal(t, name, s.String())
	}

	var s State
	assert.Error(t, s.UnmarshalText([]byte("paused")))
	assert.Equal(t, "state(42)", State(42).String())
}

func TestStatus_JSONUsesStateNames(t *testing.T) {
	b, err := json.Marshal(Status{State: StateStandby, PID: 7})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"state":"standby"`)
	assert.Contains(t, string(b), `"pid":7`)
}
