// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSupervisor_NilIsNotAlive(t *testing.T) {
	var s *Supervisor
	assert.False(t, s.IsAlive())
	assert.Equal(t, 0, s.PID())
	assert.Nil(t, s.Diagnostics(5))
	s.Terminate(time.Millisecond) // must not panic
}

func TestSupervisor_TerminateKillsProcess(t *testing.T) {
	requireShell(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, err := Spawn("sh", []string{"-c", "echo booting >&2; sleep 30 & sleep 30"}, zerolog.Nop())
	require.NoError(t, err)
	require.True(t, s.IsAlive())
	require.NotZero(t, s.PID())

	start := time.Now()
	s.Terminate(2 * time.Second)
	assert.Less(t, time.Since(start), 2*time.Second, "hard kill should not wait for the timeout")
	assert.False(t, s.IsAlive())

	select {
	case <-s.Done():
	default:
		t.Fatal("done channel should be closed after terminate")
	}

	// Second call is a no-op.
	s.Terminate(time.Second)
}

func TestSupervisor_CapturesDiagnosticsOnExit(t *testing.T) {
	requireShell(t)

	s, err := Spawn("sh", []string{"-c", "echo 'Connection refused' >&2; exit 3"}, zerolog.Nop())
	require.NoError(t, err)

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}

	assert.False(t, s.IsAlive())
	assert.Equal(t, 3, s.ExitCode())
	assert.Error(t, s.Err())
	assert.Equal(t, []string{"Connection refused"}, s.Diagnostics(20))
}

func TestSupervisor_DiagnosticsMaskIngestURL(t *testing.T) {
	requireShell(t)

	script := `echo "Error opening output $0: I/O error" >&2; echo "handshake failed for /live2/secret-key" >&2; exit 1`
	s, err := Spawn("sh", []string{"-c", script, testSink}, zerolog.Nop())
	require.NoError(t, err)

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}

	assert.Equal(t, []string{
		"Error opening output rtmp://a.rtmp.example.com/[redacted]: I/O error",
		"handshake failed for /[redacted]",
	}, s.Diagnostics(20))
}

func TestSpawn_MissingBinary(t *testing.T) {
	_, err := Spawn("/nonexistent/ffmpeg-binary", nil, zerolog.Nop())
	require.Error(t, err)
}
