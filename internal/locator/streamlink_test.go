// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package locator

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeStreamlink(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh, unsupported on windows")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found")
	}
	script := `#!/bin/sh
case "$*" in
  *live1*) echo "https://cdn.example/live1.flv?sig=abc" ;;
  *offline*) echo "error: No playable streams found on this URL: $*" >&2; exit 1 ;;
  *slow*) exec sleep 30 ;;
  *garbage*) echo "[cli][info] found plugin" ;;
  *) echo "error: plugin exploded" >&2; exit 1 ;;
esac
`
	path := filepath.Join(t.TempDir(), "streamlink")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755)) // #nosec G306
	return path
}

func TestStreamlink_Args(t *testing.T) {
	s := NewStreamlink(StreamlinkConfig{
		URLTemplate: "https://live.example/{id}",
		Headers:     map[string]string{"Referer": "https://live.example/", "User-Agent": "relay"},
		Proxy:       "socks5://127.0.0.1:1080",
	})
	want := []string{
		"--stream-url",
		"--http-header", "Referer=https://live.example/",
		"--http-header", "User-Agent=relay",
		"--http-proxy", "socks5://127.0.0.1:1080",
		"https://live.example/room%2F1", "best",
	}
	if diff := cmp.Diff(want, s.Args("room/1")); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestStreamlink_DefaultHeaders(t *testing.T) {
	s := NewStreamlink(StreamlinkConfig{})
	args := s.Args("42")
	assert.Contains(t, args, "Referer=https://live.douyin.com/")
	assert.Equal(t, "https://live.douyin.com/42", args[len(args)-2])
}

func TestStreamlink_Find(t *testing.T) {
	bin := fakeStreamlink(t)
	s := NewStreamlink(StreamlinkConfig{Bin: bin, Timeout: 5 * time.Second})
	ctx := context.Background()

	src, err := s.Find(ctx, "live1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/live1.flv?sig=abc", src)

	src, err = s.Find(ctx, "offline")
	require.NoError(t, err)
	assert.Empty(t, src)

	_, err = s.Find(ctx, "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugin exploded")

	_, err = s.Find(ctx, "garbage")
	require.ErrorIs(t, err, ErrUnresolvable)
}

func TestStreamlink_TimeoutKillsProcess(t *testing.T) {
	bin := fakeStreamlink(t)
	s := NewStreamlink(StreamlinkConfig{Bin: bin, Timeout: 200 * time.Millisecond})

	start := time.Now()
	_, err := s.Find(context.Background(), "slow")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestStreamlink_MissingBinary(t *testing.T) {
	s := NewStreamlink(StreamlinkConfig{Bin: filepath.Join(t.TempDir(), "nope")})
	_, err := s.Find(context.Background(), "x")
	require.Error(t, err)
}
