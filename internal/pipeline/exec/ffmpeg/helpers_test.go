// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh, unsupported on windows")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found")
	}
}

// fakeFFmpeg writes an executable that stays up when its arguments contain
// survivor and otherwise exits 1 after printing an encoder error.
func fakeFFmpeg(t *testing.T, survivor string) string {
	t.Helper()
	requireShell(t)

	script := `#!/bin/sh
case "$*" in
  *` + survivor + `*) exec sleep 30 ;;
esac
echo "Unknown encoder for: $*" >&2
exit 1
`
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755)) // #nosec G306
	return path
}
