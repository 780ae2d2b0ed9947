// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package procgroup

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestGroupKill(t *testing.T) {
	// The shell forks a background sleeper, so the group has two members.
	cmd := exec.Command("sh", "-c", "sleep 100 & sleep 100")
	Set(cmd)
	require.NoError(t, cmd.Start())

	pid := cmd.Process.Pid
	pgid, err := unix.Getpgid(pid)
	require.NoError(t, err)
	require.Equal(t, pid, pgid, "child leads its own group")

	require.NoError(t, Kill(cmd))

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process group leader did not exit after kill")
	}

	require.Eventually(t, func() bool {
		return unix.Kill(-pgid, 0) == unix.ESRCH
	}, 2*time.Second, 20*time.Millisecond, "process group should be gone")
}

func TestKillAlreadyGone(t *testing.T) {
	cmd := exec.Command("true")
	Set(cmd)
	require.NoError(t, cmd.Start())
	require.NoError(t, cmd.Wait())

	require.NoError(t, Kill(cmd), "should not fail if process is already gone")
}

func TestKillNilCommand(t *testing.T) {
	require.NoError(t, Kill(nil))
	require.NoError(t, Kill(exec.Command("true")), "never started")
}
