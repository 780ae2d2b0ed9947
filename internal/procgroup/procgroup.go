// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup starts publish processes in their own process group so a
// single signal reaps ffmpeg together with any helpers it forked.
package procgroup

import (
	"os/exec"
)

// Set configures the command to start in a new process group.
// Mandatory for Kill to function as a group reaper.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Kill hard-kills the process group of a started command.
// A nil command, a command that never started, or a group that is already
// gone is not an error.
func Kill(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return kill(cmd)
}
