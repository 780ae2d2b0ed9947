// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package controller

import (
	"errors"
	"fmt"
)

var (
	ErrNoCandidates    = errors.New("no candidates configured")
	ErrNoStandbyAsset  = errors.New("standby asset not configured")
	ErrNoLauncher      = errors.New("no launcher configured")
	ErrProcessExited   = errors.New("publish process exited")
	ErrStandbyExited   = errors.New("standby process exited")
	ErrSettingsMissing = errors.New("settings source not configured")
)

// ConfigurationError is fatal for the run: settings are missing or invalid.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %v", e.Reason, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// IngestProvisioningError is fatal for the run: the remote ingest endpoint
// or broadcast could not be obtained.
type IngestProvisioningError struct {
	Step string // "endpoint" or "broadcast"
	Err  error
}

func (e *IngestProvisioningError) Error() string {
	return fmt.Sprintf("ingest provisioning (%s): %v", e.Step, e.Err)
}

func (e *IngestProvisioningError) Unwrap() error { return e.Err }

// LocatorError is logged and treated as "not live".
type LocatorError struct {
	Candidate string
	Err       error
}

func (e *LocatorError) Error() string {
	return fmt.Sprintf("locate %q: %v", e.Candidate, e.Err)
}

func (e *LocatorError) Unwrap() error { return e.Err }

// LaunchFailure means no encoder profile produced a surviving process.
// Recoverable in Live, fatal in Standby.
type LaunchFailure struct {
	Source  string
	Standby bool
	Err     error
}

func (e *LaunchFailure) Error() string {
	kind := "live"
	if e.Standby {
		kind = "standby"
	}
	return fmt.Sprintf("launch %s publish: %v", kind, e.Err)
}

func (e *LaunchFailure) Unwrap() error { return e.Err }

// UnexpectedProcessExit reports a publish process that died on its own.
type UnexpectedProcessExit struct {
	Standby     bool
	PID         int
	ExitCode    int
	Diagnostics []string
	Err         error
}

func (e *UnexpectedProcessExit) Error() string {
	return fmt.Sprintf("publish process %d exited (code %d): %v", e.PID, e.ExitCode, e.Err)
}

func (e *UnexpectedProcessExit) Unwrap() error { return e.Err }
