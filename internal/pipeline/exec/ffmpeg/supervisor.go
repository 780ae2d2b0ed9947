// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/relay247/internal/log"
	"github.com/ManuGH/relay247/internal/procgroup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var exitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "relay_ffmpeg_exit_total",
	Help: "Total number of publish process exits",
}, []string{"reason"})

// stderrLines is the number of diagnostic lines kept per process.
const stderrLines = 256

// Supervisor owns exactly one publish process. The process is created by
// Spawn and destroyed only by Terminate.
type Supervisor struct {
	cmd     *exec.Cmd
	ring    *LineRing
	mask    *strings.Replacer
	started time.Time
	logger  zerolog.Logger

	done     chan struct{}
	mu       sync.Mutex
	waitErr  error
	exitCode int
	killed   bool
}

// Spawn starts bin with args in its own process group and returns its
// Supervisor. Stderr is captured into a bounded ring for diagnostics.
func Spawn(bin string, args []string, logger zerolog.Logger) (*Supervisor, error) {
	cmd := exec.Command(bin, args...) // #nosec G204 -- args are built from typed profiles, never a shell
	procgroup.Set(cmd)
	ring := NewLineRing(stderrLines)
	cmd.Stderr = ring
	// Bounds the stderr copy if a forked helper keeps the pipe open.
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", bin, err)
	}

	s := &Supervisor{
		cmd:      cmd,
		ring:     ring,
		mask:     sinkMasker(args),
		started:  time.Now(),
		logger:   logger.With().Int(log.FieldPID, cmd.Process.Pid).Logger(),
		done:     make(chan struct{}),
		exitCode: -1,
	}
	go s.wait()
	return s, nil
}

func (s *Supervisor) wait() {
	err := s.cmd.Wait()

	code := -1
	if s.cmd.ProcessState != nil {
		code = s.cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}

	s.mu.Lock()
	s.waitErr = err
	s.exitCode = code
	killed := s.killed
	s.mu.Unlock()

	reason := "clean"
	switch {
	case killed:
		reason = "killed"
	case err != nil:
		reason = "error"
	}
	exitTotal.WithLabelValues(reason).Inc()

	s.logger.Debug().
		Str(log.FieldEvent, "process.exited").
		Str("reason", reason).
		Int(log.FieldExitCode, code).
		Dur("uptime", time.Since(s.started)).
		Msg("publish process exited")
	close(s.done)
}

// IsAlive reports whether the process is still running. It never blocks and
// returns false for a nil Supervisor.
func (s *Supervisor) IsAlive() bool {
	if s == nil || s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Done is closed once the process has exited and been reaped.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// PID returns the OS process id, or 0 for a nil Supervisor.
func (s *Supervisor) PID() int {
	if s == nil || s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// ExitCode returns the exit code once the process has exited, -1 before
// that or when the process was terminated by a signal.
func (s *Supervisor) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

// Err returns the error reported by Wait, if any.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitErr
}

// Diagnostics returns the last n stderr lines with the ingest URL masked.
func (s *Supervisor) Diagnostics(n int) []string {
	if s == nil {
		return nil
	}
	lines := s.ring.LastN(n)
	if s.mask == nil {
		return lines
	}
	for i, line := range lines {
		lines[i] = s.mask.Replace(line)
	}
	return lines
}

// Terminate hard-kills the process group and waits up to timeout for the
// exit to be confirmed. Safe to call concurrently and more than once.
func (s *Supervisor) Terminate(timeout time.Duration) {
	if s == nil || s.cmd == nil {
		return
	}
	select {
	case <-s.done:
		return
	default:
	}

	s.mu.Lock()
	s.killed = true
	s.mu.Unlock()

	if err := procgroup.Kill(s.cmd); err != nil {
		s.logger.Warn().Err(err).Str(log.FieldEvent, "process.kill_failed").Msg("failed to signal publish process group")
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.done:
	case <-timer.C:
		s.logger.Warn().
			Str(log.FieldEvent, "process.kill_timeout").
			Dur("timeout", timeout).
			Msg("publish process exit not confirmed within timeout")
	}
}
