// SPDX-License-Identifier: MIT

// Package health serves the liveness and readiness probes of the relay
// daemon. Liveness always answers 200 while the process runs; readiness
// aggregates the registered checkers and answers 503 when one is unhealthy.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/ManuGH/relay247/internal/log"
	"github.com/ManuGH/relay247/internal/persistence/sqlite"
	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity orders statuses so the aggregate is the worst component.
func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// DefaultCheckTimeout bounds a single checker.
const DefaultCheckTimeout = 2 * time.Second

type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Uptime    int64                  `json:"uptime_seconds"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker is one probed component.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager runs the registered checkers. Safe for concurrent use.
type Manager struct {
	version string
	started time.Time
	timeout time.Duration

	mu       sync.RWMutex
	checkers []Checker
}

func NewManager(version string) *Manager {
	return &Manager{
		version: version,
		started: time.Now(),
		timeout: DefaultCheckTimeout,
	}
}

// SetCheckTimeout changes the per-checker deadline. Non-positive values are
// ignored.
func (m *Manager) SetCheckTimeout(d time.Duration) {
	if d > 0 {
		m.mu.Lock()
		m.timeout = d
		m.mu.Unlock()
	}
}

func (m *Manager) RegisterChecker(checker Checker) {
	m.mu.Lock()
	m.checkers = append(m.checkers, checker)
	m.mu.Unlock()
}

// evaluate runs every checker concurrently, each under its own deadline.
// A checker that overruns is reported unhealthy.
func (m *Manager) evaluate(ctx context.Context) (Status, map[string]CheckResult) {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	timeout := m.timeout
	m.mu.RUnlock()

	if len(checkers) == 0 {
		return StatusHealthy, nil
	}

	results := make([]CheckResult, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan CheckResult, 1)
			go func() { done <- c.Check(cctx) }()
			select {
			case res := <-done:
				results[i] = res
			case <-cctx.Done():
				results[i] = CheckResult{Status: StatusUnhealthy, Error: "check timed out"}
			}
			return nil
		})
	}
	_ = g.Wait()

	overall := StatusHealthy
	checks := make(map[string]CheckResult, len(checkers))
	for i, c := range checkers {
		checks[c.Name()] = results[i]
		if results[i].Status.severity() > overall.severity() {
			overall = results[i].Status
		}
	}
	return overall, checks
}

// Health is the liveness view. Checks run only when verbose.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Uptime:    int64(time.Since(m.started).Seconds()),
		Timestamp: time.Now(),
	}
	if verbose {
		resp.Status, resp.Checks = m.evaluate(ctx)
	}
	return resp
}

// Ready is the readiness view. Degraded components keep the daemon ready.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	status, checks := m.evaluate(ctx)
	return ReadinessResponse{
		Ready:     status != StatusUnhealthy,
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

// ServeHealth always answers 200; ?verbose=true includes component checks.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	resp := m.Health(r.Context(), r.URL.Query().Get("verbose") == "true")
	writeProbe(w, r, "health", http.StatusOK, resp)
}

// ServeReady answers 503 while any component is unhealthy.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.Ready(r.Context())
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	writeProbe(w, r, "readiness", code, resp)
}

func writeProbe(w http.ResponseWriter, r *http.Request, probe string, code int, body any) {
	logger := log.WithComponentFromContext(r.Context(), probe)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, probe+".encode_error").Msg("failed to encode probe response")
		return
	}
	logger.Debug().Str(log.FieldEvent, probe+".checked").Int("code", code).Msg("probe served")
}

// FileChecker reports whether a required local file, such as the standby
// asset, can be opened for reading.
type FileChecker struct {
	name string
	path string
}

func NewFileChecker(name, path string) *FileChecker {
	return &FileChecker{name: name, path: path}
}

func (c *FileChecker) Name() string {
	return c.name
}

func (c *FileChecker) Check(context.Context) CheckResult {
	if c.path == "" {
		return CheckResult{Status: StatusDegraded, Message: "not configured"}
	}

	f, err := os.Open(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return CheckResult{Status: StatusUnhealthy, Error: "file not found", Message: c.path}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.path}
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.path}
	}
	if info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected file, got directory", Message: c.path}
	}
	if info.Size() == 0 {
		return CheckResult{Status: StatusDegraded, Message: "file is empty"}
	}
	// One byte proves read permission beyond the open.
	if _, err := f.Read(make([]byte, 1)); err != nil && !errors.Is(err, io.EOF) {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.path}
	}
	return CheckResult{Status: StatusHealthy, Message: c.path}
}

// BinaryChecker checks that an executable resolves on PATH.
type BinaryChecker struct {
	name string
	bin  string
}

// NewBinaryChecker creates a checker for an executable such as ffmpeg.
func NewBinaryChecker(name, bin string) *BinaryChecker {
	return &BinaryChecker{name: name, bin: bin}
}

func (c *BinaryChecker) Name() string {
	return c.name
}

func (c *BinaryChecker) Check(ctx context.Context) CheckResult {
	path, err := exec.LookPath(c.bin)
	if err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Error:   err.Error(),
			Message: c.bin,
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: path,
	}
}

// ControllerProbe is a point-in-time view of the relay controller.
type ControllerProbe struct {
	Running     bool
	State       string
	LastPublish time.Time
	LastError   string
}

// ControllerChecker reports whether the controller is running and still
// publishing status.
type ControllerChecker struct {
	probe      func() ControllerProbe
	staleAfter time.Duration
}

// NewControllerChecker creates a checker. A running controller whose last
// status is older than staleAfter is reported as degraded.
func NewControllerChecker(probe func() ControllerProbe, staleAfter time.Duration) *ControllerChecker {
	return &ControllerChecker{probe: probe, staleAfter: staleAfter}
}

func (c *ControllerChecker) Name() string {
	return "controller"
}

func (c *ControllerChecker) Check(ctx context.Context) CheckResult {
	p := c.probe()

	if !p.Running {
		if p.LastError != "" {
			return CheckResult{
				Status:  StatusUnhealthy,
				Error:   p.LastError,
				Message: "controller stopped after a fatal error",
			}
		}
		return CheckResult{
			Status:  StatusDegraded,
			Message: "controller idle",
		}
	}

	if c.staleAfter > 0 && !p.LastPublish.IsZero() && time.Since(p.LastPublish) > c.staleAfter {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "no status published since " + p.LastPublish.UTC().Format(time.RFC3339),
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: p.State,
	}
}

// SQLiteChecker runs a quick integrity check against a SQLite database.
type SQLiteChecker struct {
	name string
	path string
}

// NewSQLiteChecker creates a checker for the database at path.
func NewSQLiteChecker(name, path string) *SQLiteChecker {
	return &SQLiteChecker{name: name, path: path}
}

func (c *SQLiteChecker) Name() string {
	return c.name
}

func (c *SQLiteChecker) Check(ctx context.Context) CheckResult {
	issues, err := sqlite.VerifyIntegrity(ctx, c.path, sqlite.QuickCheck)
	if err != nil {
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  err.Error(),
		}
	}
	if len(issues) > 0 {
		return CheckResult{
			Status:  StatusUnhealthy,
			Error:   issues[0],
			Message: "integrity check failed",
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "integrity ok",
	}
}
