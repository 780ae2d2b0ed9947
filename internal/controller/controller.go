// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package controller runs the relay state machine: it provisions the
// remote ingest, scans candidates, publishes the first live one and falls
// back to a looped standby asset, with exactly one publish process at a time.
package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/relay247/internal/log"
	"github.com/ManuGH/relay247/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options holds the loop timings. Zero values take the defaults.
type Options struct {
	LivePollInterval      time.Duration
	StandbyPollInterval   time.Duration
	RetryDelay            time.Duration
	StopTimeout           time.Duration
	KillTimeout           time.Duration
	DefaultRescanInterval time.Duration
}

// DefaultOptions returns the production timings.
func DefaultOptions() Options {
	return Options{
		LivePollInterval:      2 * time.Second,
		StandbyPollInterval:   1 * time.Second,
		RetryDelay:            5 * time.Second,
		StopTimeout:           10 * time.Second,
		KillTimeout:           5 * time.Second,
		DefaultRescanInterval: 60 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LivePollInterval <= 0 {
		o.LivePollInterval = d.LivePollInterval
	}
	if o.StandbyPollInterval <= 0 {
		o.StandbyPollInterval = d.StandbyPollInterval
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = d.RetryDelay
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = d.StopTimeout
	}
	if o.KillTimeout <= 0 {
		o.KillTimeout = d.KillTimeout
	}
	if o.DefaultRescanInterval <= 0 {
		o.DefaultRescanInterval = d.DefaultRescanInterval
	}
	return o
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Logger   zerolog.Logger
	Locator  Locator
	Ingest   IngestProvider
	Settings SettingsSource
	Status   StatusSink
	// Launcher is used when Settings.Launcher is nil.
	Launcher Launcher
}

// Controller owns the relay lifecycle. Start and Stop are safe for
// concurrent use; everything else about a run is touched only by its
// worker goroutine.
type Controller struct {
	deps   Deps
	opts   Options
	logger zerolog.Logger

	lifecycle sync.Mutex // serializes Start and Stop
	running   atomic.Bool
	state     atomic.Int32
	current   atomic.Pointer[run]

	mu      sync.Mutex // guards lastErr and ordered status publishing
	lastErr error
}

// New creates an idle controller.
func New(deps Deps, opts Options) *Controller {
	return &Controller{
		deps:   deps,
		opts:   opts.withDefaults(),
		logger: deps.Logger.With().Str(log.FieldComponent, "controller").Logger(),
	}
}

// run is the per-Start context. The worker owns every field except proc,
// which Stop may terminate.
type run struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	logger zerolog.Logger

	settings Settings
	launcher Launcher
	target   IngestTarget
	live     Candidate
	liveURL  string
	lastScan time.Time

	procMu      sync.Mutex
	proc        Process
	procStandby bool
}

// IngestTarget is the provisioned remote side for one run.
type IngestTarget struct {
	StreamID    string
	IngestURL   string
	BroadcastID string
}

// State returns the current state without blocking.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Running reports whether a run is active.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// LastError returns the fatal error that ended the latest run, if any.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Start begins a run. It returns false if a run is already active.
func (c *Controller) Start() bool {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	ctx = log.ContextWithRunID(ctx, id)
	r := &run{
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		logger: c.logger.With().Str(log.FieldRunID, id).Logger(),
	}

	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()

	c.running.Store(true)
	c.current.Store(r)
	c.transition(r, c.State(), StateInitializing)

	r.logger.Info().Str(log.FieldEvent, "relay.start").Msg("relay run started")
	go c.loop(r)
	return true
}

// Stop ends the active run. It kills the publish process right away, waits
// up to the stop timeout for the worker and then forces Idle. It returns
// false if nothing was running.
func (c *Controller) Stop() bool {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if !c.running.Load() {
		return false
	}
	c.running.Store(false)

	r := c.current.Load()
	if r == nil {
		return false
	}
	r.logger.Info().Str(log.FieldEvent, "relay.stop_requested").Msg("stopping relay run")
	r.cancel()
	r.terminate(c.opts.KillTimeout)

	timer := time.NewTimer(c.opts.StopTimeout)
	defer timer.Stop()
	select {
	case <-r.done:
	case <-timer.C:
		r.logger.Warn().
			Str(log.FieldEvent, "relay.stop_timeout").
			Dur("timeout", c.opts.StopTimeout).
			Msg("worker did not exit in time, forcing idle")
	}

	c.finish(r)
	return true
}

// loop is the worker goroutine for one run.
func (c *Controller) loop(r *run) {
	defer close(r.done)
	defer r.cancel()

	state := StateInitializing
	for {
		c.publish(r)
		if state == StateStopping {
			c.handleStopping(r)
			break
		}
		next := c.dispatch(r, state)
		c.transition(r, state, next)
		state = next
	}

	outcome := "stopped"
	if c.LastError() != nil {
		outcome = "fatal"
	}
	metrics.RecordRun(outcome)
	r.logger.Info().Str(log.FieldEvent, "relay.exit").Str("outcome", outcome).Msg("relay run finished")
	c.finish(r)
}

func (c *Controller) dispatch(r *run, s State) State {
	switch s {
	case StateInitializing:
		return c.handleInitializing(r)
	case StateScanning:
		return c.handleScanning(r)
	case StateLive:
		return c.handleLive(r)
	case StateStandby:
		return c.handleStandby(r)
	case StateIdle, StateStopping:
		return StateStopping
	default:
		r.logger.Error().Str(log.FieldEvent, "relay.unknown_state").Stringer("state", s).Msg("unknown state")
		return StateStopping
	}
}

// transition applies next and logs real changes. Writes from a run that is
// no longer current are dropped.
func (c *Controller) transition(r *run, from, to State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current.Load() != r {
		return
	}
	c.state.Store(int32(to))
	metrics.SetControllerState(to.String(), StateNames())
	if from == to {
		return
	}
	metrics.RecordTransition(from.String(), to.String())
	r.logger.Info().
		Str(log.FieldEvent, "relay.transition").
		Stringer(log.FieldOldState, from).
		Stringer(log.FieldNewState, to).
		Msg("state transition")
}

// finish forces Idle once per run, from whichever of the worker or Stop
// gets there first.
func (c *Controller) finish(r *run) {
	c.mu.Lock()
	if !c.current.CompareAndSwap(r, nil) {
		c.mu.Unlock()
		return
	}
	from := State(c.state.Swap(int32(StateIdle)))
	if c.deps.Status != nil {
		c.deps.Status.Publish(c.snapshot(r, StateIdle))
	}
	c.running.Store(false)
	c.mu.Unlock()

	metrics.SetControllerState(StateIdle.String(), StateNames())
	if from != StateIdle {
		metrics.RecordTransition(from.String(), StateIdle.String())
		r.logger.Info().
			Str(log.FieldEvent, "relay.transition").
			Stringer(log.FieldOldState, from).
			Stringer(log.FieldNewState, StateIdle).
			Msg("state transition")
	}
}

// publish sends the current snapshot of r to the status sink.
func (c *Controller) publish(r *run) {
	if c.deps.Status == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current.Load() != r {
		return
	}
	c.deps.Status.Publish(c.snapshot(r, c.State()))
}

// snapshot must be called with c.mu held.
func (c *Controller) snapshot(r *run, s State) Status {
	st := Status{
		State:       s,
		RunID:       r.id,
		BroadcastID: r.target.BroadcastID,
		StreamID:    r.target.StreamID,
		UpdatedAt:   time.Now().UTC(),
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	if s == StateIdle {
		return st
	}

	r.procMu.Lock()
	proc, standby := r.proc, r.procStandby
	r.procMu.Unlock()
	if proc != nil && proc.IsAlive() {
		st.PID = proc.PID()
		if standby {
			st.Source = "standby: " + r.settings.StandbyAsset
		} else {
			st.Source = "live: " + r.live.ID
			st.Candidate = r.live.ID
		}
	}
	return st
}

// fail records err as the run's fatal error and returns Stopping. A run
// that is no longer current only logs.
func (c *Controller) fail(r *run, err error) State {
	c.mu.Lock()
	if c.current.Load() == r {
		c.lastErr = err
	}
	c.mu.Unlock()
	r.logger.Error().Err(err).Str(log.FieldEvent, "relay.fatal").Msg("relay run failed")
	return StateStopping
}

func (r *run) setProcess(p Process, standby bool) {
	r.procMu.Lock()
	r.proc = p
	r.procStandby = standby
	r.procMu.Unlock()
}

// terminate kills the active process, if any, and clears it.
func (r *run) terminate(timeout time.Duration) {
	r.procMu.Lock()
	p := r.proc
	r.proc = nil
	r.procMu.Unlock()
	if p == nil {
		return
	}
	r.logger.Info().
		Str(log.FieldEvent, "relay.process_terminate").
		Int(log.FieldPID, p.PID()).
		Msg("terminating publish process")
	p.Terminate(timeout)
}

// sleep waits d or until the run is cancelled. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
