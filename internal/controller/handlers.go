// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package controller

import (
	"errors"
	"strings"
	"time"

	"github.com/ManuGH/relay247/internal/log"
	"github.com/ManuGH/relay247/internal/metrics"
	"github.com/ManuGH/relay247/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "relay247/controller"

// stopping reports whether the run has been asked to end.
func (c *Controller) stopping(r *run) bool {
	return r.ctx.Err() != nil || !c.running.Load()
}

func (c *Controller) handleInitializing(r *run) State {
	ctx, span := telemetry.Tracer(tracerName).Start(r.ctx, "controller.initialize")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrRunID, r.id))

	failed := func(err error) State {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if c.stopping(r) {
			return StateStopping
		}
		return c.fail(r, err)
	}

	if c.deps.Settings == nil {
		return failed(&ConfigurationError{Reason: "load settings", Err: ErrSettingsMissing})
	}
	settings, err := c.deps.Settings.LoadSettings(ctx)
	if err != nil {
		return failed(&ConfigurationError{Reason: "load settings", Err: err})
	}
	if c.deps.Locator == nil {
		return failed(&ConfigurationError{Reason: "locator", Err: errors.New("no locator configured")})
	}
	if len(settings.Candidates) == 0 {
		return failed(&ConfigurationError{Reason: "candidates", Err: ErrNoCandidates})
	}
	if strings.TrimSpace(settings.StandbyAsset) == "" {
		return failed(&ConfigurationError{Reason: "standby asset", Err: ErrNoStandbyAsset})
	}
	if settings.Launcher != nil {
		r.launcher = settings.Launcher
	} else {
		r.launcher = c.deps.Launcher
	}
	if r.launcher == nil {
		return failed(&ConfigurationError{Reason: "launcher", Err: ErrNoLauncher})
	}
	if settings.RescanInterval <= 0 {
		settings.RescanInterval = c.opts.DefaultRescanInterval
	}
	r.settings = settings

	if c.deps.Ingest == nil {
		return failed(&IngestProvisioningError{Step: "endpoint", Err: errors.New("no ingest provider configured")})
	}
	ep, err := c.deps.Ingest.GetOrCreateIngestEndpoint(ctx)
	if err != nil {
		return failed(&IngestProvisioningError{Step: "endpoint", Err: err})
	}
	broadcastID, err := c.deps.Ingest.CreateAndBindBroadcast(ctx, ep.StreamID)
	if err != nil {
		return failed(&IngestProvisioningError{Step: "broadcast", Err: err})
	}
	r.target = IngestTarget{StreamID: ep.StreamID, IngestURL: ep.IngestURL, BroadcastID: broadcastID}
	span.SetAttributes(telemetry.IngestAttributes(ep.StreamID, broadcastID)...)

	r.logger.Info().
		Str(log.FieldEvent, "relay.initialized").
		Int("candidates", len(settings.Candidates)).
		Str(log.FieldStreamID, ep.StreamID).
		Str(log.FieldBroadcastID, broadcastID).
		Dur("rescan_interval", settings.RescanInterval).
		Msg("ingest provisioned")

	if c.stopping(r) {
		return StateStopping
	}
	return StateScanning
}

type scanResult int

const (
	scanMiss scanResult = iota
	scanHit
	scanAborted
)

// scan queries candidates in order and stops at the first live one.
func (c *Controller) scan(r *run) (Candidate, string, scanResult) {
	ctx, span := telemetry.Tracer(tracerName).Start(r.ctx, "controller.scan")
	defer span.End()
	r.lastScan = time.Now()

	for _, cand := range r.settings.Candidates {
		if c.stopping(r) {
			metrics.RecordScan("aborted")
			return Candidate{}, "", scanAborted
		}
		url, err := c.deps.Locator.Find(ctx, cand.ID)
		if err != nil {
			if c.stopping(r) {
				metrics.RecordScan("aborted")
				return Candidate{}, "", scanAborted
			}
			lerr := &LocatorError{Candidate: cand.ID, Err: err}
			r.logger.Warn().
				Err(lerr).
				Str(log.FieldEvent, "relay.locate_failed").
				Str(log.FieldCandidate, cand.ID).
				Msg("candidate lookup failed, treating as offline")
			continue
		}
		if url != "" {
			span.SetAttributes(attribute.Bool(telemetry.AttrScanHits, true))
			span.SetAttributes(telemetry.CandidateAttributes("", cand.ID, cand.Position)...)
			metrics.RecordScan("hit")
			r.logger.Info().
				Str(log.FieldEvent, "relay.candidate_live").
				Str(log.FieldCandidate, cand.ID).
				Int("position", cand.Position).
				Msg("live candidate found")
			return cand, url, scanHit
		}
	}
	span.SetAttributes(attribute.Bool(telemetry.AttrScanHits, false))
	metrics.RecordScan("miss")
	return Candidate{}, "", scanMiss
}

func (c *Controller) handleScanning(r *run) State {
	cand, url, res := c.scan(r)
	switch res {
	case scanHit:
		r.live, r.liveURL = cand, url
		return StateLive
	case scanMiss:
		r.logger.Info().Str(log.FieldEvent, "relay.no_live_candidate").Msg("no candidate live, switching to standby")
		return StateStandby
	default:
		return StateStopping
	}
}

func (c *Controller) handleLive(r *run) State {
	r.terminate(c.opts.KillTimeout)

	proc, err := r.launcher.Launch(r.ctx, r.liveURL, r.target.IngestURL, false)
	if err != nil {
		if c.stopping(r) {
			return StateStopping
		}
		lf := &LaunchFailure{Source: r.live.ID, Err: err}
		r.logger.Warn().
			Err(lf).
			Str(log.FieldEvent, "relay.live_launch_failed").
			Str(log.FieldCandidate, r.live.ID).
			Dur("retry_in", c.opts.RetryDelay).
			Msg("live publish failed, rescanning after delay")
		if !sleep(r.ctx, c.opts.RetryDelay) {
			return StateStopping
		}
		return StateScanning
	}
	r.setProcess(proc, false)
	r.logger.Info().
		Str(log.FieldEvent, "relay.live").
		Str(log.FieldCandidate, r.live.ID).
		Int(log.FieldPID, proc.PID()).
		Msg("publishing live source")
	if c.stopping(r) {
		return StateStopping
	}
	c.publish(r)

	ticker := time.NewTicker(c.opts.LivePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return StateStopping
		case <-ticker.C:
		}
		if c.stopping(r) {
			return StateStopping
		}
		if !proc.IsAlive() {
			exit := exitError(proc, false, ErrProcessExited)
			r.logger.Warn().
				Err(exit).
				Str(log.FieldEvent, "relay.live_exited").
				Str(log.FieldCandidate, r.live.ID).
				Strs("stderr", exit.Diagnostics).
				Msg("live publish process exited, rescanning")
			r.terminate(c.opts.KillTimeout)
			return StateScanning
		}
		c.publish(r)
	}
}

func (c *Controller) handleStandby(r *run) State {
	r.terminate(c.opts.KillTimeout)

	asset := r.settings.StandbyAsset
	proc, err := r.launcher.Launch(r.ctx, asset, r.target.IngestURL, true)
	if err != nil {
		if c.stopping(r) {
			return StateStopping
		}
		return c.fail(r, &LaunchFailure{Source: asset, Standby: true, Err: err})
	}
	r.setProcess(proc, true)
	r.logger.Info().
		Str(log.FieldEvent, "relay.standby").
		Str(log.FieldSource, asset).
		Int(log.FieldPID, proc.PID()).
		Msg("publishing standby asset")
	if c.stopping(r) {
		return StateStopping
	}
	c.publish(r)

	ticker := time.NewTicker(c.opts.StandbyPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return StateStopping
		case <-ticker.C:
		}
		if c.stopping(r) {
			return StateStopping
		}
		if !proc.IsAlive() {
			exit := exitError(proc, true, ErrStandbyExited)
			r.logger.Error().
				Str(log.FieldEvent, "relay.standby_exited").
				Strs("stderr", exit.Diagnostics).
				Int(log.FieldExitCode, exit.ExitCode).
				Msg("standby publish process exited")
			r.terminate(c.opts.KillTimeout)
			return c.fail(r, exit)
		}

		// Checked once per poll tick, so a rescan may start up to one poll late.
		if time.Since(r.lastScan) >= r.settings.RescanInterval {
			cand, url, res := c.scan(r)
			switch res {
			case scanAborted:
				return StateStopping
			case scanHit:
				// The standby process must be gone before the live launch.
				r.terminate(c.opts.KillTimeout)
				r.live, r.liveURL = cand, url
				return StateLive
			}
		}
		c.publish(r)
	}
}

func (c *Controller) handleStopping(r *run) {
	r.terminate(c.opts.KillTimeout)
}

// exitDetails is implemented by processes that keep exit diagnostics.
type exitDetails interface {
	ExitCode() int
	Diagnostics(n int) []string
	Err() error
}

func exitError(p Process, standby bool, fallback error) *UnexpectedProcessExit {
	e := &UnexpectedProcessExit{Standby: standby, PID: p.PID(), ExitCode: -1, Err: fallback}
	if d, ok := p.(exitDetails); ok {
		e.ExitCode = d.ExitCode()
		e.Diagnostics = d.Diagnostics(20)
		if err := d.Err(); err != nil {
			e.Err = errors.Join(fallback, err)
		}
	}
	return e
}
