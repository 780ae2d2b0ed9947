// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ManuGH/relay247/internal/log"
	"github.com/ManuGH/relay247/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var startTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "relay_ffmpeg_start_total",
	Help: "Total number of publish process start attempts by profile and result",
}, []string{"profile", "result"})

var (
	// ErrNoProfileSurvived is returned when every attempted profile died
	// inside the grace period.
	ErrNoProfileSurvived = errors.New("no encoder profile survived the grace period")
	// ErrBinaryNotFound aborts a launch without trying further profiles.
	ErrBinaryNotFound = errors.New("ffmpeg binary not found")
)

const (
	defaultGracePeriod = 5 * time.Second
	defaultKillTimeout = 5 * time.Second
	diagnosticLines    = 20
)

// Options configures a Launcher. It is built once per controller run.
type Options struct {
	BinPath     string
	Encoders    []string           // profile names in preference order
	Profiles    map[string]Profile // per-profile overrides and extra profiles
	Encode      EncodeSpec
	Proxy       string
	GracePeriod time.Duration
	KillTimeout time.Duration
}

// SpawnFunc starts one process. Tests substitute it to observe attempts.
type SpawnFunc func(bin string, args []string, logger zerolog.Logger) (*Supervisor, error)

// Launcher tries encoder profiles in order until one survives the grace period.
type Launcher struct {
	opts   Options
	spawn  SpawnFunc
	logger zerolog.Logger
}

// NewLauncher creates a Launcher with defaults applied to opts.
func NewLauncher(opts Options, logger zerolog.Logger) *Launcher {
	if opts.BinPath == "" {
		opts.BinPath = "ffmpeg"
	}
	if len(opts.Encoders) == 0 {
		opts.Encoders = DefaultEncoders
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = defaultGracePeriod
	}
	if opts.KillTimeout <= 0 {
		opts.KillTimeout = defaultKillTimeout
	}
	return &Launcher{
		opts:   opts,
		spawn:  Spawn,
		logger: logger.With().Str(log.FieldComponent, "launcher").Logger(),
	}
}

// WithSpawn replaces the process spawner.
func (l *Launcher) WithSpawn(fn SpawnFunc) *Launcher {
	l.spawn = fn
	return l
}

// Profiles returns the configured profiles that resolve, in preference
// order. Unknown names are logged and left out.
func (l *Launcher) Profiles() []Profile {
	out := make([]Profile, 0, len(l.opts.Encoders))
	for _, name := range l.opts.Encoders {
		p, ok := ResolveProfile(name, l.opts.Profiles)
		if !ok {
			l.logger.Warn().
				Str(log.FieldEvent, "launch.profile_unknown").
				Str(log.FieldProfile, name).
				Msg("skipping unknown encoder profile")
			continue
		}
		out = append(out, p)
	}
	return out
}

// Launch publishes source to ingestURL. For standby the source is looped and
// passthrough profiles are skipped without a spawn. The first process still
// alive after the grace period is returned.
func (l *Launcher) Launch(ctx context.Context, source, ingestURL string, standby bool) (*Supervisor, error) {
	ctx, span := telemetry.Tracer("relay247/launcher").Start(ctx, "launcher.launch")
	defer span.End()
	span.SetAttributes(attribute.Bool(telemetry.AttrStandby, standby))

	logger := log.WithContext(ctx, l.logger).With().Bool(log.FieldStandby, standby).Logger()
	in := InputSpec{Source: source, Loop: standby, Proxy: l.opts.Proxy}

	for _, p := range l.Profiles() {
		if standby && !p.Reencodes() {
			logger.Debug().Str(log.FieldProfile, p.Name).Msg("passthrough cannot loop, skipping for standby")
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sup, err := l.attempt(ctx, logger, in, ingestURL, p)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if sup != nil {
			span.SetAttributes(attribute.String(telemetry.AttrProfile, p.Name), attribute.Int(telemetry.AttrPID, sup.PID()))
			return sup, nil
		}
	}

	span.SetStatus(codes.Error, ErrNoProfileSurvived.Error())
	return nil, ErrNoProfileSurvived
}

// attempt returns (nil, nil) when the profile died and the next one should run.
func (l *Launcher) attempt(ctx context.Context, logger zerolog.Logger, in InputSpec, ingestURL string, p Profile) (*Supervisor, error) {
	plog := logger.With().Str(log.FieldProfile, p.Name).Str(log.FieldCodec, p.Codec).Logger()

	args, err := BuildArgs(in, ingestURL, p, l.opts.Encode)
	if err != nil {
		return nil, err
	}
	plog.Info().
		Str(log.FieldEvent, "launch.attempt").
		Str("command", l.opts.BinPath+" "+strings.Join(RedactArgs(args), " ")).
		Msg("starting publish process")

	sup, err := l.spawn(l.opts.BinPath, args, plog)
	if err != nil {
		startTotal.WithLabelValues(p.Name, "spawn_error").Inc()
		if errors.Is(err, exec.ErrNotFound) {
			plog.Error().Err(err).Str(log.FieldEvent, "launch.binary_missing").Msg("ffmpeg binary not found")
			return nil, fmt.Errorf("%w: %s", ErrBinaryNotFound, l.opts.BinPath)
		}
		plog.Error().Err(err).Str(log.FieldEvent, "launch.spawn_failed").Msg("failed to spawn publish process")
		return nil, nil
	}

	survived, err := l.awaitGrace(ctx, sup)
	if err != nil {
		sup.Terminate(l.opts.KillTimeout)
		startTotal.WithLabelValues(p.Name, "cancelled").Inc()
		return nil, err
	}
	if survived {
		startTotal.WithLabelValues(p.Name, "ok").Inc()
		plog.Info().
			Str(log.FieldEvent, "launch.survived").
			Int(log.FieldPID, sup.PID()).
			Dur("grace", l.opts.GracePeriod).
			Msg("publish process survived grace period")
		return sup, nil
	}

	startTotal.WithLabelValues(p.Name, "died").Inc()
	plog.Warn().
		Str(log.FieldEvent, "launch.profile_failed").
		Int(log.FieldExitCode, sup.ExitCode()).
		Strs("stderr", sup.Diagnostics(diagnosticLines)).
		Msg("publish process died during grace period, trying next profile")
	return nil, nil
}

func (l *Launcher) awaitGrace(ctx context.Context, sup *Supervisor) (bool, error) {
	timer := time.NewTimer(l.opts.GracePeriod)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-sup.Done():
		return false, nil
	case <-timer.C:
		return sup.IsAlive(), nil
	}
}
