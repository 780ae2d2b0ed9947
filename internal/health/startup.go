// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ManuGH/relay247/internal/config"
	"github.com/ManuGH/relay247/internal/log"
	"github.com/ManuGH/relay247/internal/validate"
)

// preflight is one startup step. Advisory steps only warn.
type preflight struct {
	name     string
	advisory bool
	run      func(cfg config.AppConfig) (detail string, err error)
}

var preflights = []preflight{
	{name: "api listen address", run: func(cfg config.AppConfig) (string, error) {
		if cfg.API.Listen == "" {
			return "disabled", nil
		}
		v := validate.New()
		v.ListenAddr("api.listen", cfg.API.Listen)
		return cfg.API.Listen, v.Err()
	}},
	{name: "ffmpeg binary", run: func(cfg config.AppConfig) (string, error) {
		bin := strings.TrimSpace(cfg.FFmpeg.Bin)
		if bin == "" {
			bin = "ffmpeg"
		}
		return lookBinary(bin)
	}},
	{name: "streamlink binary", run: func(cfg config.AppConfig) (string, error) {
		if cfg.Locator.Backend != "streamlink" {
			return "not used", nil
		}
		return lookBinary(cfg.Locator.StreamlinkBin)
	}},
	// The controller refuses to start without a standby asset anyway.
	{name: "standby asset", advisory: true, run: func(cfg config.AppConfig) (string, error) {
		if cfg.Relay.StandbyAsset == "" {
			return "not configured", nil
		}
		return cfg.Relay.StandbyAsset, readable(cfg.Relay.StandbyAsset)
	}},
	{name: "store directory", run: func(cfg config.AppConfig) (string, error) {
		switch cfg.Store.Backend {
		case "redis":
			return cfg.Store.RedisAddr, nil
		case "memory":
			return "", errNotPersistent
		case "badger":
			return cfg.Store.Path, writableDir(cfg.Store.Path)
		}
		dir := filepath.Dir(cfg.Store.Path)
		return dir, writableDir(dir)
	}},
	{name: "ingest token", run: func(cfg config.AppConfig) (string, error) {
		if cfg.Ingest.TokenFile != "" {
			return cfg.Ingest.TokenFile, readable(cfg.Ingest.TokenFile)
		}
		if cfg.Ingest.Token == "" {
			return "", errNoToken
		}
		return "inline", nil
	}},
}

// Conditions that are worth a warning but not a refusal to start.
var (
	errNoToken       = errors.New("no ingest token configured; provisioning will fail")
	errNotPersistent = errors.New("memory store does not persist ingest registration across restarts")
)

// PerformStartupChecks validates the host environment before the daemon
// wires anything. It stops at the first failing non-advisory step.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponentFromContext(ctx, "startup-check")

	for _, p := range preflights {
		detail, err := p.run(cfg)
		switch {
		case err == nil:
			logger.Info().Str(log.FieldEvent, "startup.check_ok").Str("check", p.name).Str("detail", detail).Msg("startup check passed")
		case p.advisory, errors.Is(err, errNoToken), errors.Is(err, errNotPersistent):
			logger.Warn().Err(err).Str(log.FieldEvent, "startup.check_warn").Str("check", p.name).Msg("startup check degraded")
		default:
			return fmt.Errorf("%s check failed: %w", p.name, err)
		}
	}
	return nil
}

func lookBinary(bin string) (string, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return bin, fmt.Errorf("%s not found: %w", bin, err)
	}
	return path, nil
}

func readable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- operator-configured path
	if err != nil {
		return err
	}
	return f.Close()
}

// writableDir creates dir if needed and proves it accepts new files.
func writableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".write-test-*")
	if err != nil {
		return fmt.Errorf("%s not writable: %w", dir, err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
