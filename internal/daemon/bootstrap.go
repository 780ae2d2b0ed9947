// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/relay247/internal/api"
	"github.com/ManuGH/relay247/internal/config"
	"github.com/ManuGH/relay247/internal/controller"
	"github.com/ManuGH/relay247/internal/health"
	"github.com/ManuGH/relay247/internal/ingest"
	"github.com/ManuGH/relay247/internal/ingest/store"
	"github.com/ManuGH/relay247/internal/locator"
	xglog "github.com/ManuGH/relay247/internal/log"
	"github.com/ManuGH/relay247/internal/platform/httpx"
	"github.com/ManuGH/relay247/internal/status"
	"github.com/ManuGH/relay247/internal/telemetry"
)

// controllerStaleAfter bounds how long a running controller may go without
// publishing before /readyz reports it degraded. A full scan of many slow
// candidates is the longest silent stretch.
const controllerStaleAfter = 2 * time.Minute

// Bootstrap wires every component from cfg. The loader is re-read at the
// start of each relay run; everything else is fixed for the process.
func Bootstrap(ctx context.Context, cfg config.AppConfig, loader *config.Loader) (*App, error) {
	logger := xglog.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "relay247",
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	st, err := store.Open(ctx, store.Config{
		Backend:       cfg.Store.Backend,
		Path:          cfg.Store.Path,
		Key:           cfg.Store.Key,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
	}, xglog.WithComponent("store"))
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("registration store: %w", err)
	}

	cleanup := func() {
		_ = st.Close()
		_ = tp.Shutdown(ctx)
	}

	apiClient, err := httpx.New(httpx.Options{Timeout: cfg.Ingest.Timeout, Tracing: cfg.Telemetry.Enabled})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("ingest http client: %w", err)
	}
	yt := ingest.NewYouTube(ingest.YouTubeConfig{
		APIBase:     cfg.Ingest.APIBase,
		StreamTitle: cfg.Ingest.StreamTitle,
		Broadcast: ingest.BroadcastSettings{
			Title:       cfg.Ingest.Broadcast.Title,
			Description: cfg.Ingest.Broadcast.Description,
			CategoryID:  cfg.Ingest.Broadcast.CategoryID,
			Privacy:     cfg.Ingest.Broadcast.Privacy,
			AutoStart:   cfg.Ingest.Broadcast.AutoStart,
			AutoStop:    cfg.Ingest.Broadcast.AutoStop,
			MadeForKids: cfg.Ingest.Broadcast.MadeForKids,
		},
	}, apiClient, ingest.NewTokenSource(cfg.Ingest.Token, cfg.Ingest.TokenFile))
	svc := ingest.NewService(yt, st, xglog.WithComponent("ingest"))

	loc, err := locator.New(locator.Config{
		Backend:          cfg.Locator.Backend,
		URLTemplate:      cfg.Locator.URLTemplate,
		StreamlinkBin:    cfg.Locator.StreamlinkBin,
		Quality:          cfg.Locator.Quality,
		Headers:          cfg.Locator.Headers,
		Endpoint:         cfg.Locator.Endpoint,
		Timeout:          cfg.Locator.Timeout,
		Proxy:            cfg.Proxy,
		Rate:             cfg.Locator.Rate,
		Burst:            cfg.Locator.Burst,
		BreakerThreshold: cfg.Locator.BreakerThreshold,
		BreakerCooldown:  cfg.Locator.BreakerCooldown,
	}, xglog.WithComponent("locator"))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("locator: %w", err)
	}

	hub := status.NewHub[controller.Status](0)
	ctrl := controller.New(controller.Deps{
		Logger:   xglog.WithComponent("controller"),
		Locator:  loc,
		Ingest:   ingestAdapter{svc: svc},
		Settings: NewSettingsSource(loader, xglog.WithComponent("ffmpeg")),
		Status:   hub,
	}, controller.DefaultOptions())

	hm := newHealthManager(cfg, ctrl, hub)

	srv := api.New(api.Config{
		Token:      cfg.API.Token,
		RateLimit:  cfg.API.RateLimit,
		RateWindow: cfg.API.RateWindow,
		Tracing:    cfg.Telemetry.Enabled,
	}, ctrl, hub, hm, xglog.WithComponent("api"))

	mgr, err := NewManager(DefaultServerConfig(cfg.API.Listen), Deps{
		Logger:     logger,
		APIHandler: srv.Handler(),
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	// LIFO: the relay stops first, then the store closes, then spans flush.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("store", func(context.Context) error { return st.Close() })
	mgr.RegisterShutdownHook("controller", func(context.Context) error {
		ctrl.Stop()
		return nil
	})

	opts := AppOptions{
		Autostart:             cfg.Autostart,
		RestartOnConfigChange: cfg.RestartOnConfigChange,
	}
	if cfg.ConfigPath != "" {
		opts.Watcher = config.NewWatcher(cfg.ConfigPath, config.DefaultDebounce)
	}

	logger.Info().
		Str(xglog.FieldEvent, "daemon.bootstrap").
		Int("candidates", len(cfg.Relay.Candidates)).
		Str("store", cfg.Store.Backend).
		Str("locator", cfg.Locator.Backend).
		Bool("autostart", cfg.Autostart).
		Msg("daemon wired")

	return NewApp(logger, mgr, ctrl, opts)
}

func newHealthManager(cfg config.AppConfig, ctrl *controller.Controller, hub *status.Hub[controller.Status]) *health.Manager {
	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewBinaryChecker("ffmpeg", cfg.FFmpeg.Bin))
	hm.RegisterChecker(health.NewFileChecker("standby-asset", cfg.Relay.StandbyAsset))
	hm.RegisterChecker(health.NewControllerChecker(controllerProbe(ctrl, hub), controllerStaleAfter))
	if strings.EqualFold(cfg.Store.Backend, store.BackendSQLite) {
		hm.RegisterChecker(health.NewSQLiteChecker("store", cfg.Store.Path))
	}
	return hm
}

func controllerProbe(ctrl *controller.Controller, hub *status.Hub[controller.Status]) func() health.ControllerProbe {
	return func() health.ControllerProbe {
		p := health.ControllerProbe{
			Running: ctrl.Running(),
			State:   ctrl.State().String(),
		}
		if last, ok := hub.Latest(); ok {
			p.LastPublish = last.UpdatedAt
		}
		if err := ctrl.LastError(); err != nil {
			p.LastError = err.Error()
		}
		return p
	}
}
