// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	xglog "github.com/ManuGH/relay247/internal/log"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Controller is the subset of the relay controller the app drives.
type Controller interface {
	Start() bool
	Stop() bool
	Running() bool
}

// ConfigWatcher reports config file changes until ctx is done.
type ConfigWatcher interface {
	Run(ctx context.Context, onChange func()) error
}

// AppOptions tunes the daemon behaviors layered over the manager.
type AppOptions struct {
	// Autostart starts the relay once the API is serving.
	Autostart bool
	// RestartOnConfigChange restarts a running relay after the config file
	// changes so the next run picks up new settings.
	RestartOnConfigChange bool
	// Watcher is optional; nil disables file watching.
	Watcher ConfigWatcher
	// ReloadSignals restart a running relay. Defaults to SIGHUP.
	ReloadSignals []os.Signal
}

// App ties the API manager, the relay controller and reload triggers into
// one process lifetime.
type App struct {
	logger  zerolog.Logger
	manager Manager
	ctrl    Controller
	opts    AppOptions
}

// NewApp validates the collaborators.
func NewApp(logger zerolog.Logger, manager Manager, ctrl Controller, opts AppOptions) (*App, error) {
	if manager == nil {
		return nil, ErrMissingManager
	}
	if ctrl == nil {
		return nil, ErrMissingController
	}
	if opts.ReloadSignals == nil {
		opts.ReloadSignals = []os.Signal{syscall.SIGHUP}
	}
	return &App{logger: logger, manager: manager, ctrl: ctrl, opts: opts}, nil
}

// Run serves until ctx is cancelled or the API server fails. The relay is
// stopped by the controller shutdown hook registered at bootstrap.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.manager.Start(gctx)
	})

	if a.opts.Watcher != nil {
		g.Go(func() error {
			err := a.opts.Watcher.Run(gctx, a.onConfigChange)
			if err != nil && !errors.Is(err, context.Canceled) {
				// Losing hot reload is not fatal for the relay.
				a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watch.failed").Msg("config watcher stopped")
			}
			return nil
		})
	}

	if len(a.opts.ReloadSignals) > 0 {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, a.opts.ReloadSignals...)
		g.Go(func() error {
			defer signal.Stop(sigCh)
			for {
				select {
				case <-gctx.Done():
					return nil
				case sig := <-sigCh:
					a.restart("signal:" + sig.String())
				}
			}
		})
	}

	if a.opts.Autostart {
		if a.ctrl.Start() {
			a.logger.Info().Str(xglog.FieldEvent, "relay.autostart").Msg("relay started")
		}
	}

	return g.Wait()
}

func (a *App) onConfigChange() {
	if !a.opts.RestartOnConfigChange {
		a.logger.Info().Str(xglog.FieldEvent, "config.changed").Msg("config changed; applies on next start")
		return
	}
	a.restart("config")
}

// restart only acts on a running relay; a stopped relay stays stopped.
func (a *App) restart(reason string) {
	if !a.ctrl.Running() {
		a.logger.Debug().Str("reason", reason).Msg("relay not running; restart skipped")
		return
	}
	a.logger.Info().Str(xglog.FieldEvent, "relay.restart").Str("reason", reason).Msg("restarting relay")
	a.ctrl.Stop()
	a.ctrl.Start()
}
