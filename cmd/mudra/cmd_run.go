package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/tray"
)

var (
	replayPaths []string
	replayLoop  bool
	noTray      bool
	noServer    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the gesture loop, HTTP API and tray",
	Long: `Captures frames from the configured camera (or replays images with
--replay), classifies the hand, and dispatches bound plugin actions.

The HTTP API, the config file watcher and the system tray run alongside the
frame loop. Ctrl-C stops everything.

Example:
  mudra run --replay fist.png --replay open.png --loop --no-tray`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringArrayVar(&replayPaths, "replay", nil, "replay image files instead of opening the camera (repeatable)")
	runCmd.Flags().BoolVar(&replayLoop, "loop", false, "loop the replayed images")
	runCmd.Flags().BoolVar(&noTray, "no-tray", false, "do not show the system tray icon")
	runCmd.Flags().BoolVar(&noServer, "no-server", false, "do not start the HTTP server")
}

func runRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var camera capture.Camera
	if len(replayPaths) > 0 {
		pb, err := capture.LoadPlayback(replayPaths, replayLoop)
		if err != nil {
			return err
		}
		defer pb.Release()
		camera = pb
		logger.Info("replaying images", zap.Int("frames", len(replayPaths)), zap.Bool("loop", replayLoop))
	}

	a := app.New(app.Options{
		Config: cfg,
		Store:  st,
		Camera: camera,
		Logger: logger.Named("app"),
	})
	defer a.Close()

	if err := a.Restore(); err != nil {
		return err
	}
	if _, err := a.SeedBindings(); err != nil {
		return err
	}
	if err := a.DiscoverPlugins(); err != nil {
		logger.Warn("plugin discovery failed", zap.String("dir", cfg.Plugins.Dir), zap.Error(err))
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	// The frame loop owns the lifetime: when a replay ends, everything stops.
	g.Go(func() error {
		defer cancel()
		return a.Run(gctx)
	})

	serverEnabled := cfg.Server.Enabled && !noServer
	if serverEnabled {
		staticDir := cfg.Server.StaticDir
		if staticDir == "" {
			staticDir = findWebDir()
		}
		srv := server.New(server.Config{
			StaticDir: staticDir,
			Store:     st,
			Plugins:   a.Plugins(),
			Runtime:   a,
			Logger:    logger.Named("http"),
		})
		g.Go(func() error {
			err := srv.ListenAndServe(gctx, cfg.Server.Addr)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		// Hot reload is optional; a missing config directory must not stop the loop.
		if err := config.Watch(gctx, configPath, logger.Named("config"), a.ApplyConfig); err != nil {
			logger.Warn("config hot reload disabled", zap.String("path", configPath), zap.Error(err))
		}
		return nil
	})

	if cfg.Tray.Enabled && !noTray {
		t := newTray(a, serverEnabled)
		g.Go(func() error {
			followTriggers(gctx, a, t)
			return nil
		})
		// systray needs the main goroutine on macOS.
		t.Run(gctx)
		cancel()
	}

	return g.Wait()
}

func newTray(a *app.App, serverEnabled bool) *tray.Tray {
	t := tray.New(a.IsEnabled())
	t.OnToggle(a.SetEnabled)
	t.OnCalibrate(func() {
		if _, err := a.CalibrateCenter(); err != nil {
			logger.Warn("tray calibration failed", zap.Error(err))
		}
	})
	t.OnSettings(func() {
		if serverEnabled {
			logger.Info("preview available", zap.String("url", "http://"+cfg.Server.Addr+"/"))
		}
	})
	return t
}

// followTriggers keeps the tray's last label and toggle in step with the
// runtime.
func followTriggers(ctx context.Context, a *app.App, t *tray.Tray) {
	events, unsubscribe := a.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if ev.Triggered {
				t.SetLastLabel(ev.Label.String())
			}
			if enabled := a.IsEnabled(); enabled != t.IsEnabled() {
				t.SetEnabled(enabled)
			}
		}
	}
}
