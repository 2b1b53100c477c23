// Package app runs the frame loop: capture, motion gating, classification,
// hold-to-trigger and action dispatch. It also keeps the state the HTTP
// server and tray read.
package app

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
)

var (
	// ErrAlreadyRunning is returned by Run when the loop is already active.
	ErrAlreadyRunning = errors.New("frame loop already running")
	// ErrNoFrame is returned by Calibrate before any frame has been captured.
	ErrNoFrame = errors.New("no frame captured yet")
)

// maxReadFailures is how many consecutive camera read errors end the loop.
const maxReadFailures = 10

// Options configures an App.
type Options struct {
	Config *config.Config
	// Store is optional; without it bindings come from Config.Actions and
	// nothing is persisted.
	Store *store.Store
	// Camera overrides the device described by Config.Camera.
	Camera capture.Camera
	Logger *zap.Logger
}

// App is the gesture runtime.
type App struct {
	store  *store.Store
	camera capture.Camera
	logger *zap.Logger

	classifier *gesture.Classifier
	stabilizer *gesture.Stabilizer
	gate       *capture.MotionGate
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor

	mu      sync.RWMutex
	cfg     *config.Config
	enabled bool
	cursor  *gesture.CursorMapper
	status  Status

	frameMu   sync.Mutex
	lastFrame gocv.Mat

	preview previewBuffer
	hub     subscribers

	running    atomic.Bool
	cursorBusy atomic.Bool
	dispatchWG sync.WaitGroup
	frameCount uint64
}

// New creates an App. It does not touch the camera until Run.
func New(opts Options) *App {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := logging.OrNop(opts.Logger)

	cam := opts.Camera
	if cam == nil {
		cam = capture.NewCamera(cfg.Camera)
	}

	a := &App{
		store:      opts.Store,
		camera:     cam,
		logger:     logger,
		classifier: gesture.NewClassifier(cfg.Detector, cfg.Policy, cfg.Calibration.Margins),
		stabilizer: gesture.NewStabilizer(cfg.Trigger.Hold, cfg.Trigger.Cooldown),
		gate:       capture.NewMotionGate(cfg.Motion),
		pluginMgr:  plugin.NewManager(cfg.Plugins.Dir, logger.Named("plugin")),
		pluginExec: plugin.NewExecutor(cfg.Plugins.Timeout, logger.Named("plugin")),
		cfg:        cfg,
		enabled:    true,
		lastFrame:  gocv.NewMat(),
	}
	a.cursor = newCursorMapper(cfg)
	a.status = Status{
		Enabled:   true,
		Label:     gesture.LabelNone,
		SkinRange: cfg.Detector.Skin,
	}
	a.hub.init()

	return a
}

func newCursorMapper(cfg *config.Config) *gesture.CursorMapper {
	frame := image.Pt(cfg.Camera.Width, cfg.Camera.Height)
	if frame.X <= 0 || frame.Y <= 0 {
		frame = image.Pt(capture.DefaultWidth, capture.DefaultHeight)
	}
	screen := image.Pt(cfg.Cursor.ScreenWidth, cfg.Cursor.ScreenHeight)
	// Frames are already mirrored by the camera when Camera.Mirror is set.
	return gesture.NewCursorMapper(frame, screen, cfg.Cursor.Window, !cfg.Camera.Mirror)
}

// SetEnabled turns action dispatch on or off. Classification keeps running
// so the preview stays live. The choice is persisted when a store is set.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.status.Enabled = enabled
	a.mu.Unlock()

	if !enabled {
		a.stabilizer.Reset()
	}

	if a.store != nil {
		if err := a.store.Settings().Set(store.SettingEnabled, strconv.FormatBool(enabled)); err != nil {
			a.logger.Warn("persist enabled flag", zap.Error(err))
		}
	}
	a.logger.Info("dispatch toggled", zap.Bool("enabled", enabled))
}

// IsEnabled reports whether triggered labels dispatch actions.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Restore loads the persisted calibration and enabled flag. Missing settings
// keep the configured defaults.
func (a *App) Restore() error {
	if a.store == nil {
		return nil
	}

	var r detector.Range
	err := a.store.Settings().GetJSON(store.SettingSkinRange, &r)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load calibration: %w", err)
	default:
		a.classifier.SetSkinRange(r)
		a.mu.Lock()
		a.status.SkinRange = r
		a.mu.Unlock()
		a.logger.Info("calibration restored", zap.Any("range", r))
	}

	v, err := a.store.Settings().Get(store.SettingEnabled)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load enabled flag: %w", err)
	default:
		enabled, perr := strconv.ParseBool(v)
		if perr == nil {
			a.mu.Lock()
			a.enabled = enabled
			a.status.Enabled = enabled
			a.mu.Unlock()
		}
	}
	return nil
}

// Calibrate samples the most recent raw frame at pt, activates the derived
// skin range and persists it.
func (a *App) Calibrate(pt image.Point) (detector.Range, error) {
	a.frameMu.Lock()
	if a.lastFrame.Empty() {
		a.frameMu.Unlock()
		return detector.Range{}, ErrNoFrame
	}
	frame := a.lastFrame.Clone()
	a.frameMu.Unlock()
	defer frame.Close()

	r, err := a.classifier.Calibrate(frame, pt)
	if err != nil {
		return detector.Range{}, err
	}

	a.mu.Lock()
	a.status.SkinRange = r
	a.mu.Unlock()

	if a.store != nil {
		if err := a.store.Settings().SetJSON(store.SettingSkinRange, r); err != nil {
			a.logger.Warn("persist calibration", zap.Error(err))
		}
	}

	a.logger.Info("calibrated",
		zap.Int("x", pt.X), zap.Int("y", pt.Y),
		zap.Any("lower", r.Lower), zap.Any("upper", r.Upper))
	return r, nil
}

// CalibrateCenter calibrates at the centre of the last frame.
func (a *App) CalibrateCenter() (detector.Range, error) {
	a.frameMu.Lock()
	size := image.Pt(a.lastFrame.Cols(), a.lastFrame.Rows())
	a.frameMu.Unlock()
	return a.Calibrate(size.Div(2))
}

// ApplyConfig hot-swaps classifier thresholds, trigger timings, cursor
// settings and the fallback action map. Camera, motion and server settings need a
// restart.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.classifier.Reconfigure(cfg.Detector, cfg.Policy, cfg.Calibration.Margins)
	a.stabilizer.SetTimings(cfg.Trigger.Hold, cfg.Trigger.Cooldown)

	a.mu.Lock()
	a.cfg = cfg
	a.cursor = newCursorMapper(cfg)
	a.mu.Unlock()

	a.logger.Info("configuration applied",
		zap.Duration("hold", cfg.Trigger.Hold),
		zap.Duration("cooldown", cfg.Trigger.Cooldown),
		zap.Float64("rock_circularity", cfg.Policy.RockCircularity))
}

func (a *App) config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// DiscoverPlugins rescans the plugin directory.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Plugins returns the plugin manager.
func (a *App) Plugins() *plugin.Manager {
	return a.pluginMgr
}

// Classifier returns the classifier used by the loop.
func (a *App) Classifier() *gesture.Classifier {
	return a.classifier
}

// Running reports whether Run is active.
func (a *App) Running() bool {
	return a.running.Load()
}

// Close releases the retained frame. Call after Run has returned.
func (a *App) Close() {
	a.frameMu.Lock()
	a.lastFrame.Close()
	a.frameMu.Unlock()
}
