// Package config loads the YAML configuration file and watches it for
// changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete application configuration.
type Config struct {
	Camera      capture.Config     `yaml:"camera"`
	Motion      capture.GateConfig `yaml:"motion"`
	Detector    detector.Config    `yaml:"detector"`
	Policy      gesture.Policy     `yaml:"policy"`
	Calibration CalibrationConfig  `yaml:"calibration"`
	Trigger     TriggerConfig      `yaml:"trigger"`
	Cursor      CursorConfig       `yaml:"cursor"`
	// Actions seeds bindings for labels that have none in the store.
	Actions map[gesture.Label]ActionConfig `yaml:"actions"`
	Plugins PluginsConfig                  `yaml:"plugins"`
	Server  ServerConfig                   `yaml:"server"`
	Store   StoreConfig                    `yaml:"store"`
	Tray    TrayConfig                     `yaml:"tray"`
	Log     LogConfig                      `yaml:"log"`
}

// CalibrationConfig controls how a sampled color widens into a range.
type CalibrationConfig struct {
	Margins detector.Margins `yaml:"margins"`
}

// TriggerConfig controls when a held label dispatches its action.
type TriggerConfig struct {
	Hold     time.Duration `yaml:"hold"`
	Cooldown time.Duration `yaml:"cooldown"`
	// EveryNFrames classifies one frame in N.
	EveryNFrames int `yaml:"every_n_frames"`
}

// CursorConfig controls cursor mode, where the hand centroid drives the
// pointer instead of triggering actions.
type CursorConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Window       int    `yaml:"window"`
	ScreenWidth  int    `yaml:"screen_width"`
	ScreenHeight int    `yaml:"screen_height"`
	Plugin       string `yaml:"plugin"`
	Action       string `yaml:"action"`
}

// ActionConfig binds a label to a plugin action.
type ActionConfig struct {
	Plugin string         `yaml:"plugin"`
	Action string         `yaml:"action"`
	Config map[string]any `yaml:"config"`
}

// PluginsConfig locates and bounds plugin executables.
type PluginsConfig struct {
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// TrayConfig toggles the system tray icon.
type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Dir returns the per-user data directory, ~/.mudra.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mudra"
	}
	return filepath.Join(home, ".mudra")
}

// DefaultPath returns ~/.mudra/config.yaml.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns a complete configuration.
func Default() *Config {
	dir := Dir()
	return &Config{
		Camera:   capture.DefaultConfig(),
		Motion:   capture.DefaultGateConfig(),
		Detector: detector.DefaultConfig(),
		Policy:   gesture.DefaultPolicy(),
		Calibration: CalibrationConfig{
			Margins: detector.DefaultMargins(),
		},
		Trigger: TriggerConfig{
			Hold:         2 * time.Second,
			Cooldown:     3 * time.Second,
			EveryNFrames: 2,
		},
		Cursor: CursorConfig{
			Window:       5,
			ScreenWidth:  1920,
			ScreenHeight: 1080,
			Plugin:       "cursor",
			Action:       "move",
		},
		Actions: map[gesture.Label]ActionConfig{},
		Plugins: PluginsConfig{
			Dir:     filepath.Join(dir, "plugins"),
			Timeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8080",
		},
		Store: StoreConfig{
			Path: filepath.Join(dir, "mudra.db"),
		},
		Tray: TrayConfig{Enabled: true},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load overlays the YAML file at path on the defaults, applies environment
// overrides and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnvOverrides reads MUDRA_* variables.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("MUDRA_CAMERA_DEVICE"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: MUDRA_CAMERA_DEVICE: %v", ErrInvalid, err)
		}
		c.Camera.DeviceID = id
	}
	if v := os.Getenv("MUDRA_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("MUDRA_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("MUDRA_PLUGIN_DIR"); v != "" {
		c.Plugins.Dir = v
	}
	if v := os.Getenv("MUDRA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks every section and joins the failures.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if err := c.Detector.Validate(); err != nil {
		add("detector: %v", err)
	}
	if err := c.Policy.Validate(); err != nil {
		add("policy: %v", err)
	}
	if c.Calibration.Margins.Hue > 179 {
		add("calibration: hue margin must be in [0,179], got %d", c.Calibration.Margins.Hue)
	}
	if c.Trigger.Hold < 0 || c.Trigger.Cooldown < 0 {
		add("trigger: hold and cooldown must not be negative")
	}
	if c.Trigger.EveryNFrames < 1 {
		add("trigger: every_n_frames must be at least 1, got %d", c.Trigger.EveryNFrames)
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 || c.Camera.FPS < 0 {
		add("camera: width, height and fps must not be negative")
	}
	if c.Motion.Enabled && (c.Motion.IdleFPS < 1 || c.Motion.ActiveFPS < c.Motion.IdleFPS) {
		add("motion: need 1 <= idle_fps <= active_fps, got %d and %d", c.Motion.IdleFPS, c.Motion.ActiveFPS)
	}
	if c.Cursor.Enabled && (c.Cursor.ScreenWidth <= 0 || c.Cursor.ScreenHeight <= 0) {
		add("cursor: screen size must be positive")
	}
	for label, a := range c.Actions {
		if !label.IsActionable() {
			add("actions: %q is not a bindable label", label)
		}
		if a.Plugin == "" || a.Action == "" {
			add("actions.%s: plugin and action are required", label)
		}
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		add("server: addr is required when enabled")
	}
	if c.Store.Path == "" {
		add("store: path is required")
	}
	if _, ok := validLevels[strings.ToLower(c.Log.Level)]; !ok {
		add("log: unknown level %q", c.Log.Level)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

var validLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {}, "dpanic": {}, "panic": {}, "fatal": {},
}
