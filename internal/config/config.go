package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

const (
	appDir   = "imageviewer"
	fileName = "config.toml"
)

// Config holds application configuration
type Config struct {
	Window    Window    `toml:"window"`
	View      View      `toml:"view"`
	Rendering Rendering `toml:"rendering"`
	Keys      Keys      `toml:"keys"`
	Actions   []Action  `toml:"actions,omitempty"`
	Log       Log       `toml:"log"`
}

// Window contains the initial window size
type Window struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// View contains pan and zoom behaviour
type View struct {
	// ZoomStep is the factor applied per wheel tick or key press (> 1)
	ZoomStep float64 `toml:"zoom_step"`
	MinZoom  float64 `toml:"min_zoom"`
	MaxZoom  float64 `toml:"max_zoom"`

	// KeyPanStep is the pan distance per 1/60 s while an arrow key is held,
	// in half-window units
	KeyPanStep float64 `toml:"key_pan_step"`

	// ClampPan keeps the image center inside the window
	ClampPan bool `toml:"clamp_pan"`
}

// Rendering contains GPU parameters
type Rendering struct {
	// Background is the clear color (RGBA, 0-1) shown around the image
	Background [4]float64 `toml:"background"`

	// Filter is the texture filter: "linear" or "nearest"
	Filter string `toml:"filter"`

	// PresentMode is "fifo", "mailbox" or "immediate"
	PresentMode string `toml:"present_mode"`
}

// Keys binds the built-in commands to key names such as "R", "Escape", "="
// or "KPAdd". A command may have several keys; an empty list unbinds it.
type Keys struct {
	Reset   []string `toml:"reset"`
	ZoomIn  []string `toml:"zoom_in"`
	ZoomOut []string `toml:"zoom_out"`
	Quit    []string `toml:"quit"`
}

// Action runs Command when Key is pressed. %1 in the command is replaced
// with the quoted path of the displayed image.
type Action struct {
	Key     string `toml:"key"`
	Command string `toml:"command"`
}

// Log contains logging options
type Log struct {
	Level string `toml:"level"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.RWMutex
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Window: Window{
			Width:  1280,
			Height: 720,
		},
		View: View{
			ZoomStep:   1.1,
			MinZoom:    0.1,
			MaxZoom:    50,
			KeyPanStep: 0.02,
			ClampPan:   false,
		},
		Rendering: Rendering{
			Background:  [4]float64{0.1, 0.1, 0.1, 1.0},
			Filter:      "linear",
			PresentMode: "fifo",
		},
		Keys: Keys{
			Reset:   []string{"R", "0", "KP0"},
			ZoomIn:  []string{"=", "KPAdd"},
			ZoomOut: []string{"-", "KPSubtract"},
			Quit:    []string{"Escape"},
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Dir returns the configuration directory, honouring XDG_CONFIG_HOME
func Dir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appDir)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDir)
	}
	return filepath.Join(os.Getenv("HOME"), ".config", appDir)
}

// Path returns the default configuration file path
func Path() string {
	return filepath.Join(Dir(), fileName)
}

// Get returns the global configuration instance. It loads the default file on
// first use and falls back to the defaults when the file is missing or broken.
func Get() *Config {
	once.Do(func() {
		cfg, err := Read(Path())
		if err != nil {
			cfg = DefaultConfig()
		}
		mu.Lock()
		if instance == nil {
			instance = cfg
		}
		mu.Unlock()
	})
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// Read decodes a TOML file on top of the defaults and validates the result
func Read(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg.Validate()
	return cfg, nil
}

// Load loads configuration from a file and installs it as the global instance
func Load(path string) error {
	cfg, err := Read(path)
	if err != nil {
		return err
	}

	mu.Lock()
	instance = cfg
	mu.Unlock()

	// Mark the lazy default load as done so Get keeps this instance.
	once.Do(func() {})
	return nil
}

// LoadOrInit loads path, writing the defaults there first if it does not exist
func LoadOrInit(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := Write(path, DefaultConfig()); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("checking config %s: %w", path, err)
	}

	if err := Load(path); err != nil {
		return nil, err
	}
	return Get(), nil
}

// Save saves the global configuration to a file
func Save(path string) error {
	mu.RLock()
	cfg := instance
	mu.RUnlock()

	if cfg == nil {
		cfg = DefaultConfig()
	}
	return Write(path, cfg)
}

// Write encodes cfg as TOML, creating the parent directory if needed
func Write(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// Validate replaces out-of-range values with their defaults
func (c *Config) Validate() {
	d := DefaultConfig()

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		c.Window = d.Window
	}

	if c.View.ZoomStep <= 1 {
		c.View.ZoomStep = d.View.ZoomStep
	}
	if c.View.MinZoom <= 0 || c.View.MaxZoom < c.View.MinZoom {
		c.View.MinZoom = d.View.MinZoom
		c.View.MaxZoom = d.View.MaxZoom
	}
	if c.View.KeyPanStep <= 0 {
		c.View.KeyPanStep = d.View.KeyPanStep
	}

	for i, v := range c.Rendering.Background {
		if v < 0 {
			c.Rendering.Background[i] = 0
		}
		if v > 1 {
			c.Rendering.Background[i] = 1
		}
	}
	switch c.Rendering.Filter {
	case "linear", "nearest":
	default:
		c.Rendering.Filter = d.Rendering.Filter
	}
	switch c.Rendering.PresentMode {
	case "fifo", "mailbox", "immediate":
	default:
		c.Rendering.PresentMode = d.Rendering.PresentMode
	}

	// Actions without a key or a command are dropped.
	var actions []Action
	for _, a := range c.Actions {
		a.Key = strings.TrimSpace(a.Key)
		if a.Key == "" || strings.TrimSpace(a.Command) == "" {
			continue
		}
		actions = append(actions, a)
	}
	c.Actions = actions

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}
