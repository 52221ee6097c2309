package config

import (
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

func reset() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadPartialFileKeepsDefaults(t *testing.T) {
	path := writeFile(t, `
[view]
zoom_step = 1.25
clamp_pan = true

[rendering]
filter = "nearest"
`)
	cfg, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if cfg.View.ZoomStep != 1.25 || !cfg.View.ClampPan {
		t.Errorf("view = %+v", cfg.View)
	}
	if cfg.Rendering.Filter != "nearest" {
		t.Errorf("filter = %q, want nearest", cfg.Rendering.Filter)
	}
	d := DefaultConfig()
	if cfg.View.MaxZoom != d.View.MaxZoom || cfg.Window != d.Window || cfg.Rendering.PresentMode != "fifo" {
		t.Errorf("defaults not kept: %+v", cfg)
	}
}

func TestReadValidates(t *testing.T) {
	path := writeFile(t, `
[window]
width = -5
height = 100

[view]
zoom_step = 0.9
min_zoom = 10.0
max_zoom = 2.0
key_pan_step = 0.0

[rendering]
background = [2.0, -1.0, 0.5, 1.0]
filter = "cubic"
present_mode = "vsync"

[log]
level = ""
`)
	cfg, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	d := DefaultConfig()
	if cfg.Window != d.Window {
		t.Errorf("window = %+v, want %+v", cfg.Window, d.Window)
	}
	if cfg.View != d.View {
		t.Errorf("view = %+v, want %+v", cfg.View, d.View)
	}
	if cfg.Rendering.Background != [4]float64{1, 0, 0.5, 1} {
		t.Errorf("background = %v", cfg.Rendering.Background)
	}
	if cfg.Rendering.Filter != "linear" || cfg.Rendering.PresentMode != "fifo" {
		t.Errorf("rendering = %+v", cfg.Rendering)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestReadMalformed(t *testing.T) {
	path := writeFile(t, "[view\nzoom_step = ")
	if _, err := Read(path); err == nil {
		t.Error("Read(malformed) error = nil")
	}
	if _, err := Read(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Read(missing) error = nil")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	want := DefaultConfig()
	want.View.MaxZoom = 20
	want.Rendering.Background = [4]float64{0, 0, 0, 0}
	want.Log.Level = "debug"
	want.Keys.Quit = []string{"Q", "Escape"}
	want.Actions = []Action{{Key: "E", Command: `gimp "%1"`}}

	if err := Write(path, want); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestLoadOrInitWritesDefaults(t *testing.T) {
	reset()
	t.Cleanup(reset)

	path := filepath.Join(t.TempDir(), "imageviewer", "config.toml")
	cfg, err := LoadOrInit(path)
	if err != nil {
		t.Fatalf("LoadOrInit() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("LoadOrInit() = %+v, want defaults", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not written: %v", err)
	}
	if Get() != cfg {
		t.Error("Get() does not return the loaded instance")
	}
}

func TestLoadReplacesInstance(t *testing.T) {
	reset()
	t.Cleanup(reset)

	path := writeFile(t, "[log]\nlevel = \"warn\"\n")
	if err := Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if Get().Log.Level != "warn" {
		t.Errorf("level = %q, want warn", Get().Log.Level)
	}

	out := filepath.Join(t.TempDir(), "saved.toml")
	if err := Save(out); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	saved, err := Read(out)
	if err != nil {
		t.Fatal(err)
	}
	if saved.Log.Level != "warn" {
		t.Errorf("saved level = %q, want warn", saved.Log.Level)
	}
}

func TestDirHonoursXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := Path(); got != filepath.Join("/tmp/xdg", "imageviewer", "config.toml") {
		t.Errorf("Path() = %q", got)
	}
}

func TestReadKeysAndActions(t *testing.T) {
	path := writeFile(t, `
[keys]
reset = ["F5"]
quit = []

[[actions]]
key = "E"
command = "gimp %1"

[[actions]]
key = " "
command = "ignored"

[[actions]]
key = "O"
command = "   "

[[actions]]
key = " Delete "
command = "trash-put %1"
`)
	cfg, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	d := DefaultConfig()
	if !reflect.DeepEqual(cfg.Keys.Reset, []string{"F5"}) {
		t.Errorf("reset keys = %v, want [F5]", cfg.Keys.Reset)
	}
	if len(cfg.Keys.Quit) != 0 {
		t.Errorf("quit keys = %v, want unbound", cfg.Keys.Quit)
	}
	if !reflect.DeepEqual(cfg.Keys.ZoomIn, d.Keys.ZoomIn) || !reflect.DeepEqual(cfg.Keys.ZoomOut, d.Keys.ZoomOut) {
		t.Errorf("zoom keys = %v %v, want defaults", cfg.Keys.ZoomIn, cfg.Keys.ZoomOut)
	}

	want := []Action{
		{Key: "E", Command: "gimp %1"},
		{Key: "Delete", Command: "trash-put %1"},
	}
	if !reflect.DeepEqual(cfg.Actions, want) {
		t.Errorf("actions = %+v, want %+v", cfg.Actions, want)
	}
}
