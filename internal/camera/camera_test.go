package camera

import (
	"math"
	"testing"
	"time"

	"imageviewer/internal/config"
	"imageviewer/internal/transform"
)

func TestNewCameraDefaults(t *testing.T) {
	c := NewCamera(800, 600, Options{})
	if c.State != DefaultViewState() {
		t.Errorf("State = %+v, want %+v", c.State, DefaultViewState())
	}
	if c.Options() != DefaultOptions() {
		t.Errorf("Options() = %+v, want defaults", c.Options())
	}
}

func TestZoomClamp(t *testing.T) {
	c := NewCamera(800, 600, DefaultOptions())

	tests := []struct {
		name string
		in   float32
		want float32
	}{
		{"below min", 0.001, DefaultMinZoom},
		{"negative", -4, DefaultMinZoom},
		{"above max", 1000, DefaultMaxZoom},
		{"infinite", float32(math.Inf(1)), DefaultMaxZoom},
		{"in range", 3, 3},
		{"exact min", DefaultMinZoom, DefaultMinZoom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.ZoomTo(tt.in)
			if c.State.Zoom != tt.want {
				t.Errorf("ZoomTo(%v) -> %v, want %v", tt.in, c.State.Zoom, tt.want)
			}
		})
	}
}

func TestZoomToIgnoresNaN(t *testing.T) {
	c := NewCamera(800, 600, DefaultOptions())
	c.ZoomTo(2)
	c.ZoomTo(float32(math.NaN()))
	if c.State.Zoom != 2 {
		t.Errorf("Zoom = %v after NaN, want 2", c.State.Zoom)
	}
}

func TestZoomSteps(t *testing.T) {
	c := NewCamera(800, 600, DefaultOptions())

	c.ZoomIn()
	if got := c.State.Zoom; math.Abs(float64(got)-1.1) > 1e-6 {
		t.Errorf("after ZoomIn zoom = %v, want 1.1", got)
	}
	c.ZoomOut()
	if got := c.State.Zoom; math.Abs(float64(got)-1) > 1e-6 {
		t.Errorf("after ZoomOut zoom = %v, want 1", got)
	}

	c.ZoomBy(2)
	if got := c.State.Zoom; math.Abs(float64(got)-1.21) > 1e-5 {
		t.Errorf("after ZoomBy(2) zoom = %v, want 1.21", got)
	}

	for i := 0; i < 200; i++ {
		c.ZoomIn()
	}
	if c.State.Zoom != DefaultMaxZoom {
		t.Errorf("zoom after many steps = %v, want %v", c.State.Zoom, float32(DefaultMaxZoom))
	}
	for i := 0; i < 400; i++ {
		c.ZoomOut()
	}
	if c.State.Zoom != DefaultMinZoom {
		t.Errorf("zoom after many steps = %v, want %v", c.State.Zoom, float32(DefaultMinZoom))
	}
}

func TestZoomByIgnoresBadTicks(t *testing.T) {
	c := NewCamera(800, 600, DefaultOptions())
	c.ZoomBy(math.NaN())
	c.ZoomBy(math.Inf(-1))
	c.ZoomBy(0)
	if c.State.Zoom != 1 {
		t.Errorf("Zoom = %v, want 1", c.State.Zoom)
	}
}

func TestDragIsResolutionIndependent(t *testing.T) {
	small := NewCamera(400, 300, DefaultOptions())
	large := NewCamera(1600, 1200, DefaultOptions())

	small.StartDrag(0, 0)
	small.Drag(100, 75)
	small.EndDrag()

	large.StartDrag(10, 10)
	large.Drag(410, 310)
	large.EndDrag()

	if small.State != large.State {
		t.Errorf("states differ: %+v vs %+v", small.State, large.State)
	}
	if small.State.PanX != 0.25 || small.State.PanY != 0.25 {
		t.Errorf("pan = (%v, %v), want (0.25, 0.25)", small.State.PanX, small.State.PanY)
	}
}

func TestDragAccumulates(t *testing.T) {
	c := NewCamera(100, 100, DefaultOptions())
	c.StartDrag(0, 0)
	c.Drag(25, 0)
	c.Drag(75, -50)
	if !c.IsDragging() {
		t.Fatal("IsDragging() = false during drag")
	}
	c.EndDrag()
	c.Drag(90, 90) // ignored, button released

	if c.State.PanX != 0.75 || c.State.PanY != -0.5 {
		t.Errorf("pan = (%v, %v), want (0.75, -0.5)", c.State.PanX, c.State.PanY)
	}
}

func TestPanIgnoresZeroViewport(t *testing.T) {
	c := NewCamera(0, 0, DefaultOptions())
	c.Pan(50, 50)
	c.PanBy(float32(math.NaN()), 1)
	if c.State.PanX != 0 || c.State.PanY != 0 {
		t.Errorf("pan = (%v, %v), want (0, 0)", c.State.PanX, c.State.PanY)
	}
}

func TestSetViewportKeepsState(t *testing.T) {
	c := NewCamera(800, 600, DefaultOptions())
	c.ZoomTo(4)
	c.PanBy(0.1, 0.2)
	before := c.State

	c.SetViewport(1920, 1080)
	if c.State != before {
		t.Errorf("SetViewport changed state: %+v -> %+v", before, c.State)
	}
	aspect, ok := c.WindowAspect()
	if !ok || aspect != float32(1920)/float32(1080) {
		t.Errorf("WindowAspect() = %v, %v", aspect, ok)
	}

	c.SetViewport(0, 1080)
	if _, ok := c.WindowAspect(); ok {
		t.Error("WindowAspect() ok for zero width")
	}
}

func TestPanHeld(t *testing.T) {
	c := NewCamera(800, 600, DefaultOptions())
	c.PanHeld(1, -1, KeyPanInterval)
	if c.State.PanX != DefaultKeyPanStep || c.State.PanY != -DefaultKeyPanStep {
		t.Errorf("pan = (%v, %v)", c.State.PanX, c.State.PanY)
	}

	c.Reset()
	c.PanHeld(1, 1, 0)
	c.PanHeld(1, 1, -time.Second)
	if c.State != DefaultViewState() {
		t.Errorf("non-positive dt panned to %+v", c.State)
	}
}

func TestPanHeldIndependentOfFrameRate(t *testing.T) {
	tests := []struct {
		name   string
		fps    int
		frames int
	}{
		{"30 Hz", 30, 30},
		{"60 Hz", 60, 60},
		{"144 Hz", 144, 144},
		{"240 Hz", 240, 240},
	}

	// One second of holding the key covers 60 steps at any frame rate.
	want := float64(DefaultKeyPanStep) * 60
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCamera(800, 600, DefaultOptions())
			dt := time.Second / time.Duration(tt.fps)
			for i := 0; i < tt.frames; i++ {
				c.PanHeld(1, 0, dt)
			}
			if got := float64(c.State.PanX); math.Abs(got-want) > 1e-3 {
				t.Errorf("PanX after 1s = %v, want %v", got, want)
			}
		})
	}
}

func TestPanHeldCapsStalledFrame(t *testing.T) {
	c := NewCamera(800, 600, DefaultOptions())
	c.PanHeld(0, 1, 5*time.Second)
	want := float64(DefaultKeyPanStep) * float64(maxKeyPanDelta) / float64(KeyPanInterval)
	if got := float64(c.State.PanY); math.Abs(got-want) > 1e-4 {
		t.Errorf("PanY after a 5s frame = %v, want the capped %v", got, want)
	}
}

func TestReset(t *testing.T) {
	c := NewCamera(800, 600, DefaultOptions())
	c.ZoomTo(7)
	c.PanBy(1, 1)
	c.Reset()
	if c.State != DefaultViewState() {
		t.Errorf("Reset() state = %+v", c.State)
	}
}

func TestClampPan(t *testing.T) {
	opts := DefaultOptions()
	unclamped := NewCamera(800, 600, opts)
	unclamped.PanBy(5, -5)
	unclamped.ClampPan()
	if unclamped.State.PanX != 5 {
		t.Errorf("ClampPan without option changed pan to %v", unclamped.State.PanX)
	}

	opts.ClampPan = true
	tests := []struct {
		name         string
		zoom         float32
		panX, panY   float32
		wantX, wantY float32
	}{
		{"inside", 1, 0.25, -0.4, 0.25, -0.4},
		{"far right", 1, 5, 0, 0.5, 0},
		{"far up left", 1, -3, 2, -0.5, 0.5},
		{"zoomed in", 8, 2, -2, 0.5, -0.5},
		{"zoomed out", 0.1, -0.75, 0.75, -0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCamera(800, 800, opts)
			c.ZoomTo(tt.zoom)
			c.PanBy(tt.panX, tt.panY)
			c.ClampPan()
			if c.State.PanX != tt.wantX || c.State.PanY != tt.wantY {
				t.Fatalf("clamped pan = (%v, %v), want (%v, %v)", c.State.PanX, c.State.PanY, tt.wantX, tt.wantY)
			}

			// The image center must land inside the [-1, 1] window.
			tr, err := transform.Compute(transform.Params{
				ImageAspect:  1,
				WindowAspect: 1,
				Zoom:         c.State.Zoom,
				PanX:         c.State.PanX,
				PanY:         c.State.PanY,
			})
			if err != nil {
				t.Fatal(err)
			}
			cx, cy := tr.Apply(0, 0)
			if cx < -1 || cx > 1 || cy < -1 || cy > 1 {
				t.Errorf("image center at (%v, %v), outside the window", cx, cy)
			}
		})
	}
}

func TestNormalizeRejectsBadOptions(t *testing.T) {
	c := NewCamera(10, 10, Options{ZoomStep: 0.5, MinZoom: 10, MaxZoom: 1, KeyPanStep: -1})
	if c.Options() != DefaultOptions() {
		t.Errorf("Options() = %+v, want defaults", c.Options())
	}

	custom := Options{ZoomStep: 1.25, MinZoom: 0.5, MaxZoom: 8, KeyPanStep: 0.1}
	if got := NewCamera(10, 10, custom).Options(); got != custom {
		t.Errorf("Options() = %+v, want %+v", got, custom)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	v := config.DefaultConfig().View
	if got := OptionsFromConfig(v); got != DefaultOptions() {
		t.Errorf("OptionsFromConfig(defaults) = %+v, want %+v", got, DefaultOptions())
	}

	v.ZoomStep = 1.25
	v.MinZoom = 0.5
	v.MaxZoom = 8
	v.ClampPan = true
	got := OptionsFromConfig(v)
	want := Options{ZoomStep: 1.25, MinZoom: 0.5, MaxZoom: 8, KeyPanStep: DefaultKeyPanStep, ClampPan: true}
	if got != want {
		t.Errorf("OptionsFromConfig() = %+v, want %+v", got, want)
	}
}
