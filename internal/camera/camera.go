package camera

import (
	"math"
	"time"

	"imageviewer/internal/config"
)

const (
	DefaultZoomStep   = 1.1
	DefaultMinZoom    = 0.1
	DefaultMaxZoom    = 50
	DefaultKeyPanStep = 0.02

	// KeyPanInterval is the time KeyPanStep is measured against
	KeyPanInterval = time.Second / 60
	// maxKeyPanDelta caps the pan applied after a stalled frame
	maxKeyPanDelta = 250 * time.Millisecond

	// panLimit keeps the image center on screen: the offset is -2*pan, and
	// the window spans [-1, 1] in NDC.
	panLimit = 0.5
)

// ViewState is the zoom and pan the renderer reads every frame.
//
// Pan is measured in half-window units: the transform offsets vertices by
// (-2*PanX, +2*PanY) in normalized device coordinates, so a drag across the
// full window width changes PanX by 1.
type ViewState struct {
	Zoom float32
	PanX float32
	PanY float32
}

// DefaultViewState returns zoom 1 with no pan
func DefaultViewState() ViewState {
	return ViewState{Zoom: 1}
}

// Options configures zoom stepping and limits
type Options struct {
	ZoomStep   float32
	MinZoom    float32
	MaxZoom    float32
	// KeyPanStep is the pan per KeyPanInterval while a key is held
	KeyPanStep float32
	// ClampPan keeps the image center inside the window
	ClampPan bool
}

// DefaultOptions returns the built-in zoom limits
func DefaultOptions() Options {
	return Options{
		ZoomStep:   DefaultZoomStep,
		MinZoom:    DefaultMinZoom,
		MaxZoom:    DefaultMaxZoom,
		KeyPanStep: DefaultKeyPanStep,
	}
}

// Camera converts pointer, wheel and key input into ViewState changes
type Camera struct {
	State ViewState

	// Viewport dimensions in pixels
	ViewportWidth  int
	ViewportHeight int

	opts Options

	// State tracking
	isDragging bool
	lastDragX  float64
	lastDragY  float64
}

// NewCamera creates a camera for a viewport of the given size. Invalid options
// fall back to the defaults.
func NewCamera(width, height int, opts Options) *Camera {
	return &Camera{
		State:          DefaultViewState(),
		ViewportWidth:  width,
		ViewportHeight: height,
		opts:           normalize(opts),
	}
}

// OptionsFromConfig converts the [view] section
func OptionsFromConfig(v config.View) Options {
	return normalize(Options{
		ZoomStep:   float32(v.ZoomStep),
		MinZoom:    float32(v.MinZoom),
		MaxZoom:    float32(v.MaxZoom),
		KeyPanStep: float32(v.KeyPanStep),
		ClampPan:   v.ClampPan,
	})
}

func normalize(o Options) Options {
	d := DefaultOptions()
	if !(o.ZoomStep > 1) || !finite(float64(o.ZoomStep)) {
		o.ZoomStep = d.ZoomStep
	}
	if !(o.MinZoom > 0) || !(o.MaxZoom >= o.MinZoom) || !finite(float64(o.MaxZoom)) {
		o.MinZoom, o.MaxZoom = d.MinZoom, d.MaxZoom
	}
	if !(o.KeyPanStep > 0) || !finite(float64(o.KeyPanStep)) {
		o.KeyPanStep = d.KeyPanStep
	}
	return o
}

// Options returns the effective options
func (c *Camera) Options() Options {
	return c.opts
}

// SetViewport updates the viewport dimensions. The view state is untouched;
// the new aspect is picked up by the next frame.
func (c *Camera) SetViewport(width, height int) {
	c.ViewportWidth = width
	c.ViewportHeight = height
}

// WindowAspect returns the viewport aspect, false for a zero-sized viewport
func (c *Camera) WindowAspect() (float32, bool) {
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return 0, false
	}
	return float32(c.ViewportWidth) / float32(c.ViewportHeight), true
}

// Pan moves the view by a pixel delta, normalized by the viewport size so the
// same drag covers the same fraction of the window at any resolution
func (c *Camera) Pan(deltaX, deltaY float64) {
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return
	}
	c.PanBy(float32(deltaX/float64(c.ViewportWidth)), float32(deltaY/float64(c.ViewportHeight)))
}

// PanBy adds a delta in pan units
func (c *Camera) PanBy(dx, dy float32) {
	if !finite(float64(dx)) || !finite(float64(dy)) {
		return
	}
	c.State.PanX += dx
	c.State.PanY += dy
}

// PanHeld pans for keys held during dt in each direction (-1, 0, 1). The
// distance scales with dt, so the speed does not depend on the frame rate.
func (c *Camera) PanHeld(dirX, dirY float32, dt time.Duration) {
	if dt <= 0 {
		return
	}
	if dt > maxKeyPanDelta {
		dt = maxKeyPanDelta
	}
	step := c.opts.KeyPanStep * float32(float64(dt)/float64(KeyPanInterval))
	c.PanBy(dirX*step, dirY*step)
}

// ZoomIn multiplies zoom by one step
func (c *Camera) ZoomIn() {
	c.ZoomBy(1)
}

// ZoomOut divides zoom by one step
func (c *Camera) ZoomOut() {
	c.ZoomBy(-1)
}

// ZoomBy applies ticks zoom steps. Positive ticks multiply, negative divide;
// fractional ticks come from smooth scrolling devices.
func (c *Camera) ZoomBy(ticks float64) {
	if ticks == 0 || !finite(ticks) {
		return
	}
	factor := math.Pow(float64(c.opts.ZoomStep), ticks)
	c.ZoomTo(float32(float64(c.State.Zoom) * factor))
}

// ZoomTo sets a specific zoom, clamped to [MinZoom, MaxZoom]
func (c *Camera) ZoomTo(zoom float32) {
	switch {
	case zoom != zoom: // NaN
		return
	case zoom < c.opts.MinZoom:
		zoom = c.opts.MinZoom
	case zoom > c.opts.MaxZoom:
		zoom = c.opts.MaxZoom
	}
	c.State.Zoom = zoom
}

// Reset restores zoom 1 and centers the image
func (c *Camera) Reset() {
	c.State = DefaultViewState()
	c.ZoomTo(1)
}

// ClampPan limits the pan so the image center stays inside the window, which
// holds for any zoom. It is a no-op unless the ClampPan option is set.
func (c *Camera) ClampPan() {
	if !c.opts.ClampPan {
		return
	}
	c.State.PanX = clamp(c.State.PanX, -panLimit, panLimit)
	c.State.PanY = clamp(c.State.PanY, -panLimit, panLimit)
}

// StartDrag begins a drag operation
func (c *Camera) StartDrag(x, y float64) {
	c.isDragging = true
	c.lastDragX = x
	c.lastDragY = y
}

// Drag continues a drag operation
func (c *Camera) Drag(x, y float64) {
	if !c.isDragging {
		return
	}

	deltaX := x - c.lastDragX
	deltaY := y - c.lastDragY

	c.Pan(deltaX, deltaY)

	c.lastDragX = x
	c.lastDragY = y
}

// EndDrag ends a drag operation
func (c *Camera) EndDrag() {
	c.isDragging = false
}

// IsDragging returns whether a drag is in progress
func (c *Camera) IsDragging() bool {
	return c.isDragging
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
