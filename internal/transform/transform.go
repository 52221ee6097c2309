// Package transform turns image and window geometry plus the view state into
// the affine transform applied to the quad vertices.
//
// The vertex shader in internal/renderer evaluates the same formulas on the
// GPU; this package is the host-side reference used to validate a frame before
// it is drawn.
package transform

import (
	"errors"
	"fmt"
	"math"
)

// MinZoom is the positive floor applied to the zoom divisor.
const MinZoom float32 = 1e-4

// ErrInvalidDimension is returned for zero, negative or non-finite sizes.
var ErrInvalidDimension = errors.New("invalid dimension")

// Params are the inputs of a frame transform.
type Params struct {
	ImageAspect  float32
	WindowAspect float32
	Zoom         float32
	PanX         float32
	PanY         float32
}

// Transform scales a vertex and then offsets it, in normalized device
// coordinates.
type Transform struct {
	ScaleX  float32
	ScaleY  float32
	OffsetX float32
	OffsetY float32
}

// Fit returns the contain scale for an image inside a window. One axis is
// always exactly 1 and the other lies in (0, 1].
func Fit(imageAspect, windowAspect float32) (sx, sy float32, err error) {
	if !validAspect(imageAspect) {
		return 0, 0, fmt.Errorf("%w: image aspect %v", ErrInvalidDimension, imageAspect)
	}
	if !validAspect(windowAspect) {
		return 0, 0, fmt.Errorf("%w: window aspect %v", ErrInvalidDimension, windowAspect)
	}

	if imageAspect > windowAspect {
		// Wider than the window: letterbox.
		return 1, windowAspect / imageAspect, nil
	}
	// Taller or equal: pillarbox.
	return imageAspect / windowAspect, 1, nil
}

// ClampZoom floors zoom at MinZoom. NaN and negative values map to MinZoom.
func ClampZoom(zoom float32) float32 {
	if !(zoom >= MinZoom) {
		return MinZoom
	}
	return zoom
}

// Compute builds the frame transform. The fit scale is divided by the zoom and
// the pan is applied afterwards as (-2*PanX, +2*PanY): one pan unit is half the
// window, so a pan of 0.5 moves the image by a full window width.
func Compute(p Params) (Transform, error) {
	sx, sy, err := Fit(p.ImageAspect, p.WindowAspect)
	if err != nil {
		return Transform{}, err
	}
	if isInf(p.Zoom) {
		return Transform{}, fmt.Errorf("%w: zoom %v", ErrInvalidDimension, p.Zoom)
	}
	if !finite(p.PanX) || !finite(p.PanY) {
		return Transform{}, fmt.Errorf("%w: pan (%v, %v)", ErrInvalidDimension, p.PanX, p.PanY)
	}

	zoom := ClampZoom(p.Zoom)
	return Transform{
		ScaleX:  sx / zoom,
		ScaleY:  sy / zoom,
		OffsetX: -p.PanX * 2,
		OffsetY: p.PanY * 2,
	}, nil
}

// Apply maps a quad vertex position to normalized device coordinates.
func (t Transform) Apply(x, y float32) (float32, float32) {
	return x*t.ScaleX + t.OffsetX, y*t.ScaleY + t.OffsetY
}

// Aspect returns width/height for integer sizes.
func Aspect(width, height int) (float32, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: %dx%d", ErrInvalidDimension, width, height)
	}
	return float32(width) / float32(height), nil
}

func validAspect(a float32) bool {
	return a > 0 && finite(a)
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isInf(v float32) bool {
	return math.IsInf(float64(v), 0)
}
