package bitmap

import (
	"errors"
	"fmt"
	"image"
)

// PixelFormat describes the channel layout of a Bitmap's pixel buffer
type PixelFormat int

const (
	FormatUnknown PixelFormat = iota
	// FormatRGBA8 is 8-bit sRGB RGBA with straight (non-premultiplied) alpha
	FormatRGBA8
	// FormatRGBA8Linear is 8-bit RGBA already in linear space
	FormatRGBA8Linear
	// FormatBGRA8 is 8-bit sRGB BGRA with straight alpha
	FormatBGRA8
	FormatGray8
	FormatRGBA16
)

var formatNames = map[PixelFormat]string{
	FormatUnknown:     "unknown",
	FormatRGBA8:       "rgba8",
	FormatRGBA8Linear: "rgba8-linear",
	FormatBGRA8:       "bgra8",
	FormatGray8:       "gray8",
	FormatRGBA16:      "rgba16",
}

func (f PixelFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

// BytesPerPixel returns the size of one pixel, or 0 for unknown formats
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatRGBA8, FormatRGBA8Linear, FormatBGRA8:
		return 4
	case FormatGray8:
		return 1
	case FormatRGBA16:
		return 8
	}
	return 0
}

// ErrShortBuffer is returned when Pix cannot hold Height rows of Stride bytes
var ErrShortBuffer = errors.New("pixel buffer too short")

// Bitmap is a decoded image ready for upload: rows top to bottom, Stride bytes
// apart
type Bitmap struct {
	Width  int
	Height int
	Stride int
	Format PixelFormat
	Pix    []byte
}

// New allocates a zeroed, tightly packed bitmap
func New(width, height int, format PixelFormat) *Bitmap {
	stride := width * format.BytesPerPixel()
	return &Bitmap{
		Width:  width,
		Height: height,
		Stride: stride,
		Format: format,
		Pix:    make([]byte, stride*height),
	}
}

// FromNRGBA wraps an NRGBA image without copying. The image must start at the
// origin; use SubImage-free images from the decoder.
func FromNRGBA(img *image.NRGBA) *Bitmap {
	b := img.Bounds()
	return &Bitmap{
		Width:  b.Dx(),
		Height: b.Dy(),
		Stride: img.Stride,
		Format: FormatRGBA8,
		Pix:    img.Pix,
	}
}

// Aspect returns width/height, or 0 for an empty bitmap
func (b *Bitmap) Aspect() float32 {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return float32(b.Width) / float32(b.Height)
}

// Validate checks that the buffer covers every row
func (b *Bitmap) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("empty bitmap %dx%d", b.Width, b.Height)
	}
	bpp := b.Format.BytesPerPixel()
	if bpp == 0 {
		// Layout is unknown; nothing to check.
		return nil
	}
	if b.Stride < b.Width*bpp {
		return fmt.Errorf("stride %d smaller than row size %d", b.Stride, b.Width*bpp)
	}
	need := b.Stride*(b.Height-1) + b.Width*bpp
	if len(b.Pix) < need {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrShortBuffer, len(b.Pix), need)
	}
	return nil
}

// Bytes returns the number of bytes in the pixel buffer
func (b *Bitmap) Bytes() int {
	return len(b.Pix)
}

func (b *Bitmap) String() string {
	return fmt.Sprintf("%dx%d %s", b.Width, b.Height, b.Format)
}
