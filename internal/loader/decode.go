package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"  // Register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder

	"imageviewer/internal/logging"
	"imageviewer/pkg/bitmap"
)

// DefaultMaxDimension bounds the width and height of images decoded without
// a device limit
const DefaultMaxDimension = 16384

var (
	// ErrDecode wraps every failure to turn file bytes into pixels
	ErrDecode = errors.New("decode failed")
	// ErrTooLarge is returned, wrapped in ErrDecode, when the header announces
	// an image larger than the limit. No pixels are decoded.
	ErrTooLarge = errors.New("image too large")
)

// Info describes a decoded image
type Info struct {
	Path        string
	Format      string
	Width       int
	Height      int
	Orientation int
	Camera      string
}

// Decode reads path and returns an upright, straight-alpha RGBA8 bitmap
func Decode(ctx context.Context, path string) (*bitmap.Bitmap, error) {
	img, _, err := DecodeWithInfo(ctx, path)
	return img, err
}

// DecodeLimit returns a DecodeFunc that rejects images wider or taller than
// maxDimension before decoding their pixels
func DecodeLimit(maxDimension int) DecodeFunc {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return func(ctx context.Context, path string) (*bitmap.Bitmap, error) {
		img, _, err := decodeFile(ctx, path, maxDimension)
		return img, err
	}
}

// DecodeWithInfo is Decode plus the file metadata. http(s) URLs are
// downloaded and cached.
func DecodeWithInfo(ctx context.Context, path string) (*bitmap.Bitmap, Info, error) {
	return decodeFile(ctx, path, DefaultMaxDimension)
}

func decodeFile(ctx context.Context, path string, maxDimension int) (*bitmap.Bitmap, Info, error) {
	info := Info{Path: path, Orientation: 1}

	data, err := readSource(ctx, path)
	if err != nil {
		return nil, info, fmt.Errorf("%w: reading %s: %v", ErrDecode, path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, info, err
	}

	bmp, info, err := decodeBytes(data, maxDimension)
	info.Path = path
	if err != nil {
		return nil, info, fmt.Errorf("%s: %w", path, err)
	}
	logging.Logger().Debug("decoded image", "path", path, "format", info.Format,
		"width", info.Width, "height", info.Height, "orientation", info.Orientation)
	return bmp, info, nil
}

// DecodeBytes decodes an in-memory image file
func DecodeBytes(data []byte) (*bitmap.Bitmap, Info, error) {
	return decodeBytes(data, DefaultMaxDimension)
}

func decodeBytes(data []byte, maxDimension int) (*bitmap.Bitmap, Info, error) {
	info := Info{Orientation: 1}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, info, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	info.Format = format
	if cfg.Width > maxDimension || cfg.Height > maxDimension {
		info.Width, info.Height = cfg.Width, cfg.Height
		return nil, info, fmt.Errorf("%w: %w: %dx%d exceeds %d", ErrDecode, ErrTooLarge,
			cfg.Width, cfg.Height, maxDimension)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, info, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	info.Format = format

	readExif(data, &info)

	nrgba := toNRGBA(src)
	nrgba = Orient(nrgba, info.Orientation)

	b := nrgba.Bounds()
	info.Width, info.Height = b.Dx(), b.Dy()
	if info.Width == 0 || info.Height == 0 {
		return nil, info, fmt.Errorf("%w: empty image", ErrDecode)
	}
	return bitmap.FromNRGBA(nrgba), info, nil
}

// readExif fills orientation and camera model. Missing EXIF is not an error.
func readExif(data []byte, info *Info) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return
	}
	if tag, err := x.Get(exif.Orientation); err == nil {
		if o, err := tag.Int(0); err == nil && o >= 1 && o <= 8 {
			info.Orientation = o
		}
	}
	if tag, err := x.Get(exif.Model); err == nil {
		if model, err := tag.StringVal(); err == nil {
			info.Camera = model
		}
	}
}

// toNRGBA converts any decoded image to a zero-origin NRGBA image
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
