package renderer

import (
	"fmt"

	"github.com/rajveermalviya/go-webgpu/wgpu"

	"imageviewer/internal/logging"
	"imageviewer/internal/transform"
	"imageviewer/pkg/bitmap"
)

// DefaultMaxTextureDimension is assumed when the device reports no limit
const DefaultMaxTextureDimension = 8192

// TextureFormat maps a bitmap pixel format to the GPU texture format used to
// sample it
func TextureFormat(f bitmap.PixelFormat) (wgpu.TextureFormat, error) {
	switch f {
	case bitmap.FormatRGBA8:
		return wgpu.TextureFormat_RGBA8UnormSrgb, nil
	case bitmap.FormatBGRA8:
		return wgpu.TextureFormat_BGRA8UnormSrgb, nil
	case bitmap.FormatRGBA8Linear:
		return wgpu.TextureFormat_RGBA8Unorm, nil
	}
	return wgpu.TextureFormat_Undefined, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
}

// Texture is an uploaded image with its group 0 bind group
type Texture interface {
	BindGroup() *wgpu.BindGroup
	Release()
}

type textureAllocator interface {
	Allocate(img *bitmap.Bitmap, format wgpu.TextureFormat) (Texture, error)
}

// TextureManager owns the texture of the image on screen. A failed Load
// leaves the previous texture bound.
type TextureManager struct {
	alloc        textureAllocator
	maxDimension int

	current Texture
	width   int
	height  int
}

func newTextureManager(alloc textureAllocator, maxDimension uint32) *TextureManager {
	if maxDimension == 0 {
		maxDimension = DefaultMaxTextureDimension
	}
	return &TextureManager{
		alloc:        alloc,
		maxDimension: int(maxDimension),
	}
}

// Load uploads img and makes it current, releasing the previous texture
func (m *TextureManager) Load(img *bitmap.Bitmap) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", transform.ErrInvalidDimension)
	}
	format, err := TextureFormat(img.Format)
	if err != nil {
		return err
	}
	if err := img.Validate(); err != nil {
		return fmt.Errorf("%w: %v", transform.ErrInvalidDimension, err)
	}
	if img.Width > m.maxDimension || img.Height > m.maxDimension {
		return fmt.Errorf("%w: %dx%d exceeds %d", ErrTextureTooLarge, img.Width, img.Height, m.maxDimension)
	}

	tex, err := m.alloc.Allocate(img, format)
	if err != nil {
		return fmt.Errorf("texture upload failed: %w", err)
	}

	if m.current != nil {
		m.current.Release()
	}
	m.current = tex
	m.width = img.Width
	m.height = img.Height

	logging.Logger().Info("texture loaded", "size", img.String(), "bytes", img.Bytes())
	return nil
}

// Current returns the bound texture, or nil before the first successful Load
func (m *TextureManager) Current() Texture {
	return m.current
}

// Loaded reports whether an image is available to draw
func (m *TextureManager) Loaded() bool {
	return m.current != nil
}

// Size returns the dimensions of the current texture
func (m *TextureManager) Size() (int, int) {
	return m.width, m.height
}

// Aspect returns width/height of the current texture, 0 when none is loaded
func (m *TextureManager) Aspect() float32 {
	if m.current == nil || m.height == 0 {
		return 0
	}
	return float32(m.width) / float32(m.height)
}

// MaxDimension returns the largest accepted width or height
func (m *TextureManager) MaxDimension() int {
	return m.maxDimension
}

func (m *TextureManager) Release() {
	if m.current != nil {
		m.current.Release()
		m.current = nil
	}
	m.width, m.height = 0, 0
}

// gpuTexture holds GPU resources for the displayed image
type gpuTexture struct {
	texture   *wgpu.Texture
	view      *wgpu.TextureView
	bindGroup *wgpu.BindGroup
}

func (t *gpuTexture) BindGroup() *wgpu.BindGroup {
	return t.bindGroup
}

func (t *gpuTexture) Release() {
	if t.bindGroup != nil {
		t.bindGroup.Release()
	}
	if t.view != nil {
		t.view.Release()
	}
	if t.texture != nil {
		t.texture.Release()
	}
}

// gpuAllocator creates textures on a device. Every texture shares the one
// sampler.
type gpuAllocator struct {
	device  *wgpu.Device
	queue   *wgpu.Queue
	layout  *wgpu.BindGroupLayout
	sampler *wgpu.Sampler
}

func (a *gpuAllocator) Allocate(img *bitmap.Bitmap, format wgpu.TextureFormat) (Texture, error) {
	size := wgpu.Extent3D{
		Width:              uint32(img.Width),
		Height:             uint32(img.Height),
		DepthOrArrayLayers: 1,
	}

	texture, err := a.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "image_texture",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension_2D,
		Format:        format,
		Usage:         wgpu.TextureUsage_TextureBinding | wgpu.TextureUsage_CopyDst,
	})
	if err != nil {
		return nil, err
	}
	tex := &gpuTexture{texture: texture}

	err = a.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: texture, MipLevel: 0, Origin: wgpu.Origin3D{}, Aspect: wgpu.TextureAspect_All},
		img.Pix,
		&wgpu.TextureDataLayout{Offset: 0, BytesPerRow: uint32(img.Stride), RowsPerImage: uint32(img.Height)},
		&size,
	)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("%w: texture write: %v", ErrDeviceLost, err)
	}

	tex.view, err = texture.CreateView(&wgpu.TextureViewDescriptor{
		Format:          format,
		Dimension:       wgpu.TextureViewDimension_2D,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
		Aspect:          wgpu.TextureAspect_All,
	})
	if err != nil {
		tex.Release()
		return nil, err
	}

	tex.bindGroup, err = a.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "image_bind_group",
		Layout: a.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: tex.view},
			{Binding: 1, Sampler: a.sampler},
		},
	})
	if err != nil {
		tex.Release()
		return nil, err
	}
	return tex, nil
}
