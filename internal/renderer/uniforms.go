package renderer

import (
	"fmt"
	"unsafe"

	"github.com/rajveermalviya/go-webgpu/wgpu"

	"imageviewer/internal/camera"
	"imageviewer/internal/logging"
	"imageviewer/internal/transform"
)

// Uniforms matches the shader's Uniforms struct field for field. The five
// floats sit at byte offsets 0, 4, 8, 12 and 16; the trailing padding rounds
// the buffer up to 32 bytes so its size is a multiple of 16.
type Uniforms struct {
	ImageAspect  float32
	WindowAspect float32
	Zoom         float32
	PanX         float32
	PanY         float32
	_            [3]float32
}

// UniformSize is the byte size of the uniform buffer
const UniformSize = uint64(unsafe.Sizeof(Uniforms{}))

// Bytes returns the little-endian buffer contents
func (u Uniforms) Bytes() []byte {
	return wgpu.ToBytes([]Uniforms{u})
}

// bufferWriter is the part of *wgpu.Queue the uniform buffer needs
type bufferWriter interface {
	WriteBuffer(buffer *wgpu.Buffer, bufferOffset uint64, data []byte) error
}

// UniformBuffer keeps the host copy of the uniform block and uploads it when
// it changes
type UniformBuffer struct {
	writer    bufferWriter
	buffer    *wgpu.Buffer
	bindGroup *wgpu.BindGroup

	data     Uniforms
	dirty    bool
	uploaded bool
	uploads  int
}

func newUniformBuffer(writer bufferWriter, buffer *wgpu.Buffer, bindGroup *wgpu.BindGroup) *UniformBuffer {
	return &UniformBuffer{
		writer:    writer,
		buffer:    buffer,
		bindGroup: bindGroup,
	}
}

// createUniformBuffer allocates the GPU buffer and its group 1 bind group
func createUniformBuffer(device *wgpu.Device, queue *wgpu.Queue, layout *wgpu.BindGroupLayout) (*UniformBuffer, error) {
	buffer, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "uniform_buffer",
		Size:  UniformSize,
		Usage: wgpu.BufferUsage_Uniform | wgpu.BufferUsage_CopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("uniform buffer creation failed: %w", err)
	}

	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "uniform_bind_group",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buffer, Size: UniformSize},
		},
	})
	if err != nil {
		buffer.Release()
		return nil, fmt.Errorf("uniform bind group creation failed: %w", err)
	}

	return newUniformBuffer(queue, buffer, bindGroup), nil
}

// Update recomputes every field from the view state and the current aspects.
// The buffer is marked dirty only if something changed.
func (u *UniformBuffer) Update(state camera.ViewState, imageAspect, windowAspect float32) {
	next := Uniforms{
		ImageAspect:  imageAspect,
		WindowAspect: windowAspect,
		Zoom:         transform.ClampZoom(state.Zoom),
		PanX:         state.PanX,
		PanY:         state.PanY,
	}
	if u.uploaded && next == u.data {
		return
	}
	u.data = next
	u.dirty = true
}

// Flush uploads the block if it is dirty. Calling it again without an
// intervening change does nothing.
func (u *UniformBuffer) Flush() error {
	if !u.dirty {
		return nil
	}
	if err := u.writer.WriteBuffer(u.buffer, 0, u.data.Bytes()); err != nil {
		return fmt.Errorf("%w: uniform upload: %v", ErrDeviceLost, err)
	}
	u.dirty = false
	u.uploaded = true
	u.uploads++
	logging.Logger().Debug("uniforms uploaded", "zoom", u.data.Zoom, "pan_x", u.data.PanX, "pan_y", u.data.PanY)
	return nil
}

// Uniforms returns the host copy of the block
func (u *UniformBuffer) Uniforms() Uniforms {
	return u.data
}

// Uploads returns how many times the block has been written to the GPU
func (u *UniformBuffer) Uploads() int {
	return u.uploads
}

// Dirty reports whether an upload is pending
func (u *UniformBuffer) Dirty() bool {
	return u.dirty
}

// BindGroup returns the group 1 bind group
func (u *UniformBuffer) BindGroup() *wgpu.BindGroup {
	return u.bindGroup
}

func (u *UniformBuffer) Release() {
	if u.bindGroup != nil {
		u.bindGroup.Release()
		u.bindGroup = nil
	}
	if u.buffer != nil {
		u.buffer.Release()
		u.buffer = nil
	}
}
