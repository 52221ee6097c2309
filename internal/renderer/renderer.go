package renderer

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/rajveermalviya/go-webgpu/wgpu"

	"imageviewer/internal/camera"
	"imageviewer/internal/config"
	"imageviewer/internal/logging"
	"imageviewer/internal/transform"
	"imageviewer/pkg/bitmap"
)

// Vertex represents a vertex with position and texture coordinates
type Vertex struct {
	Position  [3]float32
	TexCoords [2]float32
}

// quadVertices covers NDC [-1,1] with texture (0,0) at the top-left corner
var quadVertices = []Vertex{
	{Position: [3]float32{-1, 1, 0}, TexCoords: [2]float32{0, 0}},
	{Position: [3]float32{-1, -1, 0}, TexCoords: [2]float32{0, 1}},
	{Position: [3]float32{1, -1, 0}, TexCoords: [2]float32{1, 1}},
	{Position: [3]float32{1, 1, 0}, TexCoords: [2]float32{1, 0}},
}

var quadIndices = []uint16{0, 1, 2, 2, 3, 0}

// Options holds the configurable parts of the pipeline
type Options struct {
	Background  wgpu.Color
	Filter      wgpu.FilterMode
	PresentMode wgpu.PresentMode
}

// DefaultOptions matches config.DefaultConfig
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig().Rendering)
}

// OptionsFromConfig converts the [rendering] section
func OptionsFromConfig(c config.Rendering) Options {
	opts := Options{
		Background: wgpu.Color{
			R: c.Background[0],
			G: c.Background[1],
			B: c.Background[2],
			A: c.Background[3],
		},
		Filter:      wgpu.FilterMode_Linear,
		PresentMode: wgpu.PresentMode_Fifo,
	}
	if c.Filter == "nearest" {
		opts.Filter = wgpu.FilterMode_Nearest
	}
	switch c.PresentMode {
	case "mailbox":
		opts.PresentMode = wgpu.PresentMode_Mailbox
	case "immediate":
		opts.PresentMode = wgpu.PresentMode_Immediate
	}
	return opts
}

// passRecorder is the subset of a render pass the renderer records into
type passRecorder interface {
	SetPipeline(pipeline *wgpu.RenderPipeline)
	SetBindGroup(index uint32, group *wgpu.BindGroup)
	SetVertexBuffer(buffer *wgpu.Buffer)
	SetIndexBuffer(buffer *wgpu.Buffer)
	DrawIndexed(indexCount uint32)
}

type wgpuPass struct {
	pass *wgpu.RenderPassEncoder
}

func (p wgpuPass) SetPipeline(pipeline *wgpu.RenderPipeline) {
	p.pass.SetPipeline(pipeline)
}

func (p wgpuPass) SetBindGroup(index uint32, group *wgpu.BindGroup) {
	p.pass.SetBindGroup(index, group, nil)
}

func (p wgpuPass) SetVertexBuffer(buffer *wgpu.Buffer) {
	p.pass.SetVertexBuffer(0, buffer, 0, wgpu.WholeSize)
}

func (p wgpuPass) SetIndexBuffer(buffer *wgpu.Buffer) {
	p.pass.SetIndexBuffer(buffer, wgpu.IndexFormat_Uint16, 0, wgpu.WholeSize)
}

func (p wgpuPass) DrawIndexed(indexCount uint32) {
	p.pass.DrawIndexed(indexCount, 1, 0, 0, 0)
}

// Renderer handles all WebGPU rendering
type Renderer struct {
	device          *wgpu.Device
	queue           *wgpu.Queue
	surface         *wgpu.Surface
	adapter         *wgpu.Adapter
	swapChain       *wgpu.SwapChain
	swapChainFormat wgpu.TextureFormat
	pipeline        *wgpu.RenderPipeline
	sampler         *wgpu.Sampler
	textureLayout   *wgpu.BindGroupLayout
	uniformLayout   *wgpu.BindGroupLayout
	vertexBuffer    *wgpu.Buffer
	indexBuffer     *wgpu.Buffer

	textures *TextureManager
	uniforms *UniformBuffer

	opts   Options
	width  uint32
	height uint32
}

// NewRenderer creates a new WebGPU renderer
func NewRenderer(adapter *wgpu.Adapter, device *wgpu.Device, queue *wgpu.Queue, surface *wgpu.Surface, width, height uint32, opts Options) (*Renderer, error) {
	r := &Renderer{
		adapter: adapter,
		device:  device,
		queue:   queue,
		surface: surface,
		width:   width,
		height:  height,
		opts:    opts,
	}

	if err := r.init(); err != nil {
		r.Release()
		return nil, err
	}

	return r, nil
}

func (r *Renderer) init() error {
	r.swapChainFormat = r.surface.GetPreferredFormat(r.adapter)

	var err error
	r.swapChain, err = r.createSwapChain(r.width, r.height)
	if err != nil {
		return fmt.Errorf("swap chain creation failed: %w", err)
	}

	shader, err := r.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "image_shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: ImageShader},
	})
	if err != nil {
		return fmt.Errorf("shader creation failed: %w", err)
	}
	defer shader.Release()

	r.sampler, err = r.device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:   wgpu.AddressMode_ClampToEdge,
		AddressModeV:   wgpu.AddressMode_ClampToEdge,
		AddressModeW:   wgpu.AddressMode_ClampToEdge,
		MagFilter:      r.opts.Filter,
		MinFilter:      r.opts.Filter,
		MipmapFilter:   wgpu.MipmapFilterMode_Nearest,
		MaxAnisotrophy: 1,
	})
	if err != nil {
		return fmt.Errorf("sampler creation failed: %w", err)
	}

	// Group 0: image texture and sampler
	r.textureLayout, err = r.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "texture_bind_group_layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStage_Fragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleType_Float,
					ViewDimension: wgpu.TextureViewDimension_2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStage_Fragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingType_Filtering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("texture bind group layout creation failed: %w", err)
	}

	// Group 1: uniform block
	r.uniformLayout, err = r.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "uniform_bind_group_layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStage_Vertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingType_Uniform,
					MinBindingSize: UniformSize,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("uniform bind group layout creation failed: %w", err)
	}

	pipelineLayout, err := r.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "image_pipeline_layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{r.textureLayout, r.uniformLayout},
	})
	if err != nil {
		return fmt.Errorf("pipeline layout creation failed: %w", err)
	}
	defer pipelineLayout.Release()

	r.pipeline, err = r.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "image_pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{vertexLayout()},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    r.swapChainFormat,
				Blend:     &wgpu.BlendState_AlphaBlending,
				WriteMask: wgpu.ColorWriteMask_All,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopology_TriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("pipeline creation failed: %w", err)
	}

	r.vertexBuffer, err = r.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "quad_vertex_buffer",
		Contents: wgpu.ToBytes(quadVertices),
		Usage:    wgpu.BufferUsage_Vertex,
	})
	if err != nil {
		return fmt.Errorf("vertex buffer creation failed: %w", err)
	}

	r.indexBuffer, err = r.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "quad_index_buffer",
		Contents: wgpu.ToBytes(quadIndices),
		Usage:    wgpu.BufferUsage_Index,
	})
	if err != nil {
		return fmt.Errorf("index buffer creation failed: %w", err)
	}

	r.uniforms, err = createUniformBuffer(r.device, r.queue, r.uniformLayout)
	if err != nil {
		return err
	}

	limits := r.device.GetLimits()
	r.textures = newTextureManager(&gpuAllocator{
		device:  r.device,
		queue:   r.queue,
		layout:  r.textureLayout,
		sampler: r.sampler,
	}, limits.Limits.MaxTextureDimension2D)

	logging.Logger().Info("renderer ready",
		"format", r.swapChainFormat,
		"max_texture", r.textures.MaxDimension(),
		"width", r.width, "height", r.height)
	return nil
}

// vertexLayout describes Vertex: position at location 0, tex coords at 1
func vertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: uint64(unsafe.Sizeof(Vertex{})),
		StepMode:    wgpu.VertexStepMode_Vertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormat_Float32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormat_Float32x2, Offset: uint64(unsafe.Offsetof(Vertex{}.TexCoords)), ShaderLocation: 1},
		},
	}
}

func (r *Renderer) createSwapChain(width, height uint32) (*wgpu.SwapChain, error) {
	return r.device.CreateSwapChain(r.surface, &wgpu.SwapChainDescriptor{
		Usage:       wgpu.TextureUsage_RenderAttachment,
		Format:      r.swapChainFormat,
		Width:       width,
		Height:      height,
		PresentMode: r.opts.PresentMode,
	})
}

// LoadImage replaces the displayed image. On error the previous image stays.
func (r *Renderer) LoadImage(img *bitmap.Bitmap) error {
	return r.textures.Load(img)
}

// HasImage reports whether an image has been loaded
func (r *Renderer) HasImage() bool {
	return r.textures != nil && r.textures.Loaded()
}

// ImageSize returns the dimensions of the displayed image
func (r *Renderer) ImageSize() (int, int) {
	return r.textures.Size()
}

// MaxTextureDimension returns the largest width or height the device accepts
func (r *Renderer) MaxTextureDimension() int {
	return r.textures.MaxDimension()
}

// prepare runs the per-frame state up to the draw call: it reports false when
// there is nothing to draw and uploads the uniforms otherwise.
func (r *Renderer) prepare(state camera.ViewState) (bool, error) {
	if !r.textures.Loaded() {
		return false, nil
	}

	imageAspect := r.textures.Aspect()
	windowAspect, err := transform.Aspect(int(r.width), int(r.height))
	if err == nil {
		_, err = transform.Compute(transform.Params{
			ImageAspect:  imageAspect,
			WindowAspect: windowAspect,
			Zoom:         state.Zoom,
			PanX:         state.PanX,
			PanY:         state.PanY,
		})
	}
	if err != nil {
		logging.Logger().Debug("skipping draw", "err", err)
		return false, nil
	}

	r.uniforms.Update(state, imageAspect, windowAspect)
	if err := r.uniforms.Flush(); err != nil {
		return false, err
	}
	return true, nil
}

// record binds the current state and issues the single quad draw
func (r *Renderer) record(pass passRecorder) {
	pass.SetPipeline(r.pipeline)
	pass.SetBindGroup(0, r.textures.Current().BindGroup())
	pass.SetBindGroup(1, r.uniforms.BindGroup())
	pass.SetVertexBuffer(r.vertexBuffer)
	pass.SetIndexBuffer(r.indexBuffer)
	pass.DrawIndexed(uint32(len(quadIndices)))
}

// Render draws one frame. Without an image, or when the window has no area,
// the frame is only cleared to the background color. Errors wrapping
// ErrDeviceLost mean the renderer must be recreated.
func (r *Renderer) Render(state camera.ViewState) error {
	draw, err := r.prepare(state)
	if err != nil {
		return err
	}
	if r.swapChain == nil || r.width == 0 || r.height == 0 {
		return nil
	}

	view, err := r.swapChain.GetCurrentTextureView()
	if err != nil {
		// Outdated or lost surface, typically mid-resize; try again next frame.
		logging.Logger().Debug("no swap chain texture", "err", err)
		return nil
	}
	defer view.Release()

	encoder, err := r.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{})
	if err != nil {
		return fmt.Errorf("%w: command encoder: %v", ErrDeviceLost, err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOp_Clear,
			StoreOp:    wgpu.StoreOp_Store,
			ClearValue: r.opts.Background,
		}},
	})
	if draw {
		r.record(wgpuPass{pass: pass})
	}
	pass.End()

	cmdBuffer, err := encoder.Finish(&wgpu.CommandBufferDescriptor{})
	if err != nil {
		return fmt.Errorf("%w: command buffer: %v", ErrDeviceLost, err)
	}
	defer cmdBuffer.Release()

	r.queue.Submit(cmdBuffer)
	r.swapChain.Present()

	return nil
}

// Resize handles window resize. A zero size (minimized window) is recorded so
// frames are skipped, and the old swap chain is kept until the window has an
// area again.
func (r *Renderer) Resize(width, height uint32) {
	r.width = width
	r.height = height
	if width == 0 || height == 0 {
		return
	}

	if r.swapChain != nil {
		r.swapChain.Release()
	}

	var err error
	r.swapChain, err = r.createSwapChain(width, height)
	if err != nil {
		logging.Logger().Error("failed to recreate swap chain", "err", err)
	}
}

// IsDeviceLost reports whether err requires recreating the renderer
func IsDeviceLost(err error) bool {
	return errors.Is(err, ErrDeviceLost)
}

// Release frees all GPU resources
func (r *Renderer) Release() {
	if r.textures != nil {
		r.textures.Release()
	}
	if r.uniforms != nil {
		r.uniforms.Release()
	}
	if r.indexBuffer != nil {
		r.indexBuffer.Release()
	}
	if r.vertexBuffer != nil {
		r.vertexBuffer.Release()
	}
	if r.pipeline != nil {
		r.pipeline.Release()
	}
	if r.uniformLayout != nil {
		r.uniformLayout.Release()
	}
	if r.textureLayout != nil {
		r.textureLayout.Release()
	}
	if r.sampler != nil {
		r.sampler.Release()
	}
	if r.swapChain != nil {
		r.swapChain.Release()
	}
}
