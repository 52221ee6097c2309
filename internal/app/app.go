package app

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/rajveermalviya/go-webgpu/wgpu"

	"imageviewer/internal/camera"
	"imageviewer/internal/config"
	"imageviewer/internal/loader"
	"imageviewer/internal/logging"
	"imageviewer/internal/renderer"
	"imageviewer/pkg/bitmap"
)

const WindowTitle = "Image Viewer"

type App struct {
	window   *glfw.Window
	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	renderer *renderer.Renderer
	camera   *camera.Camera
	loader   *loader.Loader
	cfg      *config.Config

	// Keys currently held; GLFW delivers callbacks on the main thread
	keys     map[glfw.Key]bool
	bindings keyMap

	// path of the displayed image, status of the last failed load
	path    string
	status  string
	loading bool
	fps     int

	width, height int
}

// New creates the window, the GPU device and the renderer, and starts loading
// path if it is not empty
func New(cfg *config.Config, path string) (*App, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("GLFW init failed: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.CocoaRetinaFramebuffer, glfw.True)

	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, WindowTitle, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("window creation failed: %w", err)
	}

	app := &App{
		window: window,
		cfg:    cfg,
		keys:   make(map[glfw.Key]bool),
	}
	app.width, app.height = window.GetFramebufferSize()

	app.bindings, err = newKeyMap(cfg.Keys, cfg.Actions)
	if err != nil {
		logging.Logger().Warn("ignoring key bindings", "err", err)
	}

	if err := app.initWebGPU(); err != nil {
		app.Cleanup()
		return nil, err
	}

	app.camera = camera.NewCamera(app.width, app.height, camera.OptionsFromConfig(cfg.View))

	if err := app.initRenderer(); err != nil {
		app.Cleanup()
		return nil, err
	}
	app.loader = loader.New(loader.DecodeLimit(app.renderer.MaxTextureDimension()))

	app.setupCallbacks()

	if path != "" {
		app.Open(path)
	}
	app.updateTitle()

	return app, nil
}

func (app *App) initWebGPU() error {
	app.instance = wgpu.CreateInstance(&wgpu.InstanceDescriptor{
		Backends: instanceBackends,
	})
	if app.instance == nil {
		return fmt.Errorf("failed to create WebGPU instance")
	}

	app.surface = CreateSurface(app.instance, app.window)
	if app.surface == nil {
		return fmt.Errorf("surface creation failed")
	}

	return app.initDevice()
}

// initDevice requests an adapter and a device for the existing surface
func (app *App) initDevice() error {
	// Request adapter - try with surface first, then without
	var err error
	app.adapter, err = app.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface:    app.surface,
		PowerPreference:      wgpu.PowerPreference_HighPerformance,
		ForceFallbackAdapter: false,
	})
	if err != nil {
		logging.Logger().Warn("trying adapter without surface constraint", "err", err)
		app.adapter, err = app.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
			PowerPreference: wgpu.PowerPreference_HighPerformance,
		})
		if err != nil {
			return fmt.Errorf("adapter request failed: %w", err)
		}
	}

	props := app.adapter.GetProperties()
	logging.Logger().Info("gpu adapter", "name", props.Name, "driver", props.DriverDescription)

	app.device, err = app.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "ImageViewerDevice",
	})
	if err != nil {
		return fmt.Errorf("device request failed: %w", err)
	}

	app.queue = app.device.GetQueue()
	return nil
}

func (app *App) initRenderer() error {
	var err error
	app.renderer, err = renderer.NewRenderer(app.adapter, app.device, app.queue, app.surface,
		uint32(app.width), uint32(app.height), renderer.OptionsFromConfig(app.cfg.Rendering))
	if err != nil {
		return fmt.Errorf("renderer creation failed: %w", err)
	}
	return nil
}

// releaseDevice frees everything created from the device, keeping the
// window, instance and surface
func (app *App) releaseDevice() {
	if app.renderer != nil {
		app.renderer.Release()
		app.renderer = nil
	}
	if app.queue != nil {
		app.queue.Release()
		app.queue = nil
	}
	if app.device != nil {
		app.device.Release()
		app.device = nil
	}
	if app.adapter != nil {
		app.adapter.Release()
		app.adapter = nil
	}
}

// recoverDevice rebuilds the device and the pipeline after a device loss and
// reloads the displayed image
func (app *App) recoverDevice() error {
	logging.Logger().Error("gpu device lost, reinitializing")
	app.releaseDevice()

	if err := app.initDevice(); err != nil {
		return err
	}
	if err := app.initRenderer(); err != nil {
		return err
	}
	if app.path != "" {
		app.Open(app.path)
	}
	return nil
}

// Open starts loading path in the background. A load already in flight is
// superseded.
func (app *App) Open(path string) {
	gen := app.loader.Request(path)
	app.loading = true
	logging.Logger().Info("loading image", "path", path, "generation", gen)
	app.updateTitle()
}

func (app *App) setupCallbacks() {
	app.window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		app.width = width
		app.height = height
		app.camera.SetViewport(width, height)
		if app.renderer != nil {
			app.renderer.Resize(uint32(width), uint32(height))
		}
	})

	app.window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button == glfw.MouseButtonLeft {
			x, y := w.GetCursorPos()
			if action == glfw.Press {
				app.camera.StartDrag(x, y)
			} else if action == glfw.Release {
				app.camera.EndDrag()
			}
		}
	})

	app.window.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		if app.camera.IsDragging() {
			app.camera.Drag(x, y)
		}
	})

	app.window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		app.camera.ZoomBy(yoff)
	})

	app.window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Press {
			app.keys[key] = true
		} else if action == glfw.Release {
			app.keys[key] = false
		}

		if action != glfw.Press && action != glfw.Repeat {
			return
		}
		b, ok := app.bindings[key]
		if !ok {
			return
		}
		switch b.command {
		case commandQuit:
			w.SetShouldClose(true)
		case commandZoomIn:
			app.camera.ZoomIn()
		case commandZoomOut:
			app.camera.ZoomOut()
		case commandReset:
			app.camera.Reset()
		case commandAction:
			if action == glfw.Press {
				app.runAction(b.line)
			}
		}
	})

	app.window.SetDropCallback(func(w *glfw.Window, names []string) {
		if len(names) > 0 {
			app.Open(names[0])
		}
	})
}

// runAction starts a configured command on the displayed image
func (app *App) runAction(line string) {
	if err := runCommand(line, app.path); err != nil {
		app.status = err.Error()
		logging.Logger().Warn("action failed", "command", line, "err", err)
		app.updateTitle()
	}
}

// processInput pans for the arrow and WASD keys held during the last frame
func (app *App) processInput(dt time.Duration) {
	var dirX, dirY float32

	if app.keys[glfw.KeyW] || app.keys[glfw.KeyUp] {
		dirY--
	}
	if app.keys[glfw.KeyS] || app.keys[glfw.KeyDown] {
		dirY++
	}
	if app.keys[glfw.KeyA] || app.keys[glfw.KeyLeft] {
		dirX--
	}
	if app.keys[glfw.KeyD] || app.keys[glfw.KeyRight] {
		dirX++
	}

	if dirX != 0 || dirY != 0 {
		app.camera.PanHeld(dirX, dirY, dt)
	}
}

// imageSink receives decoded images; *renderer.Renderer in the app
type imageSink interface {
	LoadImage(img *bitmap.Bitmap) error
}

// bindResult hands a finished load to sink and returns the status to show.
// Only a device loss is returned as an error; other failures keep the current
// image and show up in the title.
func bindResult(sink imageSink, res loader.Result) (string, error) {
	if res.Err != nil {
		logging.Logger().Warn("image load failed", "path", res.Path, "err", res.Err)
		return res.Err.Error(), nil
	}
	if err := sink.LoadImage(res.Image); err != nil {
		logging.Logger().Warn("texture upload failed", "path", res.Path, "err", err)
		if renderer.IsDeviceLost(err) {
			return err.Error(), err
		}
		return err.Error(), nil
	}
	return "", nil
}

// pollLoader binds a finished load, if any. A device loss during the upload is
// returned so Run can recover; the new path is kept so recovery reloads it.
func (app *App) pollLoader() error {
	res, ok := app.loader.Poll()
	if !ok {
		return nil
	}
	app.loading = false
	defer app.updateTitle()

	status, err := bindResult(app.renderer, res)
	app.status = status
	if status != "" && err == nil {
		return nil
	}

	if res.Path != app.path {
		app.camera.Reset()
	}
	app.path = res.Path
	if err != nil {
		return err
	}
	logging.Logger().Info("image loaded", "path", res.Path, "size", res.Image.String(), "elapsed", res.Elapsed)
	return nil
}

// clampPan applies the optional pan limit once an image is shown
func (app *App) clampPan() {
	if app.renderer.HasImage() {
		app.camera.ClampPan()
	}
}

func (app *App) updateTitle() {
	app.window.SetTitle(formatTitle(app.path, app.camera.State.Zoom, app.fps, app.loading, app.status))
}

func formatTitle(path string, zoom float32, fps int, loading bool, status string) string {
	title := WindowTitle
	if path != "" {
		title += " - " + filepath.Base(path)
	}
	title += fmt.Sprintf(" | Zoom: %.2fx | FPS: %d", zoom, fps)
	if loading {
		title += " | Loading..."
	}
	if status != "" {
		title += " | Error: " + status
	}
	return title
}

// handleGPUError rebuilds the device after a loss and returns any other error
func (app *App) handleGPUError(err error) error {
	if !renderer.IsDeviceLost(err) {
		return err
	}
	if err := app.recoverDevice(); err != nil {
		return fmt.Errorf("device recovery failed: %w", err)
	}
	return nil
}

func (app *App) Run() error {
	lastTime := time.Now()
	lastFrame := lastTime
	frames := 0

	for !app.window.ShouldClose() {
		glfw.PollEvents()

		now := time.Now()
		app.processInput(now.Sub(lastFrame))
		lastFrame = now

		if err := app.pollLoader(); err != nil {
			if err := app.handleGPUError(err); err != nil {
				return err
			}
			continue
		}
		app.clampPan()

		if err := app.renderer.Render(app.camera.State); err != nil {
			if err := app.handleGPUError(err); err != nil {
				return err
			}
			continue
		}

		frames++
		if time.Since(lastTime) >= time.Second {
			app.fps = frames
			app.updateTitle()
			frames = 0
			lastTime = time.Now()
		}
	}

	return nil
}

func (app *App) Cleanup() {
	if app.loader != nil {
		app.loader.Close()
	}
	app.releaseDevice()
	if app.surface != nil {
		app.surface.Release()
	}
	if app.instance != nil {
		app.instance.Release()
	}
	if app.window != nil {
		app.window.Destroy()
	}
	glfw.Terminate()
}
