package platform

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform is the SURFACE module: a GLFW window the renderer presents to.
type Platform struct {
	Window *glfw.Window

	events *core.EventBus

	mu       sync.Mutex
	onResize func(width, height uint32)
}

// New initializes GLFW so the Vulkan loader can be queried before the window exists.
func New() (*Platform, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize glfw")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, errors.New("glfw: vulkan is not supported on this system")
	}
	return &Platform{}, nil
}

// VulkanProcAddr returns vkGetInstanceProcAddr as resolved by GLFW.
func (p *Platform) VulkanProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (p *Platform) Name() string {
	return "platform"
}

func (p *Platform) Type() engine.ModuleType {
	return engine.ModuleTypeSurface
}

func (p *Platform) Initialize(ctx *engine.Context) error {
	app := ctx.Config.Application

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(app.Width), int(app.Height), app.Name, nil, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create window")
	}
	p.Window = window
	p.events = ctx.Events

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetCloseCallback(p.closeCallback)
	p.Window.SetPos(int(app.X), int(app.Y))
	p.Window.Show()

	core.LogInfo("Window created: %dx%d.", app.Width, app.Height)
	return nil
}

func (p *Platform) Tick(ctx *engine.Context) error {
	glfw.PollEvents()
	return nil
}

func (p *Platform) Terminate(ctx *engine.Context) error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

func (p *Platform) FramebufferSize() (uint32, uint32) {
	if p.Window == nil {
		return 0, 0
	}
	w, h := p.Window.GetFramebufferSize()
	if w < 0 || h < 0 {
		return 0, 0
	}
	return uint32(w), uint32(h)
}

func (p *Platform) RequiredSurfaceExtensions() []string {
	if p.Window == nil {
		return nil
	}
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) CreateNativeSurface(instance any) (uintptr, error) {
	if p.Window == nil {
		return 0, errors.AssertionFailedf("surface requested before the window exists")
	}
	vkInstance, ok := instance.(vk.Instance)
	if !ok {
		return 0, errors.AssertionFailedf("unexpected instance type %T", instance)
	}
	surface, err := p.Window.CreateWindowSurface(vkInstance, nil)
	if err != nil {
		return 0, errors.Wrap(err, "vulkan surface creation failed")
	}
	return surface, nil
}

func (p *Platform) SetResizeCallback(fn func(width, height uint32)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onResize = fn
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	if width < 0 || height < 0 {
		return
	}
	p.mu.Lock()
	fn := p.onResize
	p.mu.Unlock()
	if fn != nil {
		fn(uint32(width), uint32(height))
	}
	if p.events != nil {
		p.events.Post(p, core.EventContext{
			Code: core.EVENT_CODE_RESIZED,
			U32:  [4]uint32{uint32(width), uint32(height)},
		})
	}
}

func (p *Platform) closeCallback(w *glfw.Window) {
	if p.events != nil {
		p.events.Post(p, core.EventContext{Code: core.EVENT_CODE_APPLICATION_QUIT})
	}
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
		p.closeCallback(w)
	}
}

var _ engine.Module = (*Platform)(nil)
