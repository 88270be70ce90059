package platform

import (
	"runtime"
	"unsafe"

	vk "github.com/Eiton/vulkan"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/reverie/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type Platform struct {
	Window *glfw.Window
}

func New() (*Platform, error) {
	return &Platform{
		Window: nil,
	}, nil
}

func (p *Platform) Startup(applicationName string, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}
	if !glfw.VulkanSupported() {
		core.LogError("glfw reports no Vulkan loader available")
		return core.ErrInitFailure
	}

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(keyCallback)
	p.Window.SetFramebufferSizeCallback(framebufferSizeCallback)

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages drains the window-system queue. Lane 0 only.
func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}

func (p *Platform) ShouldClose() bool {
	return p.Window != nil && p.Window.ShouldClose()
}

// CreateSurface wraps glfw's surface creation for the given instance.
func (p *Platform) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surfacePtr, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		core.LogError("failed to create window surface: %s", err)
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(surfacePtr), nil
}

// FramebufferExtent returns the current framebuffer size in pixels.
func (p *Platform) FramebufferExtent() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

// WaitForNonZeroFramebuffer blocks while the window is minimized. The
// swapchain cannot be recreated against a zero-area surface.
func (p *Platform) WaitForNonZeroFramebuffer() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	for (w == 0 || h == 0) && !p.Window.ShouldClose() {
		glfw.WaitEvents()
		w, h = p.Window.GetFramebufferSize()
	}
	return uint32(w), uint32(h)
}

// RequiredInstanceExtensions returns the surface extensions the window
// system needs on the Vulkan instance.
func (p *Platform) RequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// VulkanProcAddr exposes the loader entry point for vk.SetGetInstanceProcAddr.
func VulkanProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	switch action {
	case glfw.Press:
		core.InputProcessKey(core.KeyCode(key), true)
	case glfw.Release:
		core.InputProcessKey(core.KeyCode(key), false)
	}
}

func framebufferSizeCallback(w *glfw.Window, width, height int) {
	ctx := core.EventContext{}
	ctx.Data.U32[0] = uint32(width)
	ctx.Data.U32[1] = uint32(height)
	core.EventFire(core.EVENT_CODE_RESIZED, nil, ctx)
}
