package engine

import (
	"sync/atomic"
	"time"

	mgl "github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/reverie/engine/core"
	"github.com/spaghettifunk/reverie/engine/export"
	"github.com/spaghettifunk/reverie/engine/math"
	"github.com/spaghettifunk/reverie/engine/mesh"
	"github.com/spaghettifunk/reverie/engine/module"
	"github.com/spaghettifunk/reverie/engine/platform"
	"github.com/spaghettifunk/reverie/engine/renderer/metadata"
	"github.com/spaghettifunk/reverie/engine/renderer/vulkan"
)

const headlessDelta = 1.0 / 60.0

// Engine wires the platform, the renderer, the mesh table and the
// game module together and owns the main loop.
type Engine struct {
	config ApplicationConfig

	appArena       *core.Arena
	frameArena     *core.Arena
	swapchainArena *core.Arena

	platform *platform.Platform
	renderer *vulkan.VulkanRenderer
	meshes   *mesh.Table
	commands *metadata.FrameCommands
	camera   metadata.Camera
	api      *module.API
	host     *module.Host

	lanes *core.Lanes
	clock *core.Clock

	quit atomic.Bool

	capturer *export.Capturer
}

func New(config ApplicationConfig) (*Engine, error) {
	appArena, err := core.NewArena(8 << 20)
	if err != nil {
		return nil, err
	}
	frameArena, err := core.NewArena(4 << 20)
	if err != nil {
		return nil, err
	}
	swapchainArena, err := core.NewArena(1 << 20)
	if err != nil {
		return nil, err
	}

	p, err := platform.New()
	if err != nil {
		return nil, err
	}

	return &Engine{
		config:         config,
		appArena:       appArena,
		frameArena:     frameArena,
		swapchainArena: swapchainArena,
		platform:       p,
		renderer:       vulkan.New(p, swapchainArena, config.ShaderDir, config.Validation),
		commands:       &metadata.FrameCommands{},
		camera:         metadata.Camera{Eye: mgl.Vec3{0, 2, 6}},
		lanes:          core.NewLanes(core.MaxLanes),
		clock:          core.NewClock(),
	}, nil
}

// Initialize brings every subsystem up in dependency order. On error
// the caller still runs Shutdown; every teardown checks its own state.
func (e *Engine) Initialize() error {
	core.InputInitialize()
	core.EventInitialize()
	core.MetricsInitialize()

	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)

	if err := e.platform.Startup(e.config.Name, e.config.Width, e.config.Height); err != nil {
		return err
	}

	e.renderer.Context.PreferMailbox = e.config.Mailbox
	if err := e.renderer.Initialize(e.config.Name, e.config.Width, e.config.Height); err != nil {
		return err
	}

	meshes, err := mesh.NewTable(e.renderer.Context)
	if err != nil {
		return err
	}
	e.meshes = meshes

	e.api = module.NewAPI(e.commands, &e.camera, e.meshes)
	e.host = module.NewHost(e.config.GameDir, e.api, e.appArena)
	if err := e.host.Load(e.frameArena); err != nil {
		return err
	}

	if e.config.Headless {
		capturer, err := export.NewCapturer(e.renderer.Context,
			e.renderer.Context.Swapchain.Extent, e.config.OutputDir)
		if err != nil {
			return err
		}
		e.capturer = capturer
	}

	core.LogInfo("Engine initialized.")
	return nil
}

// Run drives the main loop until the window closes or a fatal error
// sets the quit flag. In headless mode the loop is single-threaded
// and exits after the configured frame count.
func (e *Engine) Run() error {
	e.clock.Start()

	if e.config.Headless {
		return e.runHeadless()
	}

	// Lane 0 runs on the calling goroutine, which holds the locked main
	// thread the window and Vulkan calls require.
	e.lanes.Run(e.laneMain)
	core.LogInfo("Engine loop exited after %d frames.", e.renderer.FrameNumber)
	return nil
}

// laneMain is the shared loop body every lane executes. Only lane 0
// touches Vulkan, the window or the module; the other lanes barrier
// through the phases. The quit flag is read after the last barrier so
// no lane is left blocked in Sync.
func (e *Engine) laneMain(lane int) {
	for {
		if lane == 0 {
			e.updatePhase()
		}
		e.lanes.Sync()

		if lane == 0 {
			e.renderPhase()
		}
		e.lanes.Sync()

		if e.quit.Load() {
			return
		}
	}
}

func (e *Engine) updatePhase() {
	e.frameArena.Reset()
	e.clock.Update()
	dt := e.clock.Delta()

	e.platform.PumpMessages()
	if e.platform.ShouldClose() {
		e.quit.Store(true)
		return
	}

	e.host.CheckReload(e.frameArena, func() {
		vulkan.DeviceWaitIdle(e.renderer.Context)
	})

	e.commands.Reset()
	e.host.Update(dt)
	if e.commands.QuadOverflowed() {
		core.LogWarn("quad list overflowed %d, extra quads dropped this frame", metadata.MaxQuads)
	}

	core.MetricsUpdate(dt)
	if core.MetricsSecondElapsed() {
		core.LogDebug("%.1f fps, %.2f ms", core.MetricsFPS(), core.MetricsFrameTime())
	}
}

func (e *Engine) renderPhase() {
	if e.quit.Load() {
		return
	}
	if err := e.drawFrame(nil); err != nil {
		e.quit.Store(true)
	}
}

func (e *Engine) drawFrame(capture *vulkan.FrameCapture) error {
	extent := e.renderer.Context.Swapchain.Extent
	sub := &vulkan.FrameSubmission{
		Commands:   e.commands,
		Meshes:     e.meshes.Slots(),
		View:       math.LookAt(e.camera.Eye, e.camera.Target),
		Projection: math.PerspectiveForExtent(extent.Width, extent.Height),
		Capture:    capture,
	}
	err := e.renderer.DrawFrame(sub)
	switch err {
	case nil, core.ErrSwapchainOutOfDate:
		return nil
	default:
		core.LogError("frame failed: %s", err)
		return err
	}
}

func (e *Engine) runHeadless() error {
	core.LogInfo("Headless export of %d frames to %s.", e.config.Frames, e.config.OutputDir)
	start := time.Now()
	for frame := 0; frame < e.config.Frames; frame++ {
		e.frameArena.Reset()
		e.commands.Reset()
		e.host.Update(headlessDelta)

		if err := e.drawFrame(e.capturer.Hook()); err != nil {
			return err
		}
	}
	core.LogInfo("Exported %d frames in %s.", e.config.Frames, time.Since(start).Round(time.Millisecond))
	return nil
}

// Shutdown tears everything down in reverse bring-up order.
func (e *Engine) Shutdown() {
	if e.renderer != nil && e.renderer.Context != nil && e.renderer.Context.Device != nil &&
		e.renderer.Context.Device.LogicalDevice != nil {
		vulkan.DeviceWaitIdle(e.renderer.Context)
	}
	if e.host != nil {
		e.host.Shutdown()
		e.host = nil
	}
	if e.capturer != nil {
		e.capturer.Destroy()
		e.capturer = nil
	}
	if e.meshes != nil {
		e.meshes.Destroy()
		e.meshes = nil
	}
	if e.renderer != nil {
		e.renderer.Shutdown()
		e.renderer = nil
	}
	if e.platform != nil {
		e.platform.Shutdown()
		e.platform = nil
	}
	core.EventShutdown()
	core.InputShutdown()
	core.LogInfo("Engine shut down.")
}

// RequestQuit asks the loop to exit at the next barrier.
func (e *Engine) RequestQuit() {
	e.quit.Store(true)
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	width := data.Data.U32[0]
	height := data.Data.U32[1]
	e.renderer.Resized(width, height)
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if core.KeyCode(data.Data.U16[0]) == core.KEY_ESCAPE {
		e.quit.Store(true)
		return true
	}
	return false
}
