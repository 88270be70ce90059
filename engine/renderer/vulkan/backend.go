package vulkan

import (
	"fmt"

	vk "github.com/Eiton/vulkan"
	"github.com/spaghettifunk/reverie/engine/core"
	"github.com/spaghettifunk/reverie/engine/platform"
	"github.com/spaghettifunk/reverie/engine/renderer/metadata"
)

// FrameSlot owns the per-frame-in-flight resources. They survive
// swapchain recreation.
type FrameSlot struct {
	QuadSSBO       *VulkanBuffer
	CommandPools   [core.MaxLanes]vk.CommandPool
	CommandBuffers [core.MaxLanes]vk.CommandBuffer
	ImageAvailable vk.Semaphore
	InFlight       *VulkanFence
}

// ImageSlot owns the per-swapchain-image resources. Rebuilt on every
// swapchain recreation.
type ImageSlot struct {
	RenderFinished vk.Semaphore
}

// VulkanRenderer is the renderer backend: context, swapchain, frame
// and image slots, both pipelines and the quad descriptors.
type VulkanRenderer struct {
	platform    *platform.Platform
	FrameNumber uint64
	Context     *VulkanContext

	Frames      [metadata.MaxFramesInFlight]FrameSlot
	ImageSlots  []ImageSlot
	Descriptors *VulkanDescriptors

	QuadPipeline *VulkanPipeline
	MeshPipeline *VulkanPipeline

	shaderDir               string
	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	// acquireSuboptimal remembers a SUBOPTIMAL_KHR from acquire so the
	// image is still consumed before the swapchain is rebuilt.
	acquireSuboptimal bool

	debug bool
}

func New(p *platform.Platform, swapchainArena *core.Arena, shaderDir string, debug bool) *VulkanRenderer {
	return &VulkanRenderer{
		platform: p,
		Context: &VulkanContext{
			Allocator:      nil,
			Device:         &VulkanDevice{GraphicsQueueIndex: -1, PresentQueueIndex: -1},
			SwapchainArena: swapchainArena,
		},
		shaderDir: shaderDir,
		debug:     debug,
	}
}

// Initialize brings the whole backend up in dependency order. Any
// failure leaves already-created handles for Shutdown to release.
func (vr *VulkanRenderer) Initialize(appName string, appWidth, appHeight uint32) error {
	procAddr := platform.VulkanProcAddr()
	if procAddr == nil {
		core.LogError("GetInstanceProcAddress is nil")
		return core.ErrInitFailure
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	vr.cachedFramebufferWidth = appWidth
	vr.cachedFramebufferHeight = appHeight
	vr.Context.FramebufferWidth = appWidth
	vr.Context.FramebufferHeight = appHeight

	if err := InstanceCreate(vr.Context, appName, vr.platform.RequiredInstanceExtensions(), vr.debug); err != nil {
		return err
	}

	surface, err := vr.platform.CreateSurface(vr.Context.Instance)
	if err != nil {
		return err
	}
	vr.Context.Surface = surface

	if err := DeviceCreate(vr.Context); err != nil {
		return err
	}

	swapchain, err := SwapchainCreate(vr.Context, vr.Context.FramebufferWidth, vr.Context.FramebufferHeight)
	if err != nil {
		return err
	}
	vr.Context.Swapchain = swapchain

	if err := vr.createFrameSlots(); err != nil {
		return err
	}

	var ssbos [metadata.MaxFramesInFlight]*VulkanBuffer
	for i := range vr.Frames {
		ssbos[i] = vr.Frames[i].QuadSSBO
	}
	descriptors, err := NewDescriptors(vr.Context, ssbos)
	if err != nil {
		return err
	}
	vr.Descriptors = descriptors

	if err := vr.createPipelines(); err != nil {
		return err
	}
	if err := vr.createImageSlots(); err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized.")
	return nil
}

func (vr *VulkanRenderer) createFrameSlots() error {
	for i := range vr.Frames {
		frame := &vr.Frames[i]

		ssbo, err := NewMappedBuffer(vr.Context,
			vk.DeviceSize(metadata.MaxQuads*metadata.QuadCommandSize),
			vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit))
		if err != nil {
			return err
		}
		frame.QuadSSBO = ssbo

		for lane := 0; lane < core.MaxLanes; lane++ {
			poolCreateInfo := vk.CommandPoolCreateInfo{
				SType:            vk.StructureTypeCommandPoolCreateInfo,
				QueueFamilyIndex: uint32(vr.Context.Device.GraphicsQueueIndex),
				Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
			}
			if err := vk.Error(vk.CreateCommandPool(vr.Context.Device.LogicalDevice, &poolCreateInfo, vr.Context.Allocator, &frame.CommandPools[lane])); err != nil {
				err = fmt.Errorf("frame command pool creation failed with %s", err)
				core.LogError(err.Error())
				return err
			}
			allocInfo := vk.CommandBufferAllocateInfo{
				SType:              vk.StructureTypeCommandBufferAllocateInfo,
				CommandPool:        frame.CommandPools[lane],
				Level:              vk.CommandBufferLevelPrimary,
				CommandBufferCount: 1,
			}
			commandBuffers := make([]vk.CommandBuffer, 1)
			if err := vk.Error(vk.AllocateCommandBuffers(vr.Context.Device.LogicalDevice, &allocInfo, commandBuffers)); err != nil {
				err = fmt.Errorf("frame command buffer allocation failed with %s", err)
				core.LogError(err.Error())
				return err
			}
			frame.CommandBuffers[lane] = commandBuffers[0]
		}

		semaphoreCreateInfo := vk.SemaphoreCreateInfo{
			SType: vk.StructureTypeSemaphoreCreateInfo,
		}
		if err := vk.Error(vk.CreateSemaphore(vr.Context.Device.LogicalDevice, &semaphoreCreateInfo, vr.Context.Allocator, &frame.ImageAvailable)); err != nil {
			err = fmt.Errorf("image-available semaphore creation failed with %s", err)
			core.LogError(err.Error())
			return err
		}

		fence, err := NewFence(vr.Context, true)
		if err != nil {
			return err
		}
		frame.InFlight = fence
	}
	core.LogInfo("Frame slots created.")
	return nil
}

func (vr *VulkanRenderer) createImageSlots() error {
	vr.ImageSlots = make([]ImageSlot, vr.Context.Swapchain.ImageCount)
	for i := range vr.ImageSlots {
		semaphoreCreateInfo := vk.SemaphoreCreateInfo{
			SType: vk.StructureTypeSemaphoreCreateInfo,
		}
		if err := vk.Error(vk.CreateSemaphore(vr.Context.Device.LogicalDevice, &semaphoreCreateInfo, vr.Context.Allocator, &vr.ImageSlots[i].RenderFinished)); err != nil {
			err = fmt.Errorf("render-finished semaphore creation failed with %s", err)
			core.LogError(err.Error())
			return err
		}
	}
	return nil
}

func (vr *VulkanRenderer) destroyImageSlots() {
	for i := range vr.ImageSlots {
		if vr.ImageSlots[i].RenderFinished != vk.NullSemaphore {
			vk.DestroySemaphore(vr.Context.Device.LogicalDevice, vr.ImageSlots[i].RenderFinished, vr.Context.Allocator)
			vr.ImageSlots[i].RenderFinished = vk.NullSemaphore
		}
	}
	vr.ImageSlots = nil
}

func (vr *VulkanRenderer) createPipelines() error {
	quad, err := NewQuadPipeline(vr.Context, vr.shaderDir,
		vr.Context.Swapchain.ImageFormat.Format, vr.Descriptors.Layout)
	if err != nil {
		return err
	}
	vr.QuadPipeline = quad

	mesh, err := NewMeshPipeline(vr.Context, vr.shaderDir,
		vr.Context.Swapchain.ImageFormat.Format, vr.Context.Device.DepthFormat)
	if err != nil {
		return err
	}
	vr.MeshPipeline = mesh
	return nil
}

func (vr *VulkanRenderer) destroyPipelines() {
	PipelineDestroy(vr.Context, vr.MeshPipeline)
	vr.MeshPipeline = nil
	PipelineDestroy(vr.Context, vr.QuadPipeline)
	vr.QuadPipeline = nil
}

// Resized caches the new framebuffer size and bumps the generation so
// the scheduler knows the swapchain is stale.
func (vr *VulkanRenderer) Resized(width, height uint32) {
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.Context.FramebufferSizeGeneration++
	core.LogDebug("renderer resized: %dx%d, generation %d", width, height, vr.Context.FramebufferSizeGeneration)
}

// RecreateSwapchain rebuilds the swapchain and everything derived from
// it. Blocks until the framebuffer is non-zero.
func (vr *VulkanRenderer) RecreateSwapchain() error {
	if vr.Context.RecreatingSwapchain {
		return nil
	}
	vr.Context.RecreatingSwapchain = true
	defer func() { vr.Context.RecreatingSwapchain = false }()

	width, height := vr.platform.WaitForNonZeroFramebuffer()
	if width == 0 || height == 0 {
		// Window is closing.
		return core.ErrSwapchainOutOfDate
	}
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.Context.FramebufferWidth = width
	vr.Context.FramebufferHeight = height

	DeviceWaitIdle(vr.Context)

	vr.destroyImageSlots()
	vr.destroyPipelines()

	if err := SwapchainRecreate(vr.Context, vr.Context.Swapchain, width, height); err != nil {
		return err
	}
	if err := vr.createPipelines(); err != nil {
		return err
	}
	if err := vr.createImageSlots(); err != nil {
		return err
	}
	vr.acquireSuboptimal = false
	core.LogInfo("Swapchain recreated.")
	return nil
}

// Shutdown tears everything down in reverse order. Every destroy
// checks its own zero value so a partial init still cleans up.
func (vr *VulkanRenderer) Shutdown() {
	if vr.Context == nil {
		return
	}
	DeviceWaitIdle(vr.Context)

	vr.destroyImageSlots()
	vr.destroyPipelines()
	if vr.Descriptors != nil {
		vr.Descriptors.Destroy(vr.Context)
		vr.Descriptors = nil
	}

	for i := range vr.Frames {
		frame := &vr.Frames[i]
		if frame.InFlight != nil {
			frame.InFlight.FenceDestroy(vr.Context)
			frame.InFlight = nil
		}
		if frame.ImageAvailable != vk.NullSemaphore {
			vk.DestroySemaphore(vr.Context.Device.LogicalDevice, frame.ImageAvailable, vr.Context.Allocator)
			frame.ImageAvailable = vk.NullSemaphore
		}
		for lane := 0; lane < core.MaxLanes; lane++ {
			if frame.CommandPools[lane] != vk.NullCommandPool {
				vk.DestroyCommandPool(vr.Context.Device.LogicalDevice, frame.CommandPools[lane], vr.Context.Allocator)
				frame.CommandPools[lane] = vk.NullCommandPool
			}
			frame.CommandBuffers[lane] = nil
		}
		BufferDestroy(vr.Context, frame.QuadSSBO)
		frame.QuadSSBO = nil
	}

	if vr.Context.Swapchain != nil {
		SwapchainDestroy(vr.Context, vr.Context.Swapchain)
		vr.Context.Swapchain = nil
	}
	if vr.Context.Device != nil && vr.Context.Device.LogicalDevice != nil {
		DeviceDestroy(vr.Context)
	}
	if vr.Context.Surface != vk.NullSurface {
		vk.DestroySurface(vr.Context.Instance, vr.Context.Surface, vr.Context.Allocator)
		vr.Context.Surface = vk.NullSurface
	}
	InstanceDestroy(vr.Context)
	core.LogInfo("Vulkan renderer shut down.")
}
