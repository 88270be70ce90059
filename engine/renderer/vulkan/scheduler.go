package vulkan

import (
	"errors"
	"math"
	"unsafe"

	vk "github.com/Eiton/vulkan"
	mgl "github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/reverie/engine/core"
	"github.com/spaghettifunk/reverie/engine/renderer/metadata"
)

// FrameCapture lets a caller attach extra GPU work to the frame's
// submit. Record is called with a free command buffer after the render
// commands are recorded; Complete runs once the frame's fence has
// signaled, before present.
type FrameCapture struct {
	Record   func(cb vk.CommandBuffer, image vk.Image, extent vk.Extent2D) error
	Complete func() error
}

// FrameSubmission is one frame's worth of work handed to DrawFrame.
type FrameSubmission struct {
	Commands   *metadata.FrameCommands
	Meshes     []MeshSlotGPU
	View       mgl.Mat4
	Projection mgl.Mat4
	Capture    *FrameCapture
}

// DrawFrame runs one frame through the pipeline: wait for the frame
// slot's fence, upload the quad records, acquire a swapchain image,
// record, submit and present. Returns core.ErrSwapchainOutOfDate when
// the frame was skipped (the swapchain had to be rebuilt, or the fence
// wait failed without device loss), which callers treat as a non-fatal
// retry. Device loss returns core.ErrDeviceLost; any other failure is
// returned as a fatal error.
func (vr *VulkanRenderer) DrawFrame(sub *FrameSubmission) error {
	ctx := vr.Context
	device := ctx.Device

	if ctx.RecreatingSwapchain {
		return core.ErrSwapchainOutOfDate
	}
	if ctx.FramebufferSizeGeneration != ctx.FramebufferSizeLastGeneration {
		if err := vr.RecreateSwapchain(); err != nil {
			return err
		}
		return core.ErrSwapchainOutOfDate
	}

	frame := &vr.Frames[ctx.CurrentFrame]

	if err := frame.InFlight.FenceWait(ctx, math.MaxUint64); err != nil {
		if errors.Is(err, core.ErrDeviceLost) {
			return err
		}
		core.LogWarn("in-flight fence wait failed, skipping frame: %s", err)
		return core.ErrSwapchainOutOfDate
	}

	quadCount := vr.uploadQuads(frame, sub.Commands)

	var imageIndex uint32
	result := vk.AcquireNextImage(device.LogicalDevice, ctx.Swapchain.Handle,
		math.MaxUint64, frame.ImageAvailable, vk.NullFence, &imageIndex)
	switch result {
	case vk.ErrorOutOfDate:
		if err := vr.RecreateSwapchain(); err != nil {
			return err
		}
		return core.ErrSwapchainOutOfDate
	case vk.Suboptimal:
		// The image is still usable. Consume it, then rebuild.
		vr.acquireSuboptimal = true
	case vk.Success:
	default:
		core.LogError("vkAcquireNextImageKHR failed with %s", ResultString(result))
		if result == vk.ErrorDeviceLost {
			return core.ErrDeviceLost
		}
		if err := vr.RecreateSwapchain(); err != nil {
			return err
		}
		return core.ErrSwapchainOutOfDate
	}
	ctx.ImageIndex = imageIndex

	cb := frame.CommandBuffers[0]
	if err := vk.Error(vk.ResetCommandBuffer(cb, 0)); err != nil {
		core.LogError("vkResetCommandBuffer failed with %s", err)
		return core.ErrRecordFailure
	}

	swapchain := ctx.Swapchain
	info := &FrameRenderInfo{
		CommandBuffer:  cb,
		SwapchainImage: swapchain.Images[imageIndex],
		SwapchainView:  swapchain.ImageViews[imageIndex],
		DepthImage:     swapchain.DepthAttachment.Handle,
		DepthView:      swapchain.DepthAttachment.View,
		Extent:         swapchain.Extent,
		QuadPipeline:   vr.QuadPipeline,
		MeshPipeline:   vr.MeshPipeline,
		DescriptorSet:  vr.Descriptors.Sets[ctx.CurrentFrame],
		ClearColor:     sub.Commands.ClearColor,
		QuadCount:      quadCount,
		MeshCommands:   sub.Commands.Meshes,
		Meshes:         sub.Meshes,
		View:           sub.View,
		Projection:     sub.Projection,
	}
	if err := RecordFrame(info); err != nil {
		return err
	}

	commandBuffers := []vk.CommandBuffer{cb}
	if sub.Capture != nil && sub.Capture.Record != nil {
		captureCB := frame.CommandBuffers[1]
		if err := vk.Error(vk.ResetCommandBuffer(captureCB, 0)); err != nil {
			core.LogError("capture command buffer reset failed with %s", err)
			return core.ErrRecordFailure
		}
		if err := sub.Capture.Record(captureCB, swapchain.Images[imageIndex], swapchain.Extent); err != nil {
			return err
		}
		commandBuffers = append(commandBuffers, captureCB)
	}

	// The fence is reset only after acquire and record succeeded so an
	// early-out frame stays signaled.
	if err := frame.InFlight.FenceReset(ctx); err != nil {
		return err
	}

	renderFinished := vr.ImageSlots[imageIndex].RenderFinished
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{frame.ImageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   uint32(len(commandBuffers)),
		PCommandBuffers:      commandBuffers,
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{renderFinished},
	}
	if err := vk.Error(vk.QueueSubmit(device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, frame.InFlight.Handle)); err != nil {
		core.LogError("vkQueueSubmit failed with %s", err)
		return core.ErrRecordFailure
	}

	if sub.Capture != nil {
		if err := frame.InFlight.FenceWait(ctx, math.MaxUint64); err != nil {
			return err
		}
		if sub.Capture.Complete != nil {
			if err := sub.Capture.Complete(); err != nil {
				return err
			}
		}
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	presentResult := vk.QueuePresent(device.PresentQueue, &presentInfo)
	switch presentResult {
	case vk.ErrorOutOfDate, vk.Suboptimal:
		if err := vr.RecreateSwapchain(); err != nil {
			return err
		}
	case vk.Success:
		if vr.acquireSuboptimal {
			if err := vr.RecreateSwapchain(); err != nil {
				return err
			}
		}
	default:
		core.LogError("vkQueuePresentKHR failed with %s", ResultString(presentResult))
		if presentResult == vk.ErrorDeviceLost {
			return core.ErrDeviceLost
		}
		return errors.New("vkQueuePresentKHR failed with " + ResultString(presentResult))
	}

	ctx.CurrentFrame = (ctx.CurrentFrame + 1) % metadata.MaxFramesInFlight
	vr.FrameNumber++
	return nil
}

// uploadQuads copies this frame's quad records into the slot's mapped
// storage buffer and returns how many the shader should draw.
func (vr *VulkanRenderer) uploadQuads(frame *FrameSlot, commands *metadata.FrameCommands) uint32 {
	count := len(commands.Quads)
	if count > metadata.MaxQuads {
		count = metadata.MaxQuads
	}
	if count == 0 {
		return 0
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(&commands.Quads[0])), count*metadata.QuadCommandSize)
	vk.Memcopy(frame.QuadSSBO.Mapped, src)
	return uint32(count)
}
