package vulkan

import (
	"unsafe"

	vk "github.com/Eiton/vulkan"
	mgl "github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/reverie/engine/core"
	"github.com/spaghettifunk/reverie/engine/renderer/metadata"
)

// MeshSlotGPU is the renderer's view of one mesh table entry. The
// slice handed to the recorder is append-only and read-only while
// recording.
type MeshSlotGPU struct {
	VertexBuffer *VulkanBuffer
	IndexBuffer  *VulkanBuffer
	IndexCount   uint32
	VertexCount  uint32
	Loaded       bool
}

// FrameRenderInfo carries everything one frame's recording needs.
type FrameRenderInfo struct {
	CommandBuffer  vk.CommandBuffer
	SwapchainImage vk.Image
	SwapchainView  vk.ImageView
	DepthImage     vk.Image
	DepthView      vk.ImageView
	Extent         vk.Extent2D

	QuadPipeline  *VulkanPipeline
	MeshPipeline  *VulkanPipeline
	DescriptorSet vk.DescriptorSet

	ClearColor   [4]float32
	QuadCount    uint32
	MeshCommands []metadata.MeshCommand
	Meshes       []MeshSlotGPU

	View       mgl.Mat4
	Projection mgl.Mat4
}

type meshPushConstants struct {
	MVP  mgl.Mat4
	Tint [4]float32
}

// RecordFrame writes the full frame into the command buffer: layout
// transitions, one dynamic rendering pass with the instanced quad draw
// and the ordered mesh draws, and the present transition.
func RecordFrame(info *FrameRenderInfo) error {
	cb := info.CommandBuffer

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if err := vk.Error(vk.BeginCommandBuffer(cb, &beginInfo)); err != nil {
		core.LogError("vkBeginCommandBuffer failed with %s", err)
		return core.ErrRecordFailure
	}

	colorBarrier := []vk.ImageMemoryBarrier{{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessNone),
		DstAccessMask:       vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		OldLayout:           vk.ImageLayoutUndefined,
		NewLayout:           vk.ImageLayoutColorAttachmentOptimal,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               info.SwapchainImage,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}}
	vk.CmdPipelineBarrier(cb,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		0, 0, nil, 0, nil, 1, colorBarrier)

	depthBarrier := []vk.ImageMemoryBarrier{{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessNone),
		DstAccessMask:       vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
		OldLayout:           vk.ImageLayoutUndefined,
		NewLayout:           vk.ImageLayoutDepthStencilAttachmentOptimal,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               info.DepthImage,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectDepthBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}}
	vk.CmdPipelineBarrier(cb,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
		0, 0, nil, 0, nil, 1, depthBarrier)

	colorAttachments := []vk.RenderingAttachmentInfo{{
		SType:       vk.StructureTypeRenderingAttachmentInfo,
		ImageView:   info.SwapchainView,
		ImageLayout: vk.ImageLayoutColorAttachmentOptimal,
		LoadOp:      vk.AttachmentLoadOpClear,
		StoreOp:     vk.AttachmentStoreOpStore,
		ClearValue:  vk.NewClearValue(info.ClearColor[:]),
	}}
	depthAttachments := []vk.RenderingAttachmentInfo{{
		SType:       vk.StructureTypeRenderingAttachmentInfo,
		ImageView:   info.DepthView,
		ImageLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
		LoadOp:      vk.AttachmentLoadOpClear,
		StoreOp:     vk.AttachmentStoreOpDontCare,
		ClearValue:  vk.NewClearDepthStencil(1.0, 0),
	}}
	renderInfo := vk.RenderingInfo{
		SType: vk.StructureTypeRenderingInfo,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: info.Extent,
		},
		LayerCount:           1,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachments,
		PDepthAttachment:     depthAttachments,
	}
	vk.CmdBeginRendering(cb, renderInfo)

	viewport := vk.Viewport{
		X: 0, Y: 0,
		Width:    float32(info.Extent.Width),
		Height:   float32(info.Extent.Height),
		MinDepth: 0, MaxDepth: 1,
	}
	vk.CmdSetViewport(cb, 0, 1, []vk.Viewport{viewport})
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: info.Extent,
	}
	vk.CmdSetScissor(cb, 0, 1, []vk.Rect2D{scissor})

	if info.QuadCount > 0 {
		vk.CmdBindPipeline(cb, vk.PipelineBindPointGraphics, info.QuadPipeline.Handle)
		vk.CmdBindDescriptorSets(cb, vk.PipelineBindPointGraphics,
			info.QuadPipeline.PipelineLayout, 0, 1,
			[]vk.DescriptorSet{info.DescriptorSet}, 0, nil)
		vk.CmdDraw(cb, 6, info.QuadCount, 0, 0)
	}

	if len(info.MeshCommands) > 0 {
		vk.CmdBindPipeline(cb, vk.PipelineBindPointGraphics, info.MeshPipeline.Handle)
		viewProjection := info.Projection.Mul4(info.View)

		boundSlot := int64(-1)
		for i := range info.MeshCommands {
			cmd := &info.MeshCommands[i]
			if int(cmd.Handle) >= len(info.Meshes) || !info.Meshes[cmd.Handle].Loaded {
				continue
			}
			slot := &info.Meshes[cmd.Handle]
			if int64(cmd.Handle) != boundSlot {
				vk.CmdBindVertexBuffers(cb, 0, 1,
					[]vk.Buffer{slot.VertexBuffer.Handle}, []vk.DeviceSize{0})
				vk.CmdBindIndexBuffer(cb, slot.IndexBuffer.Handle, 0, vk.IndexTypeUint32)
				boundSlot = int64(cmd.Handle)
			}

			push := meshPushConstants{
				MVP:  viewProjection.Mul4(cmd.Model),
				Tint: cmd.Tint,
			}
			vk.CmdPushConstants(cb, info.MeshPipeline.PipelineLayout,
				vk.ShaderStageFlags(vk.ShaderStageVertexBit|vk.ShaderStageFragmentBit),
				0, metadata.MeshPushConstantSize, unsafe.Pointer(&push))
			vk.CmdDrawIndexed(cb, slot.IndexCount, 1, 0, 0, 0)
		}
	}

	vk.CmdEndRendering(cb)

	presentBarrier := []vk.ImageMemoryBarrier{{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessNone),
		OldLayout:           vk.ImageLayoutColorAttachmentOptimal,
		NewLayout:           vk.ImageLayoutPresentSrc,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               info.SwapchainImage,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}}
	vk.CmdPipelineBarrier(cb,
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
		0, 0, nil, 0, nil, 1, presentBarrier)

	if err := vk.Error(vk.EndCommandBuffer(cb)); err != nil {
		core.LogError("vkEndCommandBuffer failed with %s", err)
		return core.ErrRecordFailure
	}
	return nil
}
