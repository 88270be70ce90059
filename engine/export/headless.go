package export

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	vk "github.com/Eiton/vulkan"
	"github.com/spaghettifunk/reverie/engine/core"
	"github.com/spaghettifunk/reverie/engine/renderer/vulkan"
)

// Capturer copies the presented swapchain image into a mapped staging
// buffer and writes one BMP per frame. The copy rides the same submit
// as the render commands so the frame fence covers both.
type Capturer struct {
	context   *vulkan.VulkanContext
	staging   *vulkan.VulkanBuffer
	outputDir string

	frameIndex int
	width      uint32
	height     uint32
}

// NewCapturer allocates the staging buffer for the given extent and
// ensures the output directory exists.
func NewCapturer(context *vulkan.VulkanContext, extent vk.Extent2D, outputDir string) (*Capturer, error) {
	if !context.Swapchain.TransferSrcEnabled {
		core.LogError("swapchain images do not support transfer source usage, cannot export frames")
		return nil, core.ErrInitFailure
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		core.LogError("unable to create output directory %s: %s", outputDir, err)
		return nil, core.ErrInitFailure
	}

	c := &Capturer{context: context, outputDir: outputDir}
	if err := c.ensureStaging(extent); err != nil {
		return nil, err
	}
	return c, nil
}

// Hook returns this frame's capture pair for the scheduler.
func (c *Capturer) Hook() *vulkan.FrameCapture {
	return &vulkan.FrameCapture{
		Record:   c.record,
		Complete: c.complete,
	}
}

// Destroy releases the staging buffer.
func (c *Capturer) Destroy() {
	vulkan.BufferDestroy(c.context, c.staging)
	c.staging = nil
}

func (c *Capturer) ensureStaging(extent vk.Extent2D) error {
	size := vk.DeviceSize(extent.Width) * vk.DeviceSize(extent.Height) * 4
	if c.staging != nil && c.staging.Size >= size {
		c.width = extent.Width
		c.height = extent.Height
		return nil
	}
	if c.staging != nil {
		vulkan.BufferDestroy(c.context, c.staging)
		c.staging = nil
	}
	staging, err := vulkan.NewMappedBuffer(c.context, size,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit))
	if err != nil {
		return err
	}
	c.staging = staging
	c.width = extent.Width
	c.height = extent.Height
	return nil
}

// record writes the readback command buffer: transition the image out
// of its present layout, copy it into the staging buffer, transition
// back. Runs after the render commands within the same submission.
func (c *Capturer) record(cb vk.CommandBuffer, image vk.Image, extent vk.Extent2D) error {
	if err := c.ensureStaging(extent); err != nil {
		return err
	}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if err := vk.Error(vk.BeginCommandBuffer(cb, &beginInfo)); err != nil {
		core.LogError("capture vkBeginCommandBuffer failed with %s", err)
		return core.ErrRecordFailure
	}

	toTransfer := []vk.ImageMemoryBarrier{{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessTransferReadBit),
		OldLayout:           vk.ImageLayoutPresentSrc,
		NewLayout:           vk.ImageLayoutTransferSrcOptimal,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}}
	vk.CmdPipelineBarrier(cb,
		vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0, 0, nil, 0, nil, 1, toTransfer)

	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
	}
	vk.CmdCopyImageToBuffer(cb, image, vk.ImageLayoutTransferSrcOptimal,
		c.staging.Handle, 1, []vk.BufferImageCopy{region})

	toPresent := []vk.ImageMemoryBarrier{{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessTransferReadBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessNone),
		OldLayout:           vk.ImageLayoutTransferSrcOptimal,
		NewLayout:           vk.ImageLayoutPresentSrc,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}}
	vk.CmdPipelineBarrier(cb,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
		0, 0, nil, 0, nil, 1, toPresent)

	if err := vk.Error(vk.EndCommandBuffer(cb)); err != nil {
		core.LogError("capture vkEndCommandBuffer failed with %s", err)
		return core.ErrRecordFailure
	}
	return nil
}

// complete runs after the frame fence has signaled, so the staging
// buffer holds the finished image.
func (c *Capturer) complete() error {
	size := int(c.width) * int(c.height) * 4
	pixels := unsafe.Slice((*byte)(c.staging.Mapped), size)

	path := filepath.Join(c.outputDir, fmt.Sprintf("frame_%04d.bmp", c.frameIndex))
	if err := WriteBMP(path, c.width, c.height, pixels); err != nil {
		return err
	}
	c.frameIndex++
	return nil
}
