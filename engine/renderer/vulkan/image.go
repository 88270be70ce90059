package vulkan

import (
	vk "github.com/Eiton/vulkan"
	"github.com/spaghettifunk/reverie/engine/core"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Format vk.Format
	Width  uint32
	Height uint32
}

// NewDepthImage allocates a device-local depth attachment with a
// depth-aspect view.
func NewDepthImage(context *VulkanContext, width, height uint32, format vk.Format) (*VulkanImage, error) {
	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var image vk.Image
	if err := vk.Error(vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &image)); err != nil {
		core.LogError("depth image creation failed with %s", err)
		return nil, core.ErrGpuAlloc
	}

	var memReq vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image, &memReq)
	memReq.Deref()

	memoryTypeIndex := context.FindMemoryIndex(memReq.MemoryTypeBits, uint32(vk.MemoryPropertyDeviceLocalBit))
	if memoryTypeIndex < 0 {
		vk.DestroyImage(context.Device.LogicalDevice, image, context.Allocator)
		return nil, core.ErrGpuAlloc
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: uint32(memoryTypeIndex),
	}
	var memory vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &memory)); err != nil {
		core.LogError("depth memory allocation failed with %s", err)
		vk.DestroyImage(context.Device.LogicalDevice, image, context.Allocator)
		return nil, core.ErrGpuAlloc
	}
	if err := vk.Error(vk.BindImageMemory(context.Device.LogicalDevice, image, memory, 0)); err != nil {
		core.LogError("depth memory bind failed with %s", err)
		vk.FreeMemory(context.Device.LogicalDevice, memory, context.Allocator)
		vk.DestroyImage(context.Device.LogicalDevice, image, context.Allocator)
		return nil, core.ErrGpuAlloc
	}

	view, err := createImageView(context, image, format, vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		vk.FreeMemory(context.Device.LogicalDevice, memory, context.Allocator)
		vk.DestroyImage(context.Device.LogicalDevice, image, context.Allocator)
		return nil, err
	}

	return &VulkanImage{
		Handle: image,
		Memory: memory,
		View:   view,
		Format: format,
		Width:  width,
		Height: height,
	}, nil
}

func createImageView(context *VulkanContext, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if err := vk.Error(vk.CreateImageView(context.Device.LogicalDevice, &viewCreateInfo, context.Allocator, &view)); err != nil {
		core.LogError("image view creation failed with %s", err)
		return vk.NullImageView, core.ErrGpuAlloc
	}
	return view, nil
}

// ImageDestroy releases the view, memory and image. Zero handles are
// ignored.
func ImageDestroy(context *VulkanContext, image *VulkanImage) {
	if image == nil {
		return
	}
	if image.View != vk.NullImageView {
		vk.DestroyImageView(context.Device.LogicalDevice, image.View, context.Allocator)
		image.View = vk.NullImageView
	}
	if image.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, image.Memory, context.Allocator)
		image.Memory = vk.NullDeviceMemory
	}
	if image.Handle != vk.NullImage {
		vk.DestroyImage(context.Device.LogicalDevice, image.Handle, context.Allocator)
		image.Handle = vk.NullImage
	}
}
