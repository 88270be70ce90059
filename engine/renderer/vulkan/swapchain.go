package vulkan

import (
	"fmt"
	"math"

	vk "github.com/Eiton/vulkan"
	"github.com/spaghettifunk/reverie/engine/core"
	emath "github.com/spaghettifunk/reverie/engine/math"
)

type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	ImageCount  uint32
	Images      []vk.Image
	ImageViews  []vk.ImageView
	Extent      vk.Extent2D

	DepthAttachment *VulkanImage

	// TransferSrcEnabled is true when the surface allowed the images to
	// carry TRANSFER_SRC usage. The headless exporter needs it.
	TransferSrcEnabled bool
}

// SwapchainCreate builds the swapchain for the given framebuffer size.
// Host-side image arrays live in the swapchain arena.
func SwapchainCreate(context *VulkanContext, width, height uint32) (*VulkanSwapchain, error) {
	swapchain := &VulkanSwapchain{}
	if err := createSwapchainInternal(context, swapchain, width, height); err != nil {
		return nil, err
	}
	return swapchain, nil
}

// SwapchainRecreate tears down and rebuilds against the current
// surface. The caller must have waited for device idle.
func SwapchainRecreate(context *VulkanContext, swapchain *VulkanSwapchain, width, height uint32) error {
	SwapchainDestroy(context, swapchain)
	if context.SwapchainArena != nil {
		context.SwapchainArena.Reset()
	}
	return createSwapchainInternal(context, swapchain, width, height)
}

func createSwapchainInternal(context *VulkanContext, swapchain *VulkanSwapchain, width, height uint32) error {
	if err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface, &context.Device.SwapchainSupport); err != nil {
		return err
	}
	support := &context.Device.SwapchainSupport

	// Format preference: B8G8R8A8_SRGB, then B8G8R8A8_UNORM, both with
	// the sRGB-nonlinear color space, then whatever comes first.
	found := false
	for i := range support.Formats {
		support.Formats[i].Deref()
		if support.Formats[i].Format == vk.FormatB8g8r8a8Srgb &&
			support.Formats[i].ColorSpace == vk.ColorSpaceSrgbNonlinear {
			swapchain.ImageFormat = support.Formats[i]
			found = true
			break
		}
	}
	if !found {
		for i := range support.Formats {
			if support.Formats[i].Format == vk.FormatB8g8r8a8Unorm &&
				support.Formats[i].ColorSpace == vk.ColorSpaceSrgbNonlinear {
				swapchain.ImageFormat = support.Formats[i]
				found = true
				break
			}
		}
	}
	if !found {
		swapchain.ImageFormat = support.Formats[0]
	}

	presentMode := vk.PresentModeFifo
	if context.PreferMailbox {
		for _, mode := range support.PresentModes {
			if mode == vk.PresentModeMailbox {
				presentMode = vk.PresentModeMailbox
				break
			}
		}
	}

	extent := vk.Extent2D{Width: width, Height: height}
	caps := support.Capabilities
	if caps.CurrentExtent.Width != math.MaxUint32 {
		extent = caps.CurrentExtent
	}
	extent.Width = emath.Clamp(extent.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
	extent.Height = emath.Clamp(extent.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height)

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	usage := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	swapchain.TransferSrcEnabled = false
	if vk.ImageUsageFlagBits(caps.SupportedUsageFlags)&vk.ImageUsageTransferSrcBit != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
		swapchain.TransferSrcEnabled = true
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       usage,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}
	if context.Device.SharedQueues() {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	}

	var handle vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &handle)); err != nil {
		err = fmt.Errorf("vkCreateSwapchainKHR failed with %s", err)
		core.LogError(err.Error())
		return err
	}
	swapchain.Handle = handle
	swapchain.Extent = extent
	context.CurrentFrame = 0

	if err := vk.Error(vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil)); err != nil {
		err = fmt.Errorf("vkGetSwapchainImagesKHR failed with %s", err)
		core.LogError(err.Error())
		return err
	}
	swapchain.Images = core.ArenaSlice[vk.Image](context.SwapchainArena, int(swapchain.ImageCount))
	if err := vk.Error(vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, swapchain.Images)); err != nil {
		err = fmt.Errorf("vkGetSwapchainImagesKHR failed with %s", err)
		core.LogError(err.Error())
		return err
	}

	swapchain.ImageViews = core.ArenaSlice[vk.ImageView](context.SwapchainArena, int(swapchain.ImageCount))
	for i := uint32(0); i < swapchain.ImageCount; i++ {
		view, err := createImageView(context, swapchain.Images[i], swapchain.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return err
		}
		swapchain.ImageViews[i] = view
	}

	if !DeviceDetectDepthFormat(context.Device) {
		core.LogError("Failed to find a supported depth format.")
		return core.ErrInitFailure
	}
	depth, err := NewDepthImage(context, extent.Width, extent.Height, context.Device.DepthFormat)
	if err != nil {
		return err
	}
	swapchain.DepthAttachment = depth

	context.FramebufferSizeLastGeneration = context.FramebufferSizeGeneration
	core.LogInfo("Swapchain created: %dx%d, %d images.", extent.Width, extent.Height, swapchain.ImageCount)
	return nil
}

// SwapchainDestroy releases views, depth attachment and the swapchain
// handle. The images themselves belong to the swapchain.
func SwapchainDestroy(context *VulkanContext, swapchain *VulkanSwapchain) {
	if swapchain == nil {
		return
	}
	ImageDestroy(context, swapchain.DepthAttachment)
	swapchain.DepthAttachment = nil

	for i := range swapchain.ImageViews {
		if swapchain.ImageViews[i] != vk.NullImageView {
			vk.DestroyImageView(context.Device.LogicalDevice, swapchain.ImageViews[i], context.Allocator)
			swapchain.ImageViews[i] = vk.NullImageView
		}
	}
	swapchain.ImageViews = nil
	swapchain.Images = nil

	if swapchain.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, swapchain.Handle, context.Allocator)
		swapchain.Handle = vk.NullSwapchain
	}
}
