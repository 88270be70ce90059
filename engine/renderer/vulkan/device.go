package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/Eiton/vulkan"
	"github.com/spaghettifunk/reverie/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   VulkanSwapchainSupportInfo
	GraphicsQueueIndex int32
	PresentQueueIndex  int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	// TransientCommandPool serves one-time upload command buffers.
	TransientCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties

	DepthFormat vk.Format
}

type VulkanSwapchainSupportInfo struct {
	Capabilities     vk.SurfaceCapabilities
	FormatCount      uint32
	Formats          []vk.SurfaceFormat
	PresentModeCount uint32
	PresentModes     []vk.PresentMode
}

// SharedQueues reports whether graphics and present use one family.
func (d *VulkanDevice) SharedQueues() bool {
	return d.GraphicsQueueIndex == d.PresentQueueIndex
}

// DeviceCreate selects a physical device and builds the logical device
// with the dynamic-rendering and synchronization2 features enabled.
func DeviceCreate(context *VulkanContext) error {
	if err := selectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	// Do not create additional queues for shared indices.
	indices := []uint32{uint32(context.Device.GraphicsQueueIndex)}
	if !context.Device.SharedQueues() {
		indices = append(indices, uint32(context.Device.PresentQueueIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: indices[i],
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName + "\x00"}
	if devicePortabilityRequired(context.Device.PhysicalDevice) {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset\x00")
	}

	deviceCreateInfo := &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: extensionNames,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
	}

	sync2 := vk.PhysicalDeviceSynchronization2Features{
		SType:            vk.StructureTypePhysicalDeviceSynchronization2Features,
		Synchronization2: vk.True,
	}
	deviceCreateInfo.PNext = unsafe.Pointer(&sync2)
	dynamicRenderingFeature := vk.PhysicalDeviceDynamicRenderingFeatures{
		SType:            vk.StructureTypePhysicalDeviceDynamicRenderingFeatures,
		DynamicRendering: vk.True,
	}
	sync2.PNext = unsafe.Pointer(&dynamicRenderingFeature)

	if err := vk.Error(vk.CreateDevice(
		context.Device.PhysicalDevice,
		deviceCreateInfo,
		context.Allocator,
		&context.Device.LogicalDevice)); err != nil {
		err = fmt.Errorf("vkCreateDevice failed with %s", err)
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(
		context.Device.LogicalDevice,
		uint32(context.Device.GraphicsQueueIndex),
		0,
		&context.Device.GraphicsQueue)
	vk.GetDeviceQueue(
		context.Device.LogicalDevice,
		uint32(context.Device.PresentQueueIndex),
		0,
		&context.Device.PresentQueue)
	core.LogInfo("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(context.Device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
	}
	if err := vk.Error(vk.CreateCommandPool(
		context.Device.LogicalDevice,
		&poolCreateInfo,
		context.Allocator,
		&context.Device.TransientCommandPool)); err != nil {
		err = fmt.Errorf("transient command pool creation failed with %s", err)
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Transient upload command pool created.")

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	context.Device.GraphicsQueue = nil
	context.Device.PresentQueue = nil

	if context.Device.TransientCommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(
			context.Device.LogicalDevice,
			context.Device.TransientCommandPool,
			context.Allocator)
		context.Device.TransientCommandPool = vk.NullCommandPool
	}

	core.LogInfo("Destroying logical device...")
	if context.Device.LogicalDevice != nil {
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	context.Device.PhysicalDevice = nil
	context.Device.SwapchainSupport = VulkanSwapchainSupportInfo{}
	context.Device.GraphicsQueueIndex = -1
	context.Device.PresentQueueIndex = -1
}

// DeviceWaitIdle blocks until the GPU has drained all submitted work.
func DeviceWaitIdle(context *VulkanContext) {
	if context.Device != nil && context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(context.Device.LogicalDevice)
	}
}

// DeviceQuerySwapchainSupport fills supportInfo from the surface.
func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, supportInfo *VulkanSwapchainSupportInfo) error {
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities)); err != nil {
		err = fmt.Errorf("failed to get surface capabilities: %s", err)
		core.LogError(err.Error())
		return err
	}
	supportInfo.Capabilities.Deref()

	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &supportInfo.FormatCount, nil)); err != nil {
		err = fmt.Errorf("failed to get surface formats: %s", err)
		core.LogError(err.Error())
		return err
	}
	if supportInfo.FormatCount != 0 {
		supportInfo.Formats = make([]vk.SurfaceFormat, supportInfo.FormatCount)
		if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &supportInfo.FormatCount, supportInfo.Formats)); err != nil {
			err = fmt.Errorf("failed to get surface formats: %s", err)
			core.LogError(err.Error())
			return err
		}
	}

	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &supportInfo.PresentModeCount, nil)); err != nil {
		err = fmt.Errorf("failed to get surface present modes: %s", err)
		core.LogError(err.Error())
		return err
	}
	if supportInfo.PresentModeCount != 0 {
		supportInfo.PresentModes = make([]vk.PresentMode, supportInfo.PresentModeCount)
		if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &supportInfo.PresentModeCount, supportInfo.PresentModes)); err != nil {
			err = fmt.Errorf("failed to get surface present modes: %s", err)
			core.LogError(err.Error())
			return err
		}
	}
	return nil
}

// DeviceDetectDepthFormat requires D32_SFLOAT as an optimal-tiling
// depth attachment. The depth pipeline is built against that format
// and nothing else; conformant implementations always support it.
func DeviceDetectDepthFormat(device *VulkanDevice) bool {
	flags := vk.FormatFeatureDepthStencilAttachmentBit
	var properties vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, vk.FormatD32Sfloat, &properties)
	properties.Deref()
	if (vk.FormatFeatureFlagBits(properties.OptimalTilingFeatures) & flags) != flags {
		return false
	}
	device.DepthFormat = vk.FormatD32Sfloat
	return true
}

func devicePortabilityRequired(physicalDevice vk.PhysicalDevice) bool {
	var availableExtensionCount uint32
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &availableExtensionCount, nil)); err != nil {
		return false
	}
	if availableExtensionCount == 0 {
		return false
	}
	availableExtensions := make([]vk.ExtensionProperties, availableExtensionCount)
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &availableExtensionCount, availableExtensions)); err != nil {
		return false
	}
	for i := range availableExtensions {
		availableExtensions[i].Deref()
		if vk.ToString(availableExtensions[i].ExtensionName[:]) == "VK_KHR_portability_subset" {
			return true
		}
	}
	return false
}

func selectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil)); err != nil {
		err = fmt.Errorf("vkEnumeratePhysicalDevices failed with %s", err)
		core.LogError(err.Error())
		return err
	}
	if physicalDeviceCount == 0 {
		core.LogError("No devices which support Vulkan were found.")
		return core.ErrInitFailure
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if err := vk.Error(vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices)); err != nil {
		err = fmt.Errorf("vkEnumeratePhysicalDevices failed with %s", err)
		core.LogError(err.Error())
		return err
	}

	wantDiscrete := runtime.GOOS != "darwin"
	var fallback vk.PhysicalDevice
	var fallbackQueues [2]int32

	for _, candidate := range physicalDevices {
		properties := vk.PhysicalDeviceProperties{}
		vk.GetPhysicalDeviceProperties(candidate, &properties)
		properties.Deref()

		graphicsIndex, presentIndex, ok := findQueueFamilies(candidate, context.Surface)
		if !ok {
			continue
		}
		if !deviceSupportsSwapchain(candidate, context.Surface) {
			continue
		}

		if fallback == nil {
			fallback = candidate
			fallbackQueues = [2]int32{graphicsIndex, presentIndex}
		}
		if wantDiscrete && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
			continue
		}

		adoptPhysicalDevice(context, candidate, properties, graphicsIndex, presentIndex)
		return nil
	}

	if fallback != nil {
		properties := vk.PhysicalDeviceProperties{}
		vk.GetPhysicalDeviceProperties(fallback, &properties)
		properties.Deref()
		adoptPhysicalDevice(context, fallback, properties, fallbackQueues[0], fallbackQueues[1])
		return nil
	}

	core.LogError("No physical devices were found which meet the requirements.")
	return core.ErrInitFailure
}

func adoptPhysicalDevice(context *VulkanContext, device vk.PhysicalDevice, properties vk.PhysicalDeviceProperties, graphicsIndex, presentIndex int32) {
	core.LogInfo("Selected device: '%s'.", vk.ToString(properties.DeviceName[:]))
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(properties.ApiVersion).Major(),
		vk.Version(properties.ApiVersion).Minor(),
		vk.Version(properties.ApiVersion).Patch(),
	)

	context.Device.PhysicalDevice = device
	context.Device.GraphicsQueueIndex = graphicsIndex
	context.Device.PresentQueueIndex = presentIndex
	context.Device.Properties = properties

	DeviceQuerySwapchainSupport(device, context.Surface, &context.Device.SwapchainSupport)
	core.LogDebug("Graphics Family Index: %d", graphicsIndex)
	core.LogDebug("Present Family Index:  %d", presentIndex)
}

// findQueueFamilies picks the first family with GRAPHICS and the first
// family with present support.
func findQueueFamilies(device vk.PhysicalDevice, surface vk.Surface) (graphics, present int32, ok bool) {
	graphics, present = -1, -1

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i := uint32(0); i < queueFamilyCount; i++ {
		queueFamilies[i].Deref()
		if graphics < 0 && vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueGraphicsBit > 0 {
			graphics = int32(i)
		}
		if present < 0 {
			var supportsPresent vk.Bool32
			if err := vk.Error(vk.GetPhysicalDeviceSurfaceSupport(device, i, surface, &supportsPresent)); err == nil && supportsPresent == vk.True {
				present = int32(i)
			}
		}
	}
	return graphics, present, graphics >= 0 && present >= 0
}

func deviceSupportsSwapchain(device vk.PhysicalDevice, surface vk.Surface) bool {
	var support VulkanSwapchainSupportInfo
	if err := DeviceQuerySwapchainSupport(device, surface, &support); err != nil {
		return false
	}
	return support.FormatCount > 0 && support.PresentModeCount > 0
}
