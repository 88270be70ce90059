package vulkan

import (
	vk "github.com/Eiton/vulkan"
	"github.com/spaghettifunk/reverie/engine/core"
)

// VulkanContext holds the handles shared by every renderer subsystem.
type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32
	// Current generation of framebuffer size. If it does not match
	// FramebufferSizeLastGeneration, the swapchain is stale.
	FramebufferSizeGeneration uint64
	// The generation of the framebuffer when the swapchain was last
	// created.
	FramebufferSizeLastGeneration uint64

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	Device *VulkanDevice

	Swapchain *VulkanSwapchain

	// SwapchainArena backs the host-side arrays that mirror the
	// swapchain. Reset on every recreation.
	SwapchainArena *core.Arena

	ImageIndex   uint32
	CurrentFrame uint32

	// PreferMailbox selects MAILBOX when the surface offers it; FIFO
	// otherwise and always when unset.
	PreferMailbox bool

	RecreatingSwapchain bool
}

// FindMemoryIndex returns the first memory type matching typeFilter
// whose property flags equal propertyFlags exactly, or -1.
func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && uint32(memoryProperties.MemoryTypes[i].PropertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}
