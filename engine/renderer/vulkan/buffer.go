package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/Eiton/vulkan"
	"github.com/spaghettifunk/reverie/engine/core"
)

// VulkanBuffer couples a buffer with its backing memory. Mapped is
// non-nil only for persistently mapped host-visible buffers.
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Mapped unsafe.Pointer
}

func createBuffer(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags, properties uint32) (*VulkanBuffer, error) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := vk.Error(vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &buffer)); err != nil {
		core.LogError("vkCreateBuffer failed with %s", err)
		return nil, core.ErrGpuAlloc
	}

	var memReq vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer, &memReq)
	memReq.Deref()

	memoryTypeIndex := context.FindMemoryIndex(memReq.MemoryTypeBits, properties)
	if memoryTypeIndex < 0 {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer, context.Allocator)
		return nil, core.ErrGpuAlloc
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: uint32(memoryTypeIndex),
	}
	var memory vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &memory)); err != nil {
		core.LogError("vkAllocateMemory failed with %s", err)
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer, context.Allocator)
		return nil, core.ErrGpuAlloc
	}
	if err := vk.Error(vk.BindBufferMemory(context.Device.LogicalDevice, buffer, memory, 0)); err != nil {
		core.LogError("vkBindBufferMemory failed with %s", err)
		vk.FreeMemory(context.Device.LogicalDevice, memory, context.Allocator)
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer, context.Allocator)
		return nil, core.ErrGpuAlloc
	}

	return &VulkanBuffer{Handle: buffer, Memory: memory, Size: size}, nil
}

// NewMappedBuffer creates a host-visible, host-coherent buffer and maps
// it for its entire lifetime.
func NewMappedBuffer(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	buffer, err := createBuffer(context, size, usage,
		uint32(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	if err := vk.Error(vk.MapMemory(context.Device.LogicalDevice, buffer.Memory, 0, size, 0, &buffer.Mapped)); err != nil {
		core.LogError("vkMapMemory failed with %s", err)
		BufferDestroy(context, buffer)
		return nil, core.ErrGpuAlloc
	}
	return buffer, nil
}

// NewDeviceLocalBuffer creates a device-local buffer and fills it with
// data through a one-time staged upload on the transient pool.
func NewDeviceLocalBuffer(context *VulkanContext, data unsafe.Pointer, size vk.DeviceSize, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	buffer, err := createBuffer(context, size, usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		uint32(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	staging, err := NewMappedBuffer(context, size, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
	if err != nil {
		BufferDestroy(context, buffer)
		return nil, err
	}
	vk.Memcopy(staging.Mapped, unsafe.Slice((*byte)(data), int(size)))

	if err := copyBuffer(context, staging.Handle, buffer.Handle, size); err != nil {
		BufferDestroy(context, staging)
		BufferDestroy(context, buffer)
		return nil, err
	}
	BufferDestroy(context, staging)
	return buffer, nil
}

func copyBuffer(context *VulkanContext, src, dst vk.Buffer, size vk.DeviceSize) error {
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        context.Device.TransientCommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	commandBuffers := make([]vk.CommandBuffer, 1)
	if err := vk.Error(vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocInfo, commandBuffers)); err != nil {
		core.LogError("upload command buffer allocation failed with %s", err)
		return core.ErrGpuAlloc
	}
	defer vk.FreeCommandBuffers(context.Device.LogicalDevice, context.Device.TransientCommandPool, 1, commandBuffers)

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(commandBuffers[0], &beginInfo)); err != nil {
		return fmt.Errorf("upload record failed with %s", err)
	}
	vk.CmdCopyBuffer(commandBuffers[0], src, dst, 1, []vk.BufferCopy{{Size: size}})
	if err := vk.Error(vk.EndCommandBuffer(commandBuffers[0])); err != nil {
		return fmt.Errorf("upload record failed with %s", err)
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    commandBuffers,
	}
	if err := vk.Error(vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence)); err != nil {
		core.LogError("upload submit failed with %s", err)
		return core.ErrGpuAlloc
	}
	vk.QueueWaitIdle(context.Device.GraphicsQueue)
	return nil
}

// BufferDestroy unmaps and releases the buffer. Zero handles are
// ignored.
func BufferDestroy(context *VulkanContext, buffer *VulkanBuffer) {
	if buffer == nil {
		return
	}
	if buffer.Mapped != nil {
		vk.UnmapMemory(context.Device.LogicalDevice, buffer.Memory)
		buffer.Mapped = nil
	}
	if buffer.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
		buffer.Handle = vk.NullBuffer
	}
	if buffer.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, buffer.Memory, context.Allocator)
		buffer.Memory = vk.NullDeviceMemory
	}
	buffer.Size = 0
}
