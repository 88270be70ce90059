package vulkan

import (
	"fmt"

	vk "github.com/Eiton/vulkan"
	"github.com/spaghettifunk/reverie/engine/core"
	"github.com/spaghettifunk/reverie/engine/renderer/metadata"
)

// VulkanDescriptors owns the quad SSBO binding: one layout, a pool
// sized for the frames in flight, and one statically written set per
// frame slot.
type VulkanDescriptors struct {
	Layout vk.DescriptorSetLayout
	Pool   vk.DescriptorPool
	Sets   [metadata.MaxFramesInFlight]vk.DescriptorSet
}

// NewDescriptors builds layout, pool and per-frame sets, each bound
// once to its frame's SSBO.
func NewDescriptors(context *VulkanContext, ssbos [metadata.MaxFramesInFlight]*VulkanBuffer) (*VulkanDescriptors, error) {
	d := &VulkanDescriptors{}

	binding := vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeStorageBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	}
	layoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{binding},
	}
	if err := vk.Error(vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutCreateInfo, context.Allocator, &d.Layout)); err != nil {
		err = fmt.Errorf("vkCreateDescriptorSetLayout failed with %s", err)
		core.LogError(err.Error())
		return nil, err
	}

	poolSize := vk.DescriptorPoolSize{
		Type:            vk.DescriptorTypeStorageBuffer,
		DescriptorCount: metadata.MaxFramesInFlight,
	}
	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       metadata.MaxFramesInFlight,
		PoolSizeCount: 1,
		PPoolSizes:    []vk.DescriptorPoolSize{poolSize},
	}
	if err := vk.Error(vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &d.Pool)); err != nil {
		err = fmt.Errorf("vkCreateDescriptorPool failed with %s", err)
		core.LogError(err.Error())
		d.Destroy(context)
		return nil, err
	}

	layouts := make([]vk.DescriptorSetLayout, metadata.MaxFramesInFlight)
	for i := range layouts {
		layouts[i] = d.Layout
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.Pool,
		DescriptorSetCount: metadata.MaxFramesInFlight,
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, metadata.MaxFramesInFlight)
	if err := vk.Error(vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocInfo, &sets[0])); err != nil {
		err = fmt.Errorf("vkAllocateDescriptorSets failed with %s", err)
		core.LogError(err.Error())
		d.Destroy(context)
		return nil, err
	}
	copy(d.Sets[:], sets)

	for i := 0; i < metadata.MaxFramesInFlight; i++ {
		bufferInfo := vk.DescriptorBufferInfo{
			Buffer: ssbos[i].Handle,
			Offset: 0,
			Range:  ssbos[i].Size,
		}
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          d.Sets[i],
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
		}
		vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	}

	return d, nil
}

func (d *VulkanDescriptors) Destroy(context *VulkanContext) {
	if d == nil {
		return
	}
	if d.Pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, d.Pool, context.Allocator)
		d.Pool = vk.NullDescriptorPool
	}
	if d.Layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, d.Layout, context.Allocator)
		d.Layout = vk.NullDescriptorSetLayout
	}
}
