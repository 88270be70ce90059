package vulkan

import (
	"fmt"
	"os"

	vk "github.com/Eiton/vulkan"
	"github.com/spaghettifunk/reverie/engine/core"
)

// NewShaderModule reads a compiled SPIR-V file and wraps it in a
// shader module.
func NewShaderModule(context *VulkanContext, path string) (vk.ShaderModule, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		core.LogError("unable to read shader file %s: %s", path, err)
		return vk.NullShaderModule, core.ErrInitFailure
	}
	if len(code) == 0 || len(code)%4 != 0 {
		err := fmt.Errorf("shader file %s is not valid SPIR-V", path)
		core.LogError(err.Error())
		return vk.NullShaderModule, core.ErrInitFailure
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    bytesToBytecode(code),
	}
	var module vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module)); err != nil {
		err = fmt.Errorf("vkCreateShaderModule failed for %s with %s", path, err)
		core.LogError(err.Error())
		return vk.NullShaderModule, err
	}
	return module, nil
}

func ShaderModuleDestroy(context *VulkanContext, module vk.ShaderModule) {
	if module != vk.NullShaderModule {
		vk.DestroyShaderModule(context.Device.LogicalDevice, module, context.Allocator)
	}
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteIndex := i * 4
		byteCode[i] = uint32(b[byteIndex]) |
			uint32(b[byteIndex+1])<<8 |
			uint32(b[byteIndex+2])<<16 |
			uint32(b[byteIndex+3])<<24
	}
	return byteCode
}
