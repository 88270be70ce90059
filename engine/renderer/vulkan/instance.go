package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/Eiton/vulkan"
	"github.com/spaghettifunk/reverie/engine/core"
)

var validationLayers = []string{
	"VK_LAYER_KHRONOS_validation\x00",
}

// InstanceCreate builds the Vulkan instance with the window-system
// surface extensions, validation layers when available, and the
// portability-enumeration bit on darwin.
func InstanceCreate(context *VulkanContext, applicationName string, surfaceExtensions []string, enableValidation bool) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         vk.MakeVersion(1, 3, 0),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PApplicationName:   applicationName + "\x00",
		PEngineName:        "Reverie Engine\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
	}

	instanceExtensions := make([]string, 0, len(surfaceExtensions)+1)
	for _, ext := range surfaceExtensions {
		instanceExtensions = append(instanceExtensions, ext+"\x00")
	}

	createInfo := &vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(instanceExtensions)),
		PpEnabledExtensionNames: instanceExtensions,
		EnabledLayerCount:       0,
		PpEnabledLayerNames:     []string{},
	}
	if runtime.GOOS == "darwin" {
		instanceExtensions = append(instanceExtensions, vk.KhrPortabilityEnumerationExtensionName+"\x00")
		createInfo.PpEnabledExtensionNames = instanceExtensions
		createInfo.EnabledExtensionCount = uint32(len(instanceExtensions))
		createInfo.Flags = vk.InstanceCreateFlags(vk.InstanceCreateEnumeratePortabilityBit)
	}
	if enableValidation {
		if checkValidationLayerSupport() {
			createInfo.EnabledLayerCount = uint32(len(validationLayers))
			createInfo.PpEnabledLayerNames = validationLayers
			core.LogInfo("Validation layers enabled.")
		} else {
			core.LogWarn("Vulkan validation layers requested but not available.")
		}
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(createInfo, context.Allocator, &instance)); err != nil {
		err = fmt.Errorf("vkCreateInstance failed with %s", err)
		core.LogError(err.Error())
		return err
	}
	context.Instance = instance
	vk.InitInstance(context.Instance)

	core.LogInfo("Vulkan instance created.")
	return nil
}

func InstanceDestroy(context *VulkanContext) {
	if context.Instance != nil {
		vk.DestroyInstance(context.Instance, context.Allocator)
		context.Instance = nil
	}
}

func checkValidationLayerSupport() bool {
	var layerCount uint32
	vk.EnumerateInstanceLayerProperties(&layerCount, nil)
	layerProperties := make([]vk.LayerProperties, layerCount)
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&layerCount, layerProperties)); err != nil {
		return false
	}
	for _, layerName := range validationLayers {
		found := false
		for _, layerProperty := range layerProperties {
			layerProperty.Deref()
			s := vk.ToString(layerProperty.LayerName[:])
			if s == layerName[:len(layerName)-1] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
