package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/Eiton/vulkan"
	"github.com/spaghettifunk/reverie/engine/core"
	"github.com/spaghettifunk/reverie/engine/renderer/metadata"
)

// VulkanPipeline holds a graphics pipeline and its layout.
type VulkanPipeline struct {
	Handle         vk.Pipeline
	PipelineLayout vk.PipelineLayout
}

// NewQuadPipeline builds the bindless quad pipeline: no vertex input,
// six synthesized vertices per instance, quad records pulled from the
// storage buffer at set 0 binding 0.
func NewQuadPipeline(context *VulkanContext, shaderDir string, colorFormat vk.Format, descriptorLayout vk.DescriptorSetLayout) (*VulkanPipeline, error) {
	vertModule, err := NewShaderModule(context, shaderDir+"/quad.vert.spv")
	if err != nil {
		return nil, err
	}
	defer ShaderModuleDestroy(context, vertModule)
	fragModule, err := NewShaderModule(context, shaderDir+"/quad.frag.spv")
	if err != nil {
		return nil, err
	}
	defer ShaderModuleDestroy(context, fragModule)

	layoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{descriptorLayout},
	}
	var layout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(context.Device.LogicalDevice, &layoutCreateInfo, context.Allocator, &layout)); err != nil {
		err = fmt.Errorf("quad pipeline layout creation failed with %s", err)
		core.LogError(err.Error())
		return nil, err
	}

	vertexInputState := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}

	pipeline, err := buildGraphicsPipeline(context, graphicsPipelineConfig{
		vertModule:       vertModule,
		fragModule:       fragModule,
		layout:           layout,
		vertexInputState: &vertexInputState,
		frontFace:        vk.FrontFaceClockwise,
		depthTest:        false,
		colorFormat:      colorFormat,
		depthFormat:      vk.FormatUndefined,
	})
	if err != nil {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, layout, context.Allocator)
		return nil, err
	}
	core.LogInfo("Quad pipeline created.")
	return &VulkanPipeline{Handle: pipeline, PipelineLayout: layout}, nil
}

// NewMeshPipeline builds the depth-tested mesh pipeline with the
// interleaved vertex layout and the mvp+tint push constant block.
func NewMeshPipeline(context *VulkanContext, shaderDir string, colorFormat, depthFormat vk.Format) (*VulkanPipeline, error) {
	vertModule, err := NewShaderModule(context, shaderDir+"/mesh.vert.spv")
	if err != nil {
		return nil, err
	}
	defer ShaderModuleDestroy(context, vertModule)
	fragModule, err := NewShaderModule(context, shaderDir+"/mesh.frag.spv")
	if err != nil {
		return nil, err
	}
	defer ShaderModuleDestroy(context, fragModule)

	pushConstantRange := vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit),
		Offset:     0,
		Size:       metadata.MeshPushConstantSize,
	}
	layoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		PushConstantRangeCount: 1,
		PPushConstantRanges:    []vk.PushConstantRange{pushConstantRange},
	}
	var layout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(context.Device.LogicalDevice, &layoutCreateInfo, context.Allocator, &layout)); err != nil {
		err = fmt.Errorf("mesh pipeline layout creation failed with %s", err)
		core.LogError(err.Error())
		return nil, err
	}

	binding := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    metadata.MeshVertexSize,
		InputRate: vk.VertexInputRateVertex,
	}
	attributes := []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: 24},
	}
	vertexInputState := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{binding},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	pipeline, err := buildGraphicsPipeline(context, graphicsPipelineConfig{
		vertModule:       vertModule,
		fragModule:       fragModule,
		layout:           layout,
		vertexInputState: &vertexInputState,
		frontFace:        vk.FrontFaceCounterClockwise,
		depthTest:        true,
		colorFormat:      colorFormat,
		depthFormat:      depthFormat,
	})
	if err != nil {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, layout, context.Allocator)
		return nil, err
	}
	core.LogInfo("Mesh pipeline created.")
	return &VulkanPipeline{Handle: pipeline, PipelineLayout: layout}, nil
}

type graphicsPipelineConfig struct {
	vertModule       vk.ShaderModule
	fragModule       vk.ShaderModule
	layout           vk.PipelineLayout
	vertexInputState *vk.PipelineVertexInputStateCreateInfo
	frontFace        vk.FrontFace
	depthTest        bool
	colorFormat      vk.Format
	depthFormat      vk.Format
}

func buildGraphicsPipeline(context *VulkanContext, cfg graphicsPipelineConfig) (vk.Pipeline, error) {
	shaderStages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: cfg.vertModule,
			PName:  "main\x00",
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: cfg.fragModule,
			PName:  "main\x00",
		},
	}

	inputAssemblyState := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	rasterState := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		LineWidth:   1.0,
		CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:   cfg.frontFace,
	}
	multisampleState := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}
	attachmentState := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(
			vk.ColorComponentRBit | vk.ColorComponentGBit |
				vk.ColorComponentBBit | vk.ColorComponentABit,
		),
		BlendEnable: vk.False,
	}
	colorBlendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{attachmentState},
	}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: 2,
		PDynamicStates:    []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor},
	}

	var depthStencilState *vk.PipelineDepthStencilStateCreateInfo
	if cfg.depthTest {
		depthStencilState = &vk.PipelineDepthStencilStateCreateInfo{
			SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:  vk.True,
			DepthWriteEnable: vk.True,
			DepthCompareOp:   vk.CompareOpLess,
		}
	}

	pipelineRenderingCreateInfo := vk.PipelineRenderingCreateInfo{
		SType:                   vk.StructureTypePipelineRenderingCreateInfo,
		ColorAttachmentCount:    1,
		PColorAttachmentFormats: []vk.Format{cfg.colorFormat},
		DepthAttachmentFormat:   cfg.depthFormat,
		StencilAttachmentFormat: vk.FormatUndefined,
	}
	cPipelineRenderingCreateInfo, _ := pipelineRenderingCreateInfo.PassRef()

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          2,
		PStages:             shaderStages,
		PVertexInputState:   cfg.vertexInputState,
		PInputAssemblyState: &inputAssemblyState,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterState,
		PMultisampleState:   &multisampleState,
		PDepthStencilState:  depthStencilState,
		PColorBlendState:    &colorBlendState,
		PDynamicState:       &dynamicState,
		Layout:              cfg.layout,
		RenderPass:          nil,
		PNext:               unsafe.Pointer(cPipelineRenderingCreateInfo),
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := vk.Error(vk.CreateGraphicsPipelines(
		context.Device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		context.Allocator,
		pipelines)); err != nil {
		err = fmt.Errorf("vkCreateGraphicsPipelines failed with %s", err)
		core.LogError(err.Error())
		return vk.NullPipeline, err
	}
	return pipelines[0], nil
}

// PipelineDestroy releases the pipeline and its layout. Zero handles
// are ignored.
func PipelineDestroy(context *VulkanContext, pipeline *VulkanPipeline) {
	if pipeline == nil {
		return
	}
	if pipeline.Handle != vk.NullPipeline {
		vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
		pipeline.Handle = vk.NullPipeline
	}
	if pipeline.PipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, pipeline.PipelineLayout, context.Allocator)
		pipeline.PipelineLayout = vk.NullPipelineLayout
	}
}
