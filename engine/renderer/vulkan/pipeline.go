package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func (vr *VulkanRenderer) CreateDescriptorSetLayout(device metadata.Handle, info *metadata.DescriptorSetLayoutCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeDescriptorSetLayoutCreateInfo)

	bindings := make([]vk.DescriptorSetLayoutBinding, len(info.Bindings))
	for i, b := range info.Bindings {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  vk.DescriptorType(b.Type),
			DescriptorCount: b.Count,
			StageFlags:      vk.ShaderStageFlags(b.StageFlags),
		}
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var layout vk.DescriptorSetLayout
	if err := resultError("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(vr.logicalDevice(device), &layoutInfo, vr.context.Allocator, &layout)); err != nil {
		return metadata.NullHandle, err
	}
	return vr.context.put(layout), nil
}

func (vr *VulkanRenderer) DestroyDescriptorSetLayout(device, layout metadata.Handle) {
	vk.DestroyDescriptorSetLayout(vr.logicalDevice(device), lookup[vk.DescriptorSetLayout](vr.context, layout), vr.context.Allocator)
	vr.context.remove(layout)
}

func (vr *VulkanRenderer) CreatePipelineLayout(device metadata.Handle, info *metadata.PipelineLayoutCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypePipelineLayoutCreateInfo)
	logical := vr.logicalDevice(device)

	setLayouts := lookupAll[vk.DescriptorSetLayout](vr.context, info.SetLayouts)
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: 0,
		PPushConstantRanges:    nil,
	}

	var layout vk.PipelineLayout
	err := vr.locks.SafeCall(PipelineManagement, func() error {
		return resultError("vkCreatePipelineLayout", vk.CreatePipelineLayout(logical, &pipelineLayoutCreateInfo, vr.context.Allocator, &layout))
	})
	if err != nil {
		return metadata.NullHandle, err
	}
	return vr.context.put(layout), nil
}

func (vr *VulkanRenderer) DestroyPipelineLayout(device, layout metadata.Handle) {
	logical := vr.logicalDevice(device)
	l := lookup[vk.PipelineLayout](vr.context, layout)
	_ = vr.locks.SafeCall(PipelineManagement, func() error {
		vk.DestroyPipelineLayout(logical, l, vr.context.Allocator)
		return nil
	})
	vr.context.remove(layout)
}

func cullModeFlags(mode metadata.FaceCullMode) vk.CullModeFlags {
	switch mode {
	case metadata.FaceCullModeNone:
		return vk.CullModeFlags(vk.CullModeNone)
	case metadata.FaceCullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.FaceCullModeFrontAndBack:
		return vk.CullModeFlags(vk.CullModeFrontAndBack)
	default:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
}

func (vr *VulkanRenderer) CreateGraphicsPipeline(device metadata.Handle, info *metadata.GraphicsPipelineCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeGraphicsPipelineCreateInfo)
	logical := vr.logicalDevice(device)

	stages := make([]vk.PipelineShaderStageCreateInfo, len(info.Stages))
	for i, s := range info.Stages {
		stages[i] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFlagBits(s.Stage),
			Module: lookup[vk.ShaderModule](vr.context, s.Module),
			PName:  VulkanSafeString(s.EntryPoint),
		}
	}

	// Viewport state
	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(info.Extent.Width),
		Height:   float32(info.Extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: toExtent(info.Extent),
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{scissor},
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonMode(info.Raster.PolygonMode),
		LineWidth:               info.Raster.LineWidth,
		CullMode:                cullModeFlags(info.Raster.CullMode),
		FrontFace:               vk.FrontFace(info.Raster.FrontFace),
		DepthBiasEnable:         vk.False,
	}

	// Multisampling.
	samples := info.Multisample.SampleCount
	if samples == 0 {
		samples = 1
	}
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vkBool(info.Multisample.SampleShading),
		RasterizationSamples:  vk.SampleCountFlagBits(samples),
		MinSampleShading:      info.Multisample.MinSampleShading,
		PSampleMask:           nil,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vkBool(info.Blend.Enabled),
		SrcColorBlendFactor: vk.BlendFactor(info.Blend.SrcColorFactor),
		DstColorBlendFactor: vk.BlendFactor(info.Blend.DstColorFactor),
		ColorBlendOp:        vk.BlendOp(info.Blend.ColorOp),
		SrcAlphaBlendFactor: vk.BlendFactor(info.Blend.SrcAlphaFactor),
		DstAlphaBlendFactor: vk.BlendFactor(info.Blend.DstAlphaFactor),
		AlphaBlendOp:        vk.BlendOp(info.Blend.AlphaOp),
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	// Vertex input
	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   info.VertexLayout.Binding,
		Stride:    info.VertexLayout.Stride,
		InputRate: vk.VertexInputRateVertex, // Move to next data entry for each vertex.
	}
	attributes := make([]vk.VertexInputAttributeDescription, len(info.VertexLayout.Attributes))
	for i, a := range info.VertexLayout.Attributes {
		attributes[i] = vk.VertexInputAttributeDescription{
			Binding:  info.VertexLayout.Binding,
			Location: a.Location,
			Format:   vk.Format(a.Format),
			Offset:   a.Offset,
		}
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDescription},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}
	if info.VertexLayout.Stride == 0 {
		vertexInputInfo.VertexBindingDescriptionCount = 0
		vertexInputInfo.PVertexBindingDescriptions = nil
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopology(info.Raster.Topology),
		PrimitiveRestartEnable: vk.False,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  nil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PTessellationState:  nil,
		Layout:              lookup[vk.PipelineLayout](vr.context, info.Layout),
		RenderPass:          lookup[vk.RenderPass](vr.context, info.RenderPass),
		Subpass:             info.Subpass,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	// Dynamic state
	if info.DynamicViewport {
		dynamicStates := []vk.DynamicState{
			vk.DynamicStateViewport,
			vk.DynamicStateScissor,
		}
		pipelineCreateInfo.PDynamicState = &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(dynamicStates)),
			PDynamicStates:    dynamicStates,
		}
	}

	pipelines := make([]vk.Pipeline, 1)
	err := vr.locks.SafeCall(PipelineManagement, func() error {
		return resultError("vkCreateGraphicsPipelines", vk.CreateGraphicsPipelines(
			logical,
			vk.NullPipelineCache,
			1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
			vr.context.Allocator,
			pipelines))
	})
	if err != nil {
		return metadata.NullHandle, err
	}

	core.LogDebug("Graphics pipeline created!")
	return vr.context.put(pipelines[0]), nil
}

func (vr *VulkanRenderer) DestroyPipeline(device, pipeline metadata.Handle) {
	logical := vr.logicalDevice(device)
	p := lookup[vk.Pipeline](vr.context, pipeline)
	_ = vr.locks.SafeCall(PipelineManagement, func() error {
		vk.DestroyPipeline(logical, p, vr.context.Allocator)
		return nil
	})
	vr.context.remove(pipeline)
}

func (vr *VulkanRenderer) CmdBindPipeline(buffer, pipeline metadata.Handle) {
	vk.CmdBindPipeline(lookup[vk.CommandBuffer](vr.context, buffer), vk.PipelineBindPointGraphics, lookup[vk.Pipeline](vr.context, pipeline))
}
