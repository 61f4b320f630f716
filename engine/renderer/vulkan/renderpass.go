package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func (vr *VulkanRenderer) CreateRenderPass(device metadata.Handle, info *metadata.RenderPassCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeRenderPassCreateInfo)

	attachmentDescriptions := make([]vk.AttachmentDescription, len(info.Attachments))
	colorAttachmentReferences := make([]vk.AttachmentReference, len(info.Attachments))
	for i, a := range info.Attachments {
		attachmentDescriptions[i] = vk.AttachmentDescription{
			Format:         vk.Format(a.Format),
			Samples:        vk.SampleCountFlagBits(a.Samples),
			LoadOp:         vk.AttachmentLoadOp(a.LoadOp),
			StoreOp:        vk.AttachmentStoreOp(a.StoreOp),
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayout(a.InitialLayout),
			FinalLayout:    vk.ImageLayout(a.FinalLayout),
		}
		colorAttachmentReferences[i] = vk.AttachmentReference{
			Attachment: uint32(i), // Attachment description array index
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}
	}

	// Main subpass
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorAttachmentReferences)),
		PColorAttachments:    colorAttachmentReferences,
	}

	dependencies := make([]vk.SubpassDependency, len(info.Dependencies))
	for i, d := range info.Dependencies {
		dependencies[i] = vk.SubpassDependency{
			SrcSubpass:    d.SrcSubpass,
			DstSubpass:    d.DstSubpass,
			SrcStageMask:  vk.PipelineStageFlags(d.SrcStageMask),
			DstStageMask:  vk.PipelineStageFlags(d.DstStageMask),
			SrcAccessMask: vk.AccessFlags(d.SrcAccessMask),
			DstAccessMask: vk.AccessFlags(d.DstAccessMask),
		}
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var renderPass vk.RenderPass
	if err := resultError("vkCreateRenderPass", vk.CreateRenderPass(vr.logicalDevice(device), &renderpassCreateInfo, vr.context.Allocator, &renderPass)); err != nil {
		return metadata.NullHandle, err
	}
	return vr.context.put(renderPass), nil
}

func (vr *VulkanRenderer) DestroyRenderPass(device, renderPass metadata.Handle) {
	vk.DestroyRenderPass(vr.logicalDevice(device), lookup[vk.RenderPass](vr.context, renderPass), vr.context.Allocator)
	vr.context.remove(renderPass)
}

func (vr *VulkanRenderer) CmdBeginRenderPass(buffer metadata.Handle, info *metadata.RenderPassBeginInfo) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeRenderPassBeginInfo)

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  lookup[vk.RenderPass](vr.context, info.RenderPass),
		Framebuffer: lookup[vk.Framebuffer](vr.context, info.Framebuffer),
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: toExtent(info.Extent),
		},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{vk.NewClearValue(info.ClearColor[:])},
	}
	vk.CmdBeginRenderPass(lookup[vk.CommandBuffer](vr.context, buffer), &beginInfo, vk.SubpassContentsInline)
}

func (vr *VulkanRenderer) CmdEndRenderPass(buffer metadata.Handle) {
	vk.CmdEndRenderPass(lookup[vk.CommandBuffer](vr.context, buffer))
}
