package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func (vr *VulkanRenderer) CreateFramebuffer(device metadata.Handle, info *metadata.FramebufferCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeFramebufferCreateInfo)

	// Take a copy of the attachments.
	attachments := lookupAll[vk.ImageView](vr.context, info.Attachments)
	layers := info.Layers
	if layers == 0 {
		layers = 1
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      lookup[vk.RenderPass](vr.context, info.RenderPass),
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           info.Extent.Width,
		Height:          info.Extent.Height,
		Layers:          layers,
	}

	var framebuffer vk.Framebuffer
	if err := resultError("vkCreateFramebuffer", vk.CreateFramebuffer(vr.logicalDevice(device), &framebufferCreateInfo, vr.context.Allocator, &framebuffer)); err != nil {
		return metadata.NullHandle, err
	}
	return vr.context.put(framebuffer), nil
}

func (vr *VulkanRenderer) DestroyFramebuffer(device, framebuffer metadata.Handle) {
	vk.DestroyFramebuffer(vr.logicalDevice(device), lookup[vk.Framebuffer](vr.context, framebuffer), vr.context.Allocator)
	vr.context.remove(framebuffer)
}
