package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func (vr *VulkanRenderer) CreateSwapchain(device metadata.Handle, info *metadata.SwapchainCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeSwapchainCreateInfo)
	logical := vr.logicalDevice(device)

	var oldSwapchain vk.Swapchain = vk.NullSwapchain
	if !info.OldSwapchain.IsNull() {
		oldSwapchain = lookup[*VulkanSwapchain](vr.context, info.OldSwapchain).Handle
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          lookup[vk.Surface](vr.context, info.Surface),
		MinImageCount:    info.MinImageCount,
		ImageFormat:      vk.Format(info.Format.Format),
		ImageColorSpace:  vk.ColorSpace(info.Format.ColorSpace),
		ImageExtent:      toExtent(info.Extent),
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(info.ImageUsage),
		PreTransform:     vk.SurfaceTransformFlagBits(info.PreTransform),
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentMode(info.PresentMode),
		Clipped:          vkBool(info.Clipped),
		OldSwapchain:     oldSwapchain,
	}

	// Setup the queue family indices
	if len(info.QueueFamilies) > 1 {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = uint32(len(info.QueueFamilies))
		swapchainCreateInfo.PQueueFamilyIndices = info.QueueFamilies
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
		swapchainCreateInfo.QueueFamilyIndexCount = 0
		swapchainCreateInfo.PQueueFamilyIndices = nil
	}

	var handle vk.Swapchain
	err := vr.locks.SafeCall(SwapchainManagement, func() error {
		return resultError("vkCreateSwapchainKHR", vk.CreateSwapchain(logical, &swapchainCreateInfo, vr.context.Allocator, &handle))
	})
	if err != nil {
		return metadata.NullHandle, err
	}
	core.LogDebug("Swapchain created: %dx%d, %s.", info.Extent.Width, info.Extent.Height, info.PresentMode)
	return vr.context.put(&VulkanSwapchain{Handle: handle}), nil
}

func (vr *VulkanRenderer) DestroySwapchain(device, swapchain metadata.Handle) {
	logical := vr.logicalDevice(device)
	sc := lookup[*VulkanSwapchain](vr.context, swapchain)
	_ = vr.locks.SafeCall(SwapchainManagement, func() error {
		vk.DestroySwapchain(logical, sc.Handle, vr.context.Allocator)
		return nil
	})
	// Images are owned by the swapchain and go with it.
	for _, img := range sc.Images {
		vr.context.remove(img)
	}
	vr.context.remove(swapchain)
}

func (vr *VulkanRenderer) GetSwapchainImages(device, swapchain metadata.Handle) ([]metadata.Handle, error) {
	logical := vr.logicalDevice(device)
	sc := lookup[*VulkanSwapchain](vr.context, swapchain)

	var imageCount uint32
	if err := resultError("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(logical, sc.Handle, &imageCount, nil)); err != nil {
		return nil, err
	}
	images := make([]vk.Image, imageCount)
	if err := resultError("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(logical, sc.Handle, &imageCount, images)); err != nil {
		return nil, err
	}

	// Repeated queries hand out the same handles.
	if len(sc.Images) == int(imageCount) {
		return append([]metadata.Handle(nil), sc.Images...), nil
	}
	for _, img := range sc.Images {
		vr.context.remove(img)
	}
	sc.Images = make([]metadata.Handle, imageCount)
	for i := range sc.Images {
		sc.Images[i] = vr.context.put(images[i])
	}
	return append([]metadata.Handle(nil), sc.Images...), nil
}

func (vr *VulkanRenderer) CreateImageView(device metadata.Handle, info *metadata.ImageViewCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeImageViewCreateInfo)

	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    lookup[vk.Image](vr.context, info.Image),
		ViewType: vk.ImageViewType2d,
		Format:   vk.Format(info.Format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if err := resultError("vkCreateImageView", vk.CreateImageView(vr.logicalDevice(device), &viewCreateInfo, vr.context.Allocator, &view)); err != nil {
		return metadata.NullHandle, err
	}
	return vr.context.put(view), nil
}

func (vr *VulkanRenderer) DestroyImageView(device, view metadata.Handle) {
	vk.DestroyImageView(vr.logicalDevice(device), lookup[vk.ImageView](vr.context, view), vr.context.Allocator)
	vr.context.remove(view)
}
