package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func (vr *VulkanRenderer) AllocateCommandBuffers(device metadata.Handle, info *metadata.CommandBufferAllocateInfo) ([]metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeCommandBufferAllocateInfo)
	logical := vr.logicalDevice(device)

	level := vk.CommandBufferLevelSecondary
	if info.Primary {
		level = vk.CommandBufferLevelPrimary
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        lookup[vk.CommandPool](vr.context, info.Pool),
		CommandBufferCount: info.Count,
		Level:              level,
	}

	buffers := make([]vk.CommandBuffer, info.Count)
	err := vr.locks.SafeCall(CommandPoolManagement, func() error {
		return resultError("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(logical, &allocateInfo, buffers))
	})
	if err != nil {
		return nil, err
	}

	handles := make([]metadata.Handle, len(buffers))
	for i, cb := range buffers {
		handles[i] = vr.context.put(cb)
	}
	return handles, nil
}

func (vr *VulkanRenderer) FreeCommandBuffers(device, pool metadata.Handle, buffers []metadata.Handle) {
	if len(buffers) == 0 {
		return
	}
	logical := vr.logicalDevice(device)
	p := lookup[vk.CommandPool](vr.context, pool)
	cbs := lookupAll[vk.CommandBuffer](vr.context, buffers)
	_ = vr.locks.SafeCall(CommandPoolManagement, func() error {
		vk.FreeCommandBuffers(logical, p, uint32(len(cbs)), cbs)
		return nil
	})
	for _, h := range buffers {
		vr.context.remove(h)
	}
}

func (vr *VulkanRenderer) BeginCommandBuffer(buffer metadata.Handle, info *metadata.CommandBufferBeginInfo) error {
	metadata.MustStructureType(info.SType, metadata.StructureTypeCommandBufferBeginInfo)

	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	if info.Usage&metadata.CommandBufferUsageOneTimeSubmit != 0 {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	return resultError("vkBeginCommandBuffer", vk.BeginCommandBuffer(lookup[vk.CommandBuffer](vr.context, buffer), beginInfo))
}

func (vr *VulkanRenderer) EndCommandBuffer(buffer metadata.Handle) error {
	return resultError("vkEndCommandBuffer", vk.EndCommandBuffer(lookup[vk.CommandBuffer](vr.context, buffer)))
}

func (vr *VulkanRenderer) CmdCopyBuffer(buffer, src, dst metadata.Handle, size uint64) {
	vk.CmdCopyBuffer(
		lookup[vk.CommandBuffer](vr.context, buffer),
		lookup[*VulkanBuffer](vr.context, src).Handle,
		lookup[*VulkanBuffer](vr.context, dst).Handle,
		1,
		[]vk.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: vk.DeviceSize(size)}})
}

func (vr *VulkanRenderer) CmdSetViewportScissor(buffer metadata.Handle, extent metadata.Extent2D) {
	cb := lookup[vk.CommandBuffer](vr.context, buffer)
	vk.CmdSetViewport(cb, 0, 1, []vk.Viewport{{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}})
	vk.CmdSetScissor(cb, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: toExtent(extent),
	}})
}

func (vr *VulkanRenderer) CmdBindVertexBuffer(buffer, vertexBuffer metadata.Handle, offset uint64) {
	vk.CmdBindVertexBuffers(
		lookup[vk.CommandBuffer](vr.context, buffer),
		0,
		1,
		[]vk.Buffer{lookup[*VulkanBuffer](vr.context, vertexBuffer).Handle},
		[]vk.DeviceSize{vk.DeviceSize(offset)})
}

func (vr *VulkanRenderer) CmdBindIndexBuffer(buffer, indexBuffer metadata.Handle, offset uint64) {
	vk.CmdBindIndexBuffer(
		lookup[vk.CommandBuffer](vr.context, buffer),
		lookup[*VulkanBuffer](vr.context, indexBuffer).Handle,
		vk.DeviceSize(offset),
		vk.IndexTypeUint32)
}

func (vr *VulkanRenderer) CmdBindDescriptorSet(buffer, layout, set metadata.Handle) {
	vk.CmdBindDescriptorSets(
		lookup[vk.CommandBuffer](vr.context, buffer),
		vk.PipelineBindPointGraphics,
		lookup[vk.PipelineLayout](vr.context, layout),
		0,
		1,
		[]vk.DescriptorSet{lookup[vk.DescriptorSet](vr.context, set)},
		0,
		nil)
}

func (vr *VulkanRenderer) CmdDrawIndexed(buffer metadata.Handle, indexCount uint32) {
	vk.CmdDrawIndexed(lookup[vk.CommandBuffer](vr.context, buffer), indexCount, 1, 0, 0, 0)
}

func (vr *VulkanRenderer) AcquireNextImage(device, swapchain metadata.Handle, timeout uint64, semaphore metadata.Handle) (uint32, metadata.Result) {
	var imageIndex uint32
	result := vk.AcquireNextImage(
		vr.logicalDevice(device),
		lookup[*VulkanSwapchain](vr.context, swapchain).Handle,
		timeout,
		lookup[vk.Semaphore](vr.context, semaphore),
		vk.NullFence,
		&imageIndex)
	return imageIndex, toResult(result)
}

func (vr *VulkanRenderer) QueueSubmit(queue metadata.Handle, info *metadata.SubmitInfo, fence metadata.Handle) metadata.Result {
	metadata.MustStructureType(info.SType, metadata.StructureTypeSubmitInfo)
	q := lookup[*VulkanQueue](vr.context, queue)

	waitStages := make([]vk.PipelineStageFlags, len(info.WaitStages))
	for i, s := range info.WaitStages {
		waitStages[i] = vk.PipelineStageFlags(s)
	}
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(info.WaitSemaphores)),
		PWaitSemaphores:      lookupAll[vk.Semaphore](vr.context, info.WaitSemaphores),
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   uint32(len(info.CommandBuffers)),
		PCommandBuffers:      lookupAll[vk.CommandBuffer](vr.context, info.CommandBuffers),
		SignalSemaphoreCount: uint32(len(info.SignalSemaphores)),
		PSignalSemaphores:    lookupAll[vk.Semaphore](vr.context, info.SignalSemaphores),
	}
	f := lookup[vk.Fence](vr.context, fence)

	var result vk.Result
	_ = vr.locks.SafeQueueCall(q.FamilyIndex, func() error {
		result = vk.QueueSubmit(q.Handle, 1, []vk.SubmitInfo{submitInfo}, f)
		return nil
	})
	return toResult(result)
}

func (vr *VulkanRenderer) QueuePresent(queue metadata.Handle, info *metadata.PresentInfo) metadata.Result {
	metadata.MustStructureType(info.SType, metadata.StructureTypePresentInfo)
	q := lookup[*VulkanQueue](vr.context, queue)

	swapchains := make([]vk.Swapchain, len(info.Swapchains))
	for i, h := range info.Swapchains {
		swapchains[i] = lookup[*VulkanSwapchain](vr.context, h).Handle
	}
	// Return the image to the swapchain for presentation.
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(info.WaitSemaphores)),
		PWaitSemaphores:    lookupAll[vk.Semaphore](vr.context, info.WaitSemaphores),
		SwapchainCount:     uint32(len(swapchains)),
		PSwapchains:        swapchains,
		PImageIndices:      info.ImageIndices,
		PResults:           nil,
	}

	var result vk.Result
	_ = vr.locks.SafeQueueCall(q.FamilyIndex, func() error {
		result = vk.QueuePresent(q.Handle, &presentInfo)
		return nil
	})
	return toResult(result)
}

func (vr *VulkanRenderer) QueueWaitIdle(queue metadata.Handle) metadata.Result {
	q := lookup[*VulkanQueue](vr.context, queue)
	var result vk.Result
	_ = vr.locks.SafeQueueCall(q.FamilyIndex, func() error {
		result = vk.QueueWaitIdle(q.Handle)
		return nil
	})
	return toResult(result)
}
