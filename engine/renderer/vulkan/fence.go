package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func (vr *VulkanRenderer) CreateSemaphore(device metadata.Handle, info *metadata.SemaphoreCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeSemaphoreCreateInfo)
	logical := vr.logicalDevice(device)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	err := vr.locks.SafeCall(SynchronizationManagement, func() error {
		return resultError("vkCreateSemaphore", vk.CreateSemaphore(logical, &semaphoreCreateInfo, vr.context.Allocator, &semaphore))
	})
	if err != nil {
		return metadata.NullHandle, err
	}
	return vr.context.put(semaphore), nil
}

func (vr *VulkanRenderer) DestroySemaphore(device, semaphore metadata.Handle) {
	vk.DestroySemaphore(vr.logicalDevice(device), lookup[vk.Semaphore](vr.context, semaphore), vr.context.Allocator)
	vr.context.remove(semaphore)
}

func (vr *VulkanRenderer) CreateFence(device metadata.Handle, info *metadata.FenceCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeFenceCreateInfo)
	logical := vr.logicalDevice(device)

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	// Make sure to signal the fence if required.
	if info.Signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	err := vr.locks.SafeCall(SynchronizationManagement, func() error {
		return resultError("vkCreateFence", vk.CreateFence(logical, &fenceCreateInfo, vr.context.Allocator, &fence))
	})
	if err != nil {
		return metadata.NullHandle, err
	}
	return vr.context.put(fence), nil
}

func (vr *VulkanRenderer) DestroyFence(device, fence metadata.Handle) {
	vk.DestroyFence(vr.logicalDevice(device), lookup[vk.Fence](vr.context, fence), vr.context.Allocator)
	vr.context.remove(fence)
}

func (vr *VulkanRenderer) WaitForFence(device, fence metadata.Handle, timeout uint64) metadata.Result {
	result := vk.WaitForFences(vr.logicalDevice(device), 1, []vk.Fence{lookup[vk.Fence](vr.context, fence)}, vk.True, timeout)
	switch result {
	case vk.Success, vk.Timeout:
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
	case vk.ErrorOutOfHostMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_HOST_MEMORY.")
	case vk.ErrorOutOfDeviceMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_DEVICE_MEMORY.")
	default:
		core.LogError("vk_fence_wait - An unknown error has occurred.")
	}
	return toResult(result)
}

func (vr *VulkanRenderer) ResetFence(device, fence metadata.Handle) metadata.Result {
	return toResult(vk.ResetFences(vr.logicalDevice(device), 1, []vk.Fence{lookup[vk.Fence](vr.context, fence)}))
}
