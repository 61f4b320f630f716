package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func (vr *VulkanRenderer) CreateBuffer(device metadata.Handle, info *metadata.BufferCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeBufferCreateInfo)
	d := lookup[*VulkanDevice](vr.context, device)

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(info.Size),
		Usage:       vk.BufferUsageFlags(info.Usage),
		SharingMode: vk.SharingModeExclusive, // NOTE: Only used in one queue.
	}

	out := &VulkanBuffer{Size: info.Size}
	if err := resultError("vkCreateBuffer", vk.CreateBuffer(d.LogicalDevice, &bufferInfo, vr.context.Allocator, &out.Handle)); err != nil {
		return metadata.NullHandle, err
	}

	// Gather memory requirements.
	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.LogicalDevice, out.Handle, &requirements)
	requirements.Deref()

	memoryIndex := d.FindMemoryIndex(requirements.MemoryTypeBits, vk.MemoryPropertyFlags(info.Properties))
	if memoryIndex == -1 {
		vk.DestroyBuffer(d.LogicalDevice, out.Handle, vr.context.Allocator)
		core.LogError("Unable to create vulkan buffer because the required memory type index was not found.")
		return metadata.NullHandle, errors.WithStack(metadata.NewResultError("find memory type", metadata.ResultErrorFeatureNotPresent))
	}

	// Allocate memory info
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	err := vr.locks.SafeCall(MemoryManagement, func() error {
		if err := resultError("vkAllocateMemory", vk.AllocateMemory(d.LogicalDevice, &allocateInfo, vr.context.Allocator, &out.Memory)); err != nil {
			return err
		}
		return resultError("vkBindBufferMemory", vk.BindBufferMemory(d.LogicalDevice, out.Handle, out.Memory, 0))
	})
	if err != nil {
		if out.Memory != vk.NullDeviceMemory {
			vk.FreeMemory(d.LogicalDevice, out.Memory, vr.context.Allocator)
		}
		vk.DestroyBuffer(d.LogicalDevice, out.Handle, vr.context.Allocator)
		return metadata.NullHandle, err
	}
	return vr.context.put(out), nil
}

func (vr *VulkanRenderer) DestroyBuffer(device, buffer metadata.Handle) {
	logical := vr.logicalDevice(device)
	b := lookup[*VulkanBuffer](vr.context, buffer)
	_ = vr.locks.SafeCall(MemoryManagement, func() error {
		vk.DestroyBuffer(logical, b.Handle, vr.context.Allocator)
		vk.FreeMemory(logical, b.Memory, vr.context.Allocator)
		return nil
	})
	vr.context.remove(buffer)
}

func (vr *VulkanRenderer) WriteBuffer(device, buffer metadata.Handle, offset uint64, data []byte) error {
	logical := vr.logicalDevice(device)
	b := lookup[*VulkanBuffer](vr.context, buffer)
	if offset+uint64(len(data)) > b.Size {
		return errors.Newf("write of %d bytes at offset %d overflows buffer of %d bytes", len(data), offset, b.Size)
	}
	if len(data) == 0 {
		return nil
	}

	return vr.locks.SafeCall(MemoryManagement, func() error {
		var pData unsafe.Pointer
		if err := resultError("vkMapMemory", vk.MapMemory(logical, b.Memory, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &pData)); err != nil {
			return err
		}
		vk.Memcopy(pData, data)
		vk.UnmapMemory(logical, b.Memory)
		return nil
	})
}
