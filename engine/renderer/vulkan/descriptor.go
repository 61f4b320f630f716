package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func (vr *VulkanRenderer) CreateDescriptorPool(device metadata.Handle, info *metadata.DescriptorPoolCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeDescriptorPoolCreateInfo)
	logical := vr.logicalDevice(device)

	poolSizes := make([]vk.DescriptorPoolSize, len(info.PoolSizes))
	for i, s := range info.PoolSizes {
		poolSizes[i] = vk.DescriptorPoolSize{
			Type:            vk.DescriptorType(s.Type),
			DescriptorCount: s.Count,
		}
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       info.MaxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	out := &VulkanDescriptorPool{}
	err := vr.locks.SafeCall(DescriptorManagement, func() error {
		return resultError("vkCreateDescriptorPool", vk.CreateDescriptorPool(logical, &poolInfo, vr.context.Allocator, &out.Handle))
	})
	if err != nil {
		return metadata.NullHandle, err
	}
	return vr.context.put(out), nil
}

func (vr *VulkanRenderer) DestroyDescriptorPool(device, pool metadata.Handle) {
	logical := vr.logicalDevice(device)
	p := lookup[*VulkanDescriptorPool](vr.context, pool)
	_ = vr.locks.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorPool(logical, p.Handle, vr.context.Allocator)
		return nil
	})
	for _, set := range p.Sets {
		vr.context.remove(set)
	}
	vr.context.remove(pool)
}

func (vr *VulkanRenderer) AllocateDescriptorSets(device metadata.Handle, info *metadata.DescriptorSetAllocateInfo) ([]metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeDescriptorSetAllocateInfo)
	logical := vr.logicalDevice(device)
	p := lookup[*VulkanDescriptorPool](vr.context, info.Pool)

	layouts := lookupAll[vk.DescriptorSetLayout](vr.context, info.SetLayouts)
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.Handle,
		DescriptorSetCount: uint32(len(layouts)),
		PSetLayouts:        layouts,
	}

	sets := make([]vk.DescriptorSet, len(layouts))
	if len(sets) == 0 {
		return nil, nil
	}
	err := vr.locks.SafeCall(DescriptorManagement, func() error {
		return resultError("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(logical, &allocateInfo, &sets[0]))
	})
	if err != nil {
		return nil, err
	}

	handles := make([]metadata.Handle, len(sets))
	for i, set := range sets {
		handles[i] = vr.context.put(set)
	}
	p.Sets = append(p.Sets, handles...)
	return handles, nil
}

func (vr *VulkanRenderer) UpdateDescriptorBuffer(device metadata.Handle, write *metadata.DescriptorBufferWrite) {
	metadata.MustStructureType(write.SType, metadata.StructureTypeWriteDescriptorSet)

	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: lookup[*VulkanBuffer](vr.context, write.Buffer).Handle,
		Offset: vk.DeviceSize(write.Offset),
		Range:  vk.DeviceSize(write.Range),
	}
	writes := []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          lookup[vk.DescriptorSet](vr.context, write.Set),
		DstBinding:      write.Binding,
		DstArrayElement: 0,
		DescriptorType:  vk.DescriptorType(write.Type),
		DescriptorCount: 1,
		PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
	}}
	vk.UpdateDescriptorSets(vr.logicalDevice(device), uint32(len(writes)), writes, 0, nil)
}
