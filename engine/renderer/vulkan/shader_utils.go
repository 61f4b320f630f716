package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func (vr *VulkanRenderer) CreateShaderModule(device metadata.Handle, info *metadata.ShaderModuleCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeShaderModuleCreateInfo)
	if len(info.Code) == 0 || len(info.Code)%4 != 0 {
		return metadata.NullHandle, errors.Newf("shader code size %d is not a multiple of 4", len(info.Code))
	}

	// Use the binary's size and data directly.
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(info.Code)),
		PCode:    repackUint32(info.Code),
	}

	var module vk.ShaderModule
	if err := resultError("vkCreateShaderModule", vk.CreateShaderModule(vr.logicalDevice(device), &createInfo, vr.context.Allocator, &module)); err != nil {
		return metadata.NullHandle, err
	}
	return vr.context.put(module), nil
}

func (vr *VulkanRenderer) DestroyShaderModule(device, module metadata.Handle) {
	vk.DestroyShaderModule(vr.logicalDevice(device), lookup[vk.ShaderModule](vr.context, module), vr.context.Allocator)
	vr.context.remove(module)
}
