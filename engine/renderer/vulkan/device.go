package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func (vr *VulkanRenderer) EnumeratePhysicalDevices(instance metadata.Handle) ([]metadata.Handle, error) {
	vi := lookup[*VulkanInstance](vr.context, instance)

	var physicalDeviceCount uint32
	if err := resultError("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(vi.Handle, &physicalDeviceCount, nil)); err != nil {
		return nil, err
	}
	if physicalDeviceCount == 0 {
		return nil, nil
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if err := resultError("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(vi.Handle, &physicalDeviceCount, physicalDevices)); err != nil {
		return nil, err
	}

	handles := make([]metadata.Handle, 0, physicalDeviceCount)
	for _, gpu := range physicalDevices[:physicalDeviceCount] {
		handles = append(handles, vr.context.put(gpu))
	}
	return handles, nil
}

func (vr *VulkanRenderer) GetPhysicalDeviceProperties(gpu metadata.Handle) metadata.PhysicalDeviceProperties {
	pd := lookup[vk.PhysicalDevice](vr.context, gpu)

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &properties)
	properties.Deref()

	out := metadata.PhysicalDeviceProperties{
		Name:          cString(properties.DeviceName[:]),
		Type:          metadata.PhysicalDeviceType(properties.DeviceType),
		APIVersion:    properties.ApiVersion,
		DriverVersion: properties.DriverVersion,
		VendorID:      properties.VendorID,
		DeviceID:      properties.DeviceID,
	}

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &memory)
	memory.Deref()
	for j := uint32(0); j < memory.MemoryHeapCount; j++ {
		heap := memory.MemoryHeaps[j]
		heap.Deref()
		out.MemoryHeaps = append(out.MemoryHeaps, metadata.MemoryHeap{
			Size:        uint64(heap.Size),
			DeviceLocal: vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0,
		})
	}
	return out
}

func (vr *VulkanRenderer) GetPhysicalDeviceFeatures(gpu metadata.Handle) metadata.PhysicalDeviceFeatures {
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(lookup[vk.PhysicalDevice](vr.context, gpu), &features)
	features.Deref()
	return metadata.PhysicalDeviceFeatures{
		SamplerAnisotropy: features.SamplerAnisotropy == vk.True,
		GeometryShader:    features.GeometryShader == vk.True,
	}
}

func (vr *VulkanRenderer) GetQueueFamilyProperties(gpu metadata.Handle) []metadata.QueueFamilyProperties {
	pd := lookup[vk.PhysicalDevice](vr.context, gpu)

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &queueFamilyCount, queueFamilies)

	out := make([]metadata.QueueFamilyProperties, queueFamilyCount)
	for i := range out {
		queueFamilies[i].Deref()
		out[i] = metadata.QueueFamilyProperties{
			Flags:      metadata.QueueFlags(queueFamilies[i].QueueFlags),
			QueueCount: queueFamilies[i].QueueCount,
		}
	}
	return out
}

func (vr *VulkanRenderer) EnumerateDeviceExtensions(gpu metadata.Handle) ([]string, error) {
	pd := lookup[vk.PhysicalDevice](vr.context, gpu)

	var availableExtensionCount uint32
	if err := resultError("vkEnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(pd, "", &availableExtensionCount, nil)); err != nil {
		return nil, err
	}
	if availableExtensionCount == 0 {
		return nil, nil
	}
	availableExtensions := make([]vk.ExtensionProperties, availableExtensionCount)
	if err := resultError("vkEnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(pd, "", &availableExtensionCount, availableExtensions)); err != nil {
		return nil, err
	}

	names := make([]string, 0, availableExtensionCount)
	for i := range availableExtensions[:availableExtensionCount] {
		availableExtensions[i].Deref()
		names = append(names, cString(availableExtensions[i].ExtensionName[:]))
	}
	return names, nil
}

func (vr *VulkanRenderer) GetSurfaceSupport(gpu metadata.Handle, family uint32, surface metadata.Handle) (bool, error) {
	var supportsPresent vk.Bool32
	res := vk.GetPhysicalDeviceSurfaceSupport(
		lookup[vk.PhysicalDevice](vr.context, gpu),
		family,
		lookup[vk.Surface](vr.context, surface),
		&supportsPresent)
	if err := resultError("vkGetPhysicalDeviceSurfaceSupportKHR", res); err != nil {
		return false, err
	}
	return supportsPresent.B(), nil
}

func (vr *VulkanRenderer) GetSurfaceCapabilities(gpu, surface metadata.Handle) (metadata.SurfaceCapabilities, error) {
	var capabilities vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(
		lookup[vk.PhysicalDevice](vr.context, gpu),
		lookup[vk.Surface](vr.context, surface),
		&capabilities)
	if err := resultError("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res); err != nil {
		return metadata.SurfaceCapabilities{}, err
	}
	capabilities.Deref()
	return metadata.SurfaceCapabilities{
		MinImageCount:       capabilities.MinImageCount,
		MaxImageCount:       capabilities.MaxImageCount,
		CurrentExtent:       fromExtent(capabilities.CurrentExtent),
		MinImageExtent:      fromExtent(capabilities.MinImageExtent),
		MaxImageExtent:      fromExtent(capabilities.MaxImageExtent),
		SupportedUsage:      metadata.ImageUsageFlags(capabilities.SupportedUsageFlags),
		CurrentTransform:    uint32(capabilities.CurrentTransform),
		SupportedTransforms: uint32(capabilities.SupportedTransforms),
	}, nil
}

func (vr *VulkanRenderer) GetSurfaceFormats(gpu, surface metadata.Handle) ([]metadata.SurfaceFormat, error) {
	pd := lookup[vk.PhysicalDevice](vr.context, gpu)
	s := lookup[vk.Surface](vr.context, surface)

	var formatCount uint32
	if err := resultError("vkGetPhysicalDeviceSurfaceFormatsKHR", vk.GetPhysicalDeviceSurfaceFormats(pd, s, &formatCount, nil)); err != nil {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	if formatCount != 0 {
		if err := resultError("vkGetPhysicalDeviceSurfaceFormatsKHR", vk.GetPhysicalDeviceSurfaceFormats(pd, s, &formatCount, formats)); err != nil {
			return nil, err
		}
	}

	out := make([]metadata.SurfaceFormat, formatCount)
	for i := range out {
		formats[i].Deref()
		out[i] = metadata.SurfaceFormat{
			Format:     metadata.Format(formats[i].Format),
			ColorSpace: metadata.ColorSpace(formats[i].ColorSpace),
		}
	}
	return out, nil
}

func (vr *VulkanRenderer) GetSurfacePresentModes(gpu, surface metadata.Handle) ([]metadata.PresentMode, error) {
	pd := lookup[vk.PhysicalDevice](vr.context, gpu)
	s := lookup[vk.Surface](vr.context, surface)

	var presentModeCount uint32
	if err := resultError("vkGetPhysicalDeviceSurfacePresentModesKHR", vk.GetPhysicalDeviceSurfacePresentModes(pd, s, &presentModeCount, nil)); err != nil {
		return nil, err
	}
	presentModes := make([]vk.PresentMode, presentModeCount)
	if presentModeCount != 0 {
		if err := resultError("vkGetPhysicalDeviceSurfacePresentModesKHR", vk.GetPhysicalDeviceSurfacePresentModes(pd, s, &presentModeCount, presentModes)); err != nil {
			return nil, err
		}
	}

	out := make([]metadata.PresentMode, presentModeCount)
	for i := range out {
		out[i] = metadata.PresentMode(presentModes[i])
	}
	return out, nil
}

func (vr *VulkanRenderer) CreateDevice(info *metadata.DeviceCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeDeviceCreateInfo)
	pd := lookup[vk.PhysicalDevice](vr.context, info.PhysicalDevice)

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	seen := make(map[uint32]bool, len(info.QueueFamilies))
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, 0, len(info.QueueFamilies))
	for _, family := range info.QueueFamilies {
		if seen[family] {
			continue
		}
		seen[family] = true
		queueCreateInfos = append(queueCreateInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: vkBool(info.Features.SamplerAnisotropy),
		GeometryShader:    vkBool(info.Features.GeometryShader),
	}

	extensionNames := VulkanSafeStrings(info.Extensions)
	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: extensionNames,
		// Deprecated and ignored, so pass nothing.
		EnabledLayerCount:   0,
		PpEnabledLayerNames: nil,
	}

	var logical vk.Device
	if err := resultError("vkCreateDevice", vk.CreateDevice(pd, &deviceCreateInfo, vr.context.Allocator, &logical)); err != nil {
		return metadata.NullHandle, err
	}
	core.LogInfo("Logical device created.")

	device := &VulkanDevice{PhysicalDevice: pd, LogicalDevice: logical}
	vk.GetPhysicalDeviceMemoryProperties(pd, &device.Memory)
	device.Memory.Deref()
	return vr.context.put(device), nil
}

func (vr *VulkanRenderer) DestroyDevice(device metadata.Handle) {
	core.LogInfo("Destroying logical device...")
	vk.DestroyDevice(vr.logicalDevice(device), vr.context.Allocator)
	vr.context.remove(device)
}

func (vr *VulkanRenderer) GetDeviceQueue(device metadata.Handle, family, index uint32) metadata.Handle {
	d := lookup[*VulkanDevice](vr.context, device)
	q := &VulkanQueue{FamilyIndex: family}
	vk.GetDeviceQueue(d.LogicalDevice, family, index, &q.Handle)
	return vr.context.put(q)
}

func (vr *VulkanRenderer) DeviceWaitIdle(device metadata.Handle) metadata.Result {
	return toResult(vk.DeviceWaitIdle(lookup[*VulkanDevice](vr.context, device).LogicalDevice))
}

func (vr *VulkanRenderer) CreateCommandPool(device metadata.Handle, info *metadata.CommandPoolCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeCommandPoolCreateInfo)
	d := lookup[*VulkanDevice](vr.context, device)

	var flags vk.CommandPoolCreateFlagBits
	if info.ResetCommandBuffer {
		flags |= vk.CommandPoolCreateResetCommandBufferBit
	}
	if info.Transient {
		flags |= vk.CommandPoolCreateTransientBit
	}
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: info.QueueFamilyIndex,
		Flags:            vk.CommandPoolCreateFlags(flags),
	}

	var pool vk.CommandPool
	err := vr.locks.SafeCall(CommandPoolManagement, func() error {
		return resultError("vkCreateCommandPool", vk.CreateCommandPool(d.LogicalDevice, &poolCreateInfo, vr.context.Allocator, &pool))
	})
	if err != nil {
		return metadata.NullHandle, err
	}
	core.LogDebug("Command pool created for queue family %d.", info.QueueFamilyIndex)
	return vr.context.put(pool), nil
}

func (vr *VulkanRenderer) DestroyCommandPool(device, pool metadata.Handle) {
	d := lookup[*VulkanDevice](vr.context, device)
	p := lookup[vk.CommandPool](vr.context, pool)
	_ = vr.locks.SafeCall(CommandPoolManagement, func() error {
		vk.DestroyCommandPool(d.LogicalDevice, p, vr.context.Allocator)
		return nil
	})
	vr.context.remove(pool)
}

func (vr *VulkanRenderer) logicalDevice(device metadata.Handle) vk.Device {
	return lookup[*VulkanDevice](vr.context, device).LogicalDevice
}
