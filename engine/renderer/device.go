package renderer

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

const (
	SwapchainExtensionName   = "VK_KHR_swapchain"
	PortabilitySubsetExtName = "VK_KHR_portability_subset"
)

// PhysicalDeviceInfo is a snapshot of one adapter taken during enumeration.
type PhysicalDeviceInfo struct {
	Handle        metadata.Handle
	Properties    metadata.PhysicalDeviceProperties
	Features      metadata.PhysicalDeviceFeatures
	Extensions    []string
	QueueFamilies []metadata.QueueFamilyProperties
}

func (p *PhysicalDeviceInfo) HasExtension(name string) bool {
	return slices.Contains(p.Extensions, name)
}

// QueueIndex is an optional queue family index.
type QueueIndex struct {
	Index uint32
	Valid bool
}

func someQueue(i uint32) QueueIndex {
	return QueueIndex{Index: i, Valid: true}
}

// QueueFamilyIndices resolves a family per queue role. A missing role is a valid state
// that callers must check.
type QueueFamilyIndices struct {
	Graphics QueueIndex
	Compute  QueueIndex
	Transfer QueueIndex
	Present  QueueIndex
}

// Unique returns every resolved family once, in graphics, present, compute, transfer order.
func (q QueueFamilyIndices) Unique() []uint32 {
	var out []uint32
	for _, qi := range []QueueIndex{q.Graphics, q.Present, q.Compute, q.Transfer} {
		if qi.Valid && !slices.Contains(out, qi.Index) {
			out = append(out, qi.Index)
		}
	}
	return out
}

// DeviceCriteria are the requirements an adapter must meet to be selected.
type DeviceCriteria struct {
	Graphics          bool
	Present           bool
	Compute           bool
	Transfer          bool
	Extensions        []string
	SamplerAnisotropy bool
}

func DefaultDeviceCriteria(extraExtensions ...string) DeviceCriteria {
	return DeviceCriteria{
		Graphics:   true,
		Present:    true,
		Compute:    true,
		Transfer:   true,
		Extensions: append([]string{SwapchainExtensionName}, extraExtensions...),
	}
}

func (c DeviceCriteria) satisfiedBy(q QueueFamilyIndices) bool {
	return (!c.Graphics || q.Graphics.Valid) &&
		(!c.Present || q.Present.Valid) &&
		(!c.Compute || q.Compute.Valid) &&
		(!c.Transfer || q.Transfer.Valid)
}

func EnumeratePhysicalDevices(drv metadata.Driver, instance metadata.Handle) ([]PhysicalDeviceInfo, error) {
	handles, err := drv.EnumeratePhysicalDevices(instance)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate physical devices")
	}
	out := make([]PhysicalDeviceInfo, 0, len(handles))
	for _, h := range handles {
		exts, err := drv.EnumerateDeviceExtensions(h)
		if err != nil {
			return nil, errors.Wrap(err, "enumerate device extensions")
		}
		out = append(out, PhysicalDeviceInfo{
			Handle:        h,
			Properties:    drv.GetPhysicalDeviceProperties(h),
			Features:      drv.GetPhysicalDeviceFeatures(h),
			Extensions:    exts,
			QueueFamilies: drv.GetQueueFamilyProperties(h),
		})
	}
	return out, nil
}

// FindQueueFamilies assigns a family to every role the adapter supports. Graphics and
// compute take the first capable family. Present prefers the graphics family. Transfer
// takes the family with the fewest other capabilities, which is most likely a dedicated
// transfer queue.
func FindQueueFamilies(drv metadata.Driver, gpu *PhysicalDeviceInfo, surface metadata.Handle) (QueueFamilyIndices, error) {
	var out QueueFamilyIndices
	minTransferScore := 255
	for i, family := range gpu.QueueFamilies {
		idx := uint32(i)
		if family.QueueCount == 0 {
			continue
		}
		score := 0
		if family.Flags&metadata.QueueGraphics != 0 {
			if !out.Graphics.Valid {
				out.Graphics = someQueue(idx)
			}
			score++
		}
		if family.Flags&metadata.QueueCompute != 0 {
			if !out.Compute.Valid {
				out.Compute = someQueue(idx)
			}
			score++
		}
		if family.Flags&metadata.QueueTransfer != 0 && score < minTransferScore {
			minTransferScore = score
			out.Transfer = someQueue(idx)
		}
		supported, err := drv.GetSurfaceSupport(gpu.Handle, idx, surface)
		if err != nil {
			return out, errors.Wrap(err, "query surface support")
		}
		if supported && (!out.Present.Valid || (out.Graphics.Valid && out.Graphics.Index == idx)) {
			out.Present = someQueue(idx)
		}
	}
	return out, nil
}

// devicePriority ranks adapter types. Higher wins.
func devicePriority(t metadata.PhysicalDeviceType) int {
	switch t {
	case metadata.PhysicalDeviceTypeDiscrete:
		return 2
	case metadata.PhysicalDeviceTypeIntegrated:
		return 1
	default:
		return 0
	}
}

func meetsRequirements(drv metadata.Driver, gpu *PhysicalDeviceInfo, surface metadata.Handle, criteria DeviceCriteria) (QueueFamilyIndices, bool, error) {
	indices, err := FindQueueFamilies(drv, gpu, surface)
	if err != nil {
		return indices, false, err
	}

	core.LogInfo("Graphics | Present | Compute | Transfer | Name")
	core.LogInfo("   %5t |   %5t |   %5t |    %5t | %s",
		indices.Graphics.Valid, indices.Present.Valid, indices.Compute.Valid, indices.Transfer.Valid,
		gpu.Properties.Name)

	if !criteria.satisfiedBy(indices) {
		core.LogInfo("Device '%s' does not meet queue requirements, skipping.", gpu.Properties.Name)
		return indices, false, nil
	}
	for _, ext := range criteria.Extensions {
		if !gpu.HasExtension(ext) {
			core.LogInfo("Required extension not found: '%s', skipping device.", ext)
			return indices, false, nil
		}
	}
	if criteria.SamplerAnisotropy && !gpu.Features.SamplerAnisotropy {
		core.LogInfo("Device does not support samplerAnisotropy, skipping.")
		return indices, false, nil
	}

	formats, err := drv.GetSurfaceFormats(gpu.Handle, surface)
	if err != nil {
		return indices, false, errors.Wrap(err, "query surface formats")
	}
	modes, err := drv.GetSurfacePresentModes(gpu.Handle, surface)
	if err != nil {
		return indices, false, errors.Wrap(err, "query present modes")
	}
	if len(formats) == 0 || len(modes) == 0 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return indices, false, nil
	}
	return indices, true, nil
}

// SelectPhysicalDevice picks the qualifying adapter with the highest type priority
// (discrete, then integrated, then anything else). The first adapter wins a tie.
func SelectPhysicalDevice(drv metadata.Driver, instance, surface metadata.Handle, criteria DeviceCriteria) (PhysicalDeviceInfo, QueueFamilyIndices, error) {
	gpus, err := EnumeratePhysicalDevices(drv, instance)
	if err != nil {
		return PhysicalDeviceInfo{}, QueueFamilyIndices{}, err
	}
	if len(gpus) == 0 {
		return PhysicalDeviceInfo{}, QueueFamilyIndices{}, errors.Wrap(core.ErrNoSuitableDevice, "no devices which support Vulkan were found")
	}

	best := -1
	var bestIndices QueueFamilyIndices
	for i := range gpus {
		indices, ok, err := meetsRequirements(drv, &gpus[i], surface, criteria)
		if err != nil {
			return PhysicalDeviceInfo{}, QueueFamilyIndices{}, err
		}
		if !ok {
			continue
		}
		if best < 0 || devicePriority(gpus[i].Properties.Type) > devicePriority(gpus[best].Properties.Type) {
			best = i
			bestIndices = indices
		}
	}
	if best < 0 {
		return PhysicalDeviceInfo{}, QueueFamilyIndices{}, errors.Wrapf(core.ErrNoSuitableDevice,
			"none of %d physical devices meet the requirements", len(gpus))
	}

	selected := gpus[best]
	logDeviceInfo(&selected, bestIndices)
	return selected, bestIndices, nil
}

func versionString(v uint32) (uint32, uint32, uint32) {
	return v >> 22, (v >> 12) & 0x3ff, v & 0xfff
}

func logDeviceInfo(gpu *PhysicalDeviceInfo, indices QueueFamilyIndices) {
	core.LogInfo("Selected device: '%s'.", gpu.Properties.Name)
	core.LogInfo("GPU type is %s.", gpu.Properties.Type)
	major, minor, patch := versionString(gpu.Properties.DriverVersion)
	core.LogInfo("GPU Driver version: %d.%d.%d", major, minor, patch)
	major, minor, patch = versionString(gpu.Properties.APIVersion)
	core.LogInfo("Vulkan API version: %d.%d.%d", major, minor, patch)
	for _, heap := range gpu.Properties.MemoryHeaps {
		gib := float64(heap.Size) / 1024.0 / 1024.0 / 1024.0
		if heap.DeviceLocal {
			core.LogInfo("Local GPU memory: %.2f GiB", gib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", gib)
		}
	}
	core.LogDebug("Graphics Family Index: %d", indices.Graphics.Index)
	core.LogDebug("Present Family Index:  %d", indices.Present.Index)
	core.LogDebug("Transfer Family Index: %d", indices.Transfer.Index)
	core.LogDebug("Compute Family Index:  %d", indices.Compute.Index)
}

// CreateDevice selects an adapter and builds a logical device with one queue per
// distinct family, plus the graphics command pool.
func (p Phase) CreateDevice(inst InstanceState, criteria DeviceCriteria) (state DeviceState, err error) {
	defer p.Registry.Scope(&err)()

	gpu, indices, err := SelectPhysicalDevice(p.Driver, inst.Instance, inst.Surface, criteria)
	if err != nil {
		return state, err
	}

	core.LogInfo("Creating logical device...")
	extensions := slices.Clone(criteria.Extensions)
	if gpu.HasExtension(PortabilitySubsetExtName) {
		core.LogInfo("Adding required extension '%s'.", PortabilitySubsetExtName)
		extensions = append(extensions, PortabilitySubsetExtName)
	}

	device, err := p.Driver.CreateDevice(&metadata.DeviceCreateInfo{
		SType:          metadata.StructureTypeDeviceCreateInfo,
		PhysicalDevice: gpu.Handle,
		QueueFamilies:  indices.Unique(),
		Extensions:     extensions,
		Features:       metadata.PhysicalDeviceFeatures{SamplerAnisotropy: gpu.Features.SamplerAnisotropy},
	})
	if err != nil {
		return state, errors.Wrap(err, "create logical device")
	}
	p.Registry.Push(KindDevice, gpu.Properties.Name, func() { p.Driver.DestroyDevice(device) })
	core.LogInfo("Logical device created.")

	state = DeviceState{Physical: gpu, Device: device, Indices: indices}
	queue := func(qi QueueIndex) metadata.Handle {
		if !qi.Valid {
			return metadata.NullHandle
		}
		return p.Driver.GetDeviceQueue(device, qi.Index, 0)
	}
	state.GraphicsQueue = queue(indices.Graphics)
	state.PresentQueue = queue(indices.Present)
	state.ComputeQueue = queue(indices.Compute)
	state.TransferQueue = queue(indices.Transfer)
	core.LogInfo("Queues obtained.")

	pool, err := p.Driver.CreateCommandPool(device, &metadata.CommandPoolCreateInfo{
		SType:              metadata.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex:   indices.Graphics.Index,
		ResetCommandBuffer: true,
	})
	if err != nil {
		return state, errors.Wrap(err, "create graphics command pool")
	}
	p.Registry.Push(KindCommandPool, "graphics", func() { p.Driver.DestroyCommandPool(device, pool) })
	state.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	return state, nil
}
