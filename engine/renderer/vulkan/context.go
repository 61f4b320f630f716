package vulkan

import (
	"sync"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// VulkanContext maps the opaque handles given to the renderer onto the Vulkan objects
// behind them.
type VulkanContext struct {
	Allocator *vk.AllocationCallbacks

	mu      sync.Mutex
	next    metadata.Handle
	objects map[metadata.Handle]any
}

func newVulkanContext() *VulkanContext {
	return &VulkanContext{
		Allocator: nil,
		objects:   make(map[metadata.Handle]any),
	}
}

func (vc *VulkanContext) put(obj any) metadata.Handle {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.next++
	vc.objects[vc.next] = obj
	return vc.next
}

func (vc *VulkanContext) remove(h metadata.Handle) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	delete(vc.objects, h)
}

// lookup returns the object behind h. The null handle yields the zero value, which for
// Vulkan handles is VK_NULL_HANDLE. An unknown handle or one of another kind is a bug in
// the caller and panics.
func lookup[T any](vc *VulkanContext, h metadata.Handle) T {
	var zero T
	if h.IsNull() {
		return zero
	}
	vc.mu.Lock()
	obj, ok := vc.objects[h]
	vc.mu.Unlock()
	if !ok {
		panic(errors.AssertionFailedf("unknown handle %s", h))
	}
	v, ok := obj.(T)
	if !ok {
		panic(errors.AssertionFailedf("handle %s is a %T, not a %T", h, obj, zero))
	}
	return v
}

func lookupAll[T any](vc *VulkanContext, handles []metadata.Handle) []T {
	out := make([]T, len(handles))
	for i, h := range handles {
		out[i] = lookup[T](vc, h)
	}
	return out
}

type VulkanInstance struct {
	Handle vk.Instance
	// set only when validation is enabled
	debugMessenger vk.DebugReportCallback
}

type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device
	Memory         vk.PhysicalDeviceMemoryProperties
}

type VulkanQueue struct {
	Handle      vk.Queue
	FamilyIndex uint32
}

type VulkanSwapchain struct {
	Handle vk.Swapchain
	// handles of the images owned by the swapchain
	Images []metadata.Handle
}

type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
}

type VulkanDescriptorPool struct {
	Handle vk.DescriptorPool
	// sets are freed with the pool
	Sets []metadata.Handle
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that has all of
// propertyFlags, or -1.
func (d *VulkanDevice) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	for i := uint32(0); i < d.Memory.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memType := d.Memory.MemoryTypes[i]
		memType.Deref()
		if (typeFilter&(1<<i)) != 0 && (memType.PropertyFlags&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}
