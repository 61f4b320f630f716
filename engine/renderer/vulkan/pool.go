package vulkan

import "sync"

type LockGroup string

const (
	CommandPoolManagement     LockGroup = "command_pool_management"
	DescriptorManagement      LockGroup = "descriptor_management"
	MemoryManagement          LockGroup = "memory_management"
	PipelineManagement        LockGroup = "pipeline_management"
	SwapchainManagement       LockGroup = "swapchain_management"
	SynchronizationManagement LockGroup = "synchronization_management"
)

// VulkanLockPool serializes access to Vulkan objects that must be externally
// synchronized: queues, command pools and descriptor pools.
type VulkanLockPool struct {
	mu           sync.Mutex // Protects access to the maps
	locks        map[LockGroup]*sync.Mutex
	queueMutexes map[uint32]*sync.Mutex // Queue family index as key
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		locks:        make(map[LockGroup]*sync.Mutex),
		queueMutexes: make(map[uint32]*sync.Mutex),
	}
}

// Get or create a mutex for a specific group
func (vs *VulkanLockPool) lock(group LockGroup) *sync.Mutex {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	l, exists := vs.locks[group]
	if !exists {
		l = &sync.Mutex{}
		vs.locks[group] = l
	}
	return l
}

func (vs *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	l := vs.lock(group)
	l.Lock()
	defer l.Unlock()

	return fn()
}

func (vs *VulkanLockPool) queueLock(index uint32) *sync.Mutex {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	l, exists := vs.queueMutexes[index]
	if !exists {
		l = &sync.Mutex{}
		vs.queueMutexes[index] = l
	}
	return l
}

// SafeQueueCall runs fn while holding the lock of the queue family.
func (vs *VulkanLockPool) SafeQueueCall(queueFamilyIndex uint32, fn func() error) error {
	l := vs.queueLock(queueFamilyIndex)
	l.Lock()
	defer l.Unlock()

	return fn()
}
