package metadata

// Driver is the GPU API surface the renderer runs on. Handles returned by the Create
// calls are owned by the caller and must be destroyed with the matching Destroy call.
//
// Creation calls return a *ResultError on failure. Calls on the frame path return the
// raw Result so the caller can tell staleness and timeouts apart from fatal codes.
type Driver interface {
	CreateInstance(info *InstanceCreateInfo) (Handle, error)
	DestroyInstance(instance Handle)
	// NativeInstance returns the API object a surface provider needs to create a surface.
	NativeInstance(instance Handle) any
	// ImportSurface wraps a surface created by the surface provider.
	ImportSurface(instance Handle, native uintptr) (Handle, error)
	DestroySurface(instance, surface Handle)

	EnumeratePhysicalDevices(instance Handle) ([]Handle, error)
	GetPhysicalDeviceProperties(gpu Handle) PhysicalDeviceProperties
	GetPhysicalDeviceFeatures(gpu Handle) PhysicalDeviceFeatures
	GetQueueFamilyProperties(gpu Handle) []QueueFamilyProperties
	EnumerateDeviceExtensions(gpu Handle) ([]string, error)
	GetSurfaceSupport(gpu Handle, family uint32, surface Handle) (bool, error)
	GetSurfaceCapabilities(gpu, surface Handle) (SurfaceCapabilities, error)
	GetSurfaceFormats(gpu, surface Handle) ([]SurfaceFormat, error)
	GetSurfacePresentModes(gpu, surface Handle) ([]PresentMode, error)

	CreateDevice(info *DeviceCreateInfo) (Handle, error)
	DestroyDevice(device Handle)
	GetDeviceQueue(device Handle, family, index uint32) Handle
	DeviceWaitIdle(device Handle) Result

	CreateCommandPool(device Handle, info *CommandPoolCreateInfo) (Handle, error)
	DestroyCommandPool(device, pool Handle)
	AllocateCommandBuffers(device Handle, info *CommandBufferAllocateInfo) ([]Handle, error)
	FreeCommandBuffers(device, pool Handle, buffers []Handle)

	CreateSwapchain(device Handle, info *SwapchainCreateInfo) (Handle, error)
	DestroySwapchain(device, swapchain Handle)
	GetSwapchainImages(device, swapchain Handle) ([]Handle, error)
	CreateImageView(device Handle, info *ImageViewCreateInfo) (Handle, error)
	DestroyImageView(device, view Handle)

	CreateRenderPass(device Handle, info *RenderPassCreateInfo) (Handle, error)
	DestroyRenderPass(device, renderPass Handle)
	CreateShaderModule(device Handle, info *ShaderModuleCreateInfo) (Handle, error)
	DestroyShaderModule(device, module Handle)
	CreateDescriptorSetLayout(device Handle, info *DescriptorSetLayoutCreateInfo) (Handle, error)
	DestroyDescriptorSetLayout(device, layout Handle)
	CreatePipelineLayout(device Handle, info *PipelineLayoutCreateInfo) (Handle, error)
	DestroyPipelineLayout(device, layout Handle)
	CreateGraphicsPipeline(device Handle, info *GraphicsPipelineCreateInfo) (Handle, error)
	DestroyPipeline(device, pipeline Handle)
	CreateFramebuffer(device Handle, info *FramebufferCreateInfo) (Handle, error)
	DestroyFramebuffer(device, framebuffer Handle)

	CreateSemaphore(device Handle, info *SemaphoreCreateInfo) (Handle, error)
	DestroySemaphore(device, semaphore Handle)
	CreateFence(device Handle, info *FenceCreateInfo) (Handle, error)
	DestroyFence(device, fence Handle)
	// WaitForFence blocks for at most timeout nanoseconds. InfiniteTimeout waits forever.
	WaitForFence(device, fence Handle, timeout uint64) Result
	ResetFence(device, fence Handle) Result

	// CreateBuffer creates a buffer and binds freshly allocated memory matching info.Properties.
	CreateBuffer(device Handle, info *BufferCreateInfo) (Handle, error)
	DestroyBuffer(device, buffer Handle)
	// WriteBuffer maps host visible memory and copies data at offset.
	WriteBuffer(device, buffer Handle, offset uint64, data []byte) error

	CreateDescriptorPool(device Handle, info *DescriptorPoolCreateInfo) (Handle, error)
	DestroyDescriptorPool(device, pool Handle)
	// Sets are freed together with their pool.
	AllocateDescriptorSets(device Handle, info *DescriptorSetAllocateInfo) ([]Handle, error)
	UpdateDescriptorBuffer(device Handle, write *DescriptorBufferWrite)

	BeginCommandBuffer(buffer Handle, info *CommandBufferBeginInfo) error
	EndCommandBuffer(buffer Handle) error
	CmdCopyBuffer(buffer, src, dst Handle, size uint64)
	CmdBeginRenderPass(buffer Handle, info *RenderPassBeginInfo)
	CmdBindPipeline(buffer, pipeline Handle)
	CmdSetViewportScissor(buffer Handle, extent Extent2D)
	CmdBindVertexBuffer(buffer, vertexBuffer Handle, offset uint64)
	CmdBindIndexBuffer(buffer, indexBuffer Handle, offset uint64)
	CmdBindDescriptorSet(buffer, layout, set Handle)
	CmdDrawIndexed(buffer Handle, indexCount uint32)
	CmdEndRenderPass(buffer Handle)

	AcquireNextImage(device, swapchain Handle, timeout uint64, semaphore Handle) (uint32, Result)
	QueueSubmit(queue Handle, info *SubmitInfo, fence Handle) Result
	QueuePresent(queue Handle, info *PresentInfo) Result
	QueueWaitIdle(queue Handle) Result
}
