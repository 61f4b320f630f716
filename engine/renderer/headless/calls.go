package headless

import (
	"fmt"
	"slices"

	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func (d *Driver) CreateInstance(info *metadata.InstanceCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeInstanceCreateInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.create("Instance", *info)
}

func (d *Driver) DestroyInstance(instance metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("Instance", instance)
}

func (d *Driver) NativeInstance(instance metadata.Handle) any {
	return instance
}

func (d *Driver) ImportSurface(instance metadata.Handle, native uintptr) (metadata.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.live[instance]; !ok {
		return metadata.NullHandle, metadata.NewResultError("import surface", metadata.ResultErrorInitializationFailed)
	}
	return d.create("Surface", native)
}

func (d *Driver) DestroySurface(instance, surface metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("Surface", surface)
}

func (d *Driver) EnumeratePhysicalDevices(instance metadata.Handle) ([]metadata.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count("EnumeratePhysicalDevices")

	out := make([]metadata.Handle, len(d.Adapters))
	for i := range d.Adapters {
		found := false
		for h, idx := range d.gpus {
			if idx == i {
				out[i] = h
				found = true
				break
			}
		}
		if !found {
			d.next++
			d.gpus[d.next] = i
			out[i] = d.next
		}
	}
	return out, nil
}

func (d *Driver) GetPhysicalDeviceProperties(gpu metadata.Handle) metadata.PhysicalDeviceProperties {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.adapter(gpu).Properties
}

func (d *Driver) GetPhysicalDeviceFeatures(gpu metadata.Handle) metadata.PhysicalDeviceFeatures {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.adapter(gpu).Features
}

func (d *Driver) GetQueueFamilyProperties(gpu metadata.Handle) []metadata.QueueFamilyProperties {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.adapter(gpu).QueueFamilies)
}

func (d *Driver) EnumerateDeviceExtensions(gpu metadata.Handle) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.adapter(gpu).Extensions), nil
}

func (d *Driver) GetSurfaceSupport(gpu metadata.Handle, family uint32, surface metadata.Handle) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a := d.adapter(gpu)
	if a.PresentFamilies == nil {
		return true, nil
	}
	return slices.Contains(a.PresentFamilies, family), nil
}

func (d *Driver) GetSurfaceCapabilities(gpu, surface metadata.Handle) (metadata.SurfaceCapabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count("GetSurfaceCapabilities")
	return d.adapter(gpu).Capabilities, nil
}

func (d *Driver) GetSurfaceFormats(gpu, surface metadata.Handle) ([]metadata.SurfaceFormat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.adapter(gpu).Formats), nil
}

func (d *Driver) GetSurfacePresentModes(gpu, surface metadata.Handle) ([]metadata.PresentMode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.adapter(gpu).PresentModes), nil
}

// SetCapabilities replaces the surface capabilities of adapter i, e.g. to simulate a resize.
func (d *Driver) SetCapabilities(i int, caps metadata.SurfaceCapabilities) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Adapters[i].Capabilities = caps
}

func (d *Driver) CreateDevice(info *metadata.DeviceCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeDeviceCreateInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("Device", *info)
	if err == nil {
		d.deviceGPU[h] = d.gpus[info.PhysicalDevice]
	}
	return h, err
}

func (d *Driver) DestroyDevice(device metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("Device", device)
	d.freeChildren(device)
}

func (d *Driver) GetDeviceQueue(device metadata.Handle, family, index uint32) metadata.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	// queues are stable per family
	for h, o := range d.live {
		if o.parent == device && o.kind == fmt.Sprintf("Queue%d", family) {
			return h
		}
	}
	return d.child(fmt.Sprintf("Queue%d", family), device)
}

func (d *Driver) DeviceWaitIdle(device metadata.Handle) metadata.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count("DeviceWaitIdle")
	return metadata.ResultSuccess
}

func (d *Driver) CreateCommandPool(device metadata.Handle, info *metadata.CommandPoolCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeCommandPoolCreateInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.create("CommandPool", *info)
}

func (d *Driver) DestroyCommandPool(device, pool metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("CommandPool", pool)
}

func (d *Driver) AllocateCommandBuffers(device metadata.Handle, info *metadata.CommandBufferAllocateInfo) ([]metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeCommandBufferAllocateInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]metadata.Handle, 0, info.Count)
	for i := uint32(0); i < info.Count; i++ {
		h, err := d.create("CommandBuffer", *info)
		if err != nil {
			return nil, err
		}
		d.commands[h] = &commandBufferState{}
		out = append(out, h)
	}
	return out, nil
}

// FreeCommandBuffers releases the buffers last to first.
func (d *Driver) FreeCommandBuffers(device, pool metadata.Handle, buffers []metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(buffers) - 1; i >= 0; i-- {
		d.destroy("CommandBuffer", buffers[i])
		delete(d.commands, buffers[i])
	}
}

func (d *Driver) CreateSwapchain(device metadata.Handle, info *metadata.SwapchainCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeSwapchainCreateInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("Swapchain", *info)
	if err != nil {
		return h, err
	}
	images := make([]metadata.Handle, info.MinImageCount)
	for i := range images {
		images[i] = d.child("SwapchainImage", h)
	}
	d.images[h] = images
	return h, nil
}

func (d *Driver) DestroySwapchain(device, swapchain metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("Swapchain", swapchain)
	d.freeChildren(swapchain)
	delete(d.images, swapchain)
	delete(d.acquired, swapchain)
}

func (d *Driver) GetSwapchainImages(device, swapchain metadata.Handle) ([]metadata.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	images, ok := d.images[swapchain]
	if !ok {
		return nil, metadata.NewResultError("get swapchain images", metadata.ResultErrorSurfaceLost)
	}
	return slices.Clone(images), nil
}

func (d *Driver) CreateImageView(device metadata.Handle, info *metadata.ImageViewCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeImageViewCreateInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.create("ImageView", *info)
}

func (d *Driver) DestroyImageView(device, view metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("ImageView", view)
}

func (d *Driver) CreateRenderPass(device metadata.Handle, info *metadata.RenderPassCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeRenderPassCreateInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.create("RenderPass", *info)
}

func (d *Driver) DestroyRenderPass(device, renderPass metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("RenderPass", renderPass)
}

func (d *Driver) CreateShaderModule(device metadata.Handle, info *metadata.ShaderModuleCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeShaderModuleCreateInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(info.Code) == 0 || len(info.Code)%4 != 0 {
		d.count("CreateShaderModule")
		return metadata.NullHandle, metadata.NewResultError("create ShaderModule", metadata.ResultErrorInitializationFailed)
	}
	return d.create("ShaderModule", *info)
}

func (d *Driver) DestroyShaderModule(device, module metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("ShaderModule", module)
}

func (d *Driver) CreateDescriptorSetLayout(device metadata.Handle, info *metadata.DescriptorSetLayoutCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeDescriptorSetLayoutCreateInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.create("DescriptorSetLayout", *info)
}

func (d *Driver) DestroyDescriptorSetLayout(device, layout metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("DescriptorSetLayout", layout)
}

func (d *Driver) CreatePipelineLayout(device metadata.Handle, info *metadata.PipelineLayoutCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypePipelineLayoutCreateInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.create("PipelineLayout", *info)
}

func (d *Driver) DestroyPipelineLayout(device, layout metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("PipelineLayout", layout)
}

func (d *Driver) CreateGraphicsPipeline(device metadata.Handle, info *metadata.GraphicsPipelineCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeGraphicsPipelineCreateInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range info.Stages {
		if _, ok := d.live[s.Module]; !ok {
			panic(fmt.Sprintf("headless: pipeline references dead shader module %s", s.Module))
		}
	}
	return d.create("Pipeline", *info)
}

func (d *Driver) DestroyPipeline(device, pipeline metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("Pipeline", pipeline)
}

func (d *Driver) CreateFramebuffer(device metadata.Handle, info *metadata.FramebufferCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeFramebufferCreateInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.create("Framebuffer", *info)
}

func (d *Driver) DestroyFramebuffer(device, framebuffer metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("Framebuffer", framebuffer)
}

func (d *Driver) CreateSemaphore(device metadata.Handle, info *metadata.SemaphoreCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeSemaphoreCreateInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.create("Semaphore", *info)
}

func (d *Driver) DestroySemaphore(device, semaphore metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("Semaphore", semaphore)
}

func (d *Driver) CreateFence(device metadata.Handle, info *metadata.FenceCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeFenceCreateInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("Fence", *info)
	if err == nil {
		d.fences[h] = &fenceState{signaled: info.Signaled}
	}
	return h, err
}

func (d *Driver) DestroyFence(device, fence metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("Fence", fence)
	delete(d.fences, fence)
}

// WaitForFence consumes a scripted result first. Without one it succeeds on a signaled
// fence and times out on an unsignaled one, since nothing could ever signal it.
func (d *Driver) WaitForFence(device, fence metadata.Handle, timeout uint64) metadata.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count("WaitForFence")
	if r := pop(&d.FenceResults); r != metadata.ResultSuccess {
		return r
	}
	f, ok := d.fences[fence]
	if !ok {
		panic(fmt.Sprintf("headless: wait on unknown fence %s", fence))
	}
	if !f.signaled {
		return metadata.ResultTimeout
	}
	return metadata.ResultSuccess
}

func (d *Driver) ResetFence(device, fence metadata.Handle) metadata.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count("ResetFence")
	f, ok := d.fences[fence]
	if !ok {
		panic(fmt.Sprintf("headless: reset of unknown fence %s", fence))
	}
	f.signaled = false
	return metadata.ResultSuccess
}

func (d *Driver) CreateBuffer(device metadata.Handle, info *metadata.BufferCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeBufferCreateInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	h, err := d.create("Buffer", *info)
	if err == nil {
		d.buffers[h] = &bufferState{data: make([]byte, info.Size), info: *info}
	}
	return h, err
}

func (d *Driver) DestroyBuffer(device, buffer metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("Buffer", buffer)
	delete(d.buffers, buffer)
}

func (d *Driver) WriteBuffer(device, buffer metadata.Handle, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count("WriteBuffer")
	b, ok := d.buffers[buffer]
	if !ok {
		return metadata.NewResultError("map memory", metadata.ResultErrorMemoryMapFailed)
	}
	if b.info.Properties&metadata.MemoryPropertyHostVisible == 0 {
		return metadata.NewResultError("map memory", metadata.ResultErrorMemoryMapFailed)
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return metadata.NewResultError("map memory", metadata.ResultErrorMemoryMapFailed)
	}
	copy(b.data[offset:], data)
	return nil
}

func (d *Driver) CreateDescriptorPool(device metadata.Handle, info *metadata.DescriptorPoolCreateInfo) (metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeDescriptorPoolCreateInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.create("DescriptorPool", *info)
}

func (d *Driver) DestroyDescriptorPool(device, pool metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy("DescriptorPool", pool)
	d.freeChildren(pool)
}

func (d *Driver) AllocateDescriptorSets(device metadata.Handle, info *metadata.DescriptorSetAllocateInfo) ([]metadata.Handle, error) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeDescriptorSetAllocateInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count("AllocateDescriptorSets")
	out := make([]metadata.Handle, len(info.SetLayouts))
	for i := range out {
		out[i] = d.child("DescriptorSet", info.Pool)
	}
	return out, nil
}

func (d *Driver) UpdateDescriptorBuffer(device metadata.Handle, write *metadata.DescriptorBufferWrite) {
	metadata.MustStructureType(write.SType, metadata.StructureTypeWriteDescriptorSet)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count("UpdateDescriptorBuffer")
	d.infos["DescriptorWrite"] = *write
}

func (d *Driver) record(buffer metadata.Handle, cmd string) {
	c, ok := d.commands[buffer]
	if !ok {
		panic(fmt.Sprintf("headless: unknown command buffer %s", buffer))
	}
	if !c.recording {
		panic(fmt.Sprintf("headless: %s recorded outside begin/end on %s", cmd, buffer))
	}
	c.commands = append(c.commands, cmd)
}

func (d *Driver) BeginCommandBuffer(buffer metadata.Handle, info *metadata.CommandBufferBeginInfo) error {
	metadata.MustStructureType(info.SType, metadata.StructureTypeCommandBufferBeginInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.commands[buffer]
	if !ok {
		return metadata.NewResultError("begin command buffer", metadata.ResultErrorInitializationFailed)
	}
	c.recording = true
	c.commands = nil
	return nil
}

func (d *Driver) EndCommandBuffer(buffer metadata.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.commands[buffer]
	if !ok || !c.recording {
		return metadata.NewResultError("end command buffer", metadata.ResultErrorInitializationFailed)
	}
	c.recording = false
	return nil
}

func (d *Driver) CmdCopyBuffer(buffer, src, dst metadata.Handle, size uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(buffer, "CopyBuffer")
	s, d2 := d.buffers[src], d.buffers[dst]
	if s != nil && d2 != nil {
		copy(d2.data, s.data[:size])
	}
}

func (d *Driver) CmdBeginRenderPass(buffer metadata.Handle, info *metadata.RenderPassBeginInfo) {
	metadata.MustStructureType(info.SType, metadata.StructureTypeRenderPassBeginInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(buffer, "BeginRenderPass")
}

func (d *Driver) CmdBindPipeline(buffer, pipeline metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(buffer, "BindPipeline")
}

func (d *Driver) CmdSetViewportScissor(buffer metadata.Handle, extent metadata.Extent2D) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(buffer, "SetViewportScissor")
}

func (d *Driver) CmdBindVertexBuffer(buffer, vertexBuffer metadata.Handle, offset uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(buffer, "BindVertexBuffer")
}

func (d *Driver) CmdBindIndexBuffer(buffer, indexBuffer metadata.Handle, offset uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(buffer, "BindIndexBuffer")
}

func (d *Driver) CmdBindDescriptorSet(buffer, layout, set metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(buffer, "BindDescriptorSet")
}

func (d *Driver) CmdDrawIndexed(buffer metadata.Handle, indexCount uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(buffer, fmt.Sprintf("DrawIndexed(%d)", indexCount))
}

func (d *Driver) CmdEndRenderPass(buffer metadata.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(buffer, "EndRenderPass")
}

// AcquireNextImage hands out images round robin. A scripted error result leaves the
// rotation untouched.
func (d *Driver) AcquireNextImage(device, swapchain metadata.Handle, timeout uint64, semaphore metadata.Handle) (uint32, metadata.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count("AcquireNextImage")
	r := pop(&d.AcquireResults)
	if r.IsError() || r == metadata.ResultTimeout || r == metadata.ResultNotReady {
		return 0, r
	}
	images, ok := d.images[swapchain]
	if !ok {
		return 0, metadata.ResultErrorSurfaceLost
	}
	idx := d.acquired[swapchain]
	d.acquired[swapchain] = (idx + 1) % uint32(len(images))
	return idx, r
}

// QueueSubmit completes the work immediately and signals the fence. Submitting with a
// fence that is still signaled panics.
func (d *Driver) QueueSubmit(queue metadata.Handle, info *metadata.SubmitInfo, fence metadata.Handle) metadata.Result {
	metadata.MustStructureType(info.SType, metadata.StructureTypeSubmitInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count("QueueSubmit")
	if !fence.IsNull() {
		f, ok := d.fences[fence]
		if !ok {
			panic(fmt.Sprintf("headless: submit with unknown fence %s", fence))
		}
		if f.signaled {
			panic(fmt.Sprintf("headless: submit with signaled fence %s", fence))
		}
		f.signaled = true
	}
	for _, cb := range info.CommandBuffers {
		c, ok := d.commands[cb]
		if !ok || c.recording {
			panic(fmt.Sprintf("headless: submit of unrecorded command buffer %s", cb))
		}
	}
	d.submits = append(d.submits, Submission{
		Queue:          queue,
		Fence:          fence,
		CommandBuffers: slices.Clone(info.CommandBuffers),
	})
	return metadata.ResultSuccess
}

func (d *Driver) QueuePresent(queue metadata.Handle, info *metadata.PresentInfo) metadata.Result {
	metadata.MustStructureType(info.SType, metadata.StructureTypePresentInfo)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count("QueuePresent")
	return pop(&d.PresentResults)
}

func (d *Driver) QueueWaitIdle(queue metadata.Handle) metadata.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.count("QueueWaitIdle")
	return metadata.ResultSuccess
}

var _ metadata.Driver = (*Driver)(nil)
