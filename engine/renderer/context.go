package renderer

import (
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// RenderState is the state of the frame orchestrator.
type RenderState int

const (
	// StateIdle is the state before initialization and after termination.
	StateIdle RenderState = iota
	StateActive
	// StateNoSwapchain means no presentable surface exists, e.g. while minimized.
	StateNoSwapchain
)

func (s RenderState) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateNoSwapchain:
		return "NO_SWAPCHAIN"
	default:
		return "IDLE"
	}
}

// Phase bundles what every phase function needs: the driver it calls and the ownership
// stack it pushes into. State produced by a phase is returned, never stored here.
type Phase struct {
	Driver   metadata.Driver
	Registry *Registry
}

// InstanceState is owned by the instance phase.
type InstanceState struct {
	Instance metadata.Handle
	Surface  metadata.Handle
}

// DeviceState is owned by the device phase and lives as long as the renderer.
type DeviceState struct {
	Physical PhysicalDeviceInfo
	Device   metadata.Handle
	Indices  QueueFamilyIndices

	GraphicsQueue metadata.Handle
	PresentQueue  metadata.Handle
	ComputeQueue  metadata.Handle
	TransferQueue metadata.Handle

	// GraphicsCommandPool backs the per-image command buffers and single-use uploads.
	GraphicsCommandPool metadata.Handle
}

// SwapchainState describes one swapchain generation. It is replaced as a whole on rebuild.
type SwapchainState struct {
	Swapchain   metadata.Handle
	ImageCount  uint32
	Format      metadata.SurfaceFormat
	Extent      metadata.Extent2D
	PresentMode metadata.PresentMode
	Images      []metadata.Handle
	Views       []metadata.Handle
}

// PipelineState holds the persistent products of the pipeline builder. Shader modules are
// not part of it: they are destroyed as soon as the pipeline exists.
type PipelineState struct {
	RenderPass metadata.Handle
	Layout     metadata.Handle
	Pipeline   metadata.Handle
	Key        string
}

// FrameTargets are the per-image objects derived from a swapchain generation.
type FrameTargets struct {
	Framebuffers   []metadata.Handle
	UniformBuffers []metadata.Handle
	DescriptorPool *DescriptorPool
	DescriptorSets []metadata.Handle
	CommandBuffers []*CommandBuffer
}

// Generation is everything destroyed and recreated by a rebuild.
type Generation struct {
	Swapchain SwapchainState
	Pipeline  PipelineState
	Targets   FrameTargets
}
