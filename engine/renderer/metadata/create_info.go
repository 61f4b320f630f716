package metadata

import "github.com/cockroachdb/errors"

// StructureType tags every info struct handed to a Driver. Values match VkStructureType.
type StructureType int32

const (
	StructureTypeApplicationInfo               StructureType = 0
	StructureTypeInstanceCreateInfo            StructureType = 1
	StructureTypeDeviceCreateInfo              StructureType = 3
	StructureTypeSubmitInfo                    StructureType = 4
	StructureTypeFenceCreateInfo               StructureType = 8
	StructureTypeSemaphoreCreateInfo           StructureType = 9
	StructureTypeBufferCreateInfo              StructureType = 12
	StructureTypeImageViewCreateInfo           StructureType = 15
	StructureTypeShaderModuleCreateInfo        StructureType = 16
	StructureTypeGraphicsPipelineCreateInfo    StructureType = 28
	StructureTypePipelineLayoutCreateInfo      StructureType = 30
	StructureTypeDescriptorSetLayoutCreateInfo StructureType = 32
	StructureTypeDescriptorPoolCreateInfo      StructureType = 33
	StructureTypeDescriptorSetAllocateInfo     StructureType = 34
	StructureTypeWriteDescriptorSet            StructureType = 35
	StructureTypeFramebufferCreateInfo         StructureType = 37
	StructureTypeRenderPassCreateInfo          StructureType = 38
	StructureTypeCommandPoolCreateInfo         StructureType = 39
	StructureTypeCommandBufferAllocateInfo     StructureType = 40
	StructureTypeCommandBufferBeginInfo        StructureType = 42
	StructureTypeRenderPassBeginInfo           StructureType = 43
	StructureTypeSwapchainCreateInfo           StructureType = 1000001000
	StructureTypePresentInfo                   StructureType = 1000001001
)

// MustStructureType panics when an info struct carries the wrong tag. A mismatch is a
// caller bug and is never coerced.
func MustStructureType(got, want StructureType) {
	if got != want {
		panic(errors.AssertionFailedf("structure type mismatch: got %d, want %d", got, want))
	}
}

type InstanceCreateInfo struct {
	SType           StructureType
	ApplicationName string
	EngineName      string
	APIVersion      uint32
	Extensions      []string
	Layers          []string
	// Validation installs the debug report callback.
	Validation bool
}

type DeviceCreateInfo struct {
	SType          StructureType
	PhysicalDevice Handle
	// One queue is created for each distinct family index listed here.
	QueueFamilies []uint32
	Extensions    []string
	Features      PhysicalDeviceFeatures
}

type CommandPoolCreateInfo struct {
	SType              StructureType
	QueueFamilyIndex   uint32
	ResetCommandBuffer bool
	Transient          bool
}

type CommandBufferAllocateInfo struct {
	SType   StructureType
	Pool    Handle
	Count   uint32
	Primary bool
}

type CommandBufferBeginInfo struct {
	SType StructureType
	Usage CommandBufferUsage
}

type SwapchainCreateInfo struct {
	SType         StructureType
	Surface       Handle
	MinImageCount uint32
	Format        SurfaceFormat
	Extent        Extent2D
	ImageUsage    ImageUsageFlags
	// More than one family switches the images to concurrent sharing.
	QueueFamilies []uint32
	PreTransform  uint32
	PresentMode   PresentMode
	Clipped       bool
	OldSwapchain  Handle
}

type ImageViewCreateInfo struct {
	SType  StructureType
	Image  Handle
	Format Format
}

type AttachmentDescription struct {
	Format        Format
	Samples       uint32
	LoadOp        AttachmentLoadOp
	StoreOp       AttachmentStoreOp
	InitialLayout ImageLayout
	FinalLayout   ImageLayout
}

type SubpassDependency struct {
	SrcSubpass    uint32
	DstSubpass    uint32
	SrcStageMask  PipelineStageFlags
	DstStageMask  PipelineStageFlags
	SrcAccessMask AccessFlags
	DstAccessMask AccessFlags
}

// RenderPassCreateInfo describes a single graphics subpass writing every attachment as color.
type RenderPassCreateInfo struct {
	SType        StructureType
	Attachments  []AttachmentDescription
	Dependencies []SubpassDependency
}

type ShaderModuleCreateInfo struct {
	SType StructureType
	Code  []byte
}

type DescriptorSetLayoutBinding struct {
	Binding    uint32
	Type       DescriptorType
	Count      uint32
	StageFlags ShaderStageFlags
}

type DescriptorSetLayoutCreateInfo struct {
	SType    StructureType
	Bindings []DescriptorSetLayoutBinding
}

type PipelineLayoutCreateInfo struct {
	SType      StructureType
	SetLayouts []Handle
}

type PipelineShaderStage struct {
	Stage      ShaderStageFlags
	Module     Handle
	EntryPoint string
}

type GraphicsPipelineCreateInfo struct {
	SType        StructureType
	Stages       []PipelineShaderStage
	VertexLayout VertexLayout
	Raster       RasterConfig
	Multisample  MultisampleConfig
	Blend        BlendConfig
	Layout       Handle
	RenderPass   Handle
	Subpass      uint32
	// Viewport and scissor are set at record time when true.
	DynamicViewport bool
	Extent          Extent2D
}

type FramebufferCreateInfo struct {
	SType       StructureType
	RenderPass  Handle
	Attachments []Handle
	Extent      Extent2D
	Layers      uint32
}

type SemaphoreCreateInfo struct {
	SType StructureType
}

type FenceCreateInfo struct {
	SType    StructureType
	Signaled bool
}

// BufferCreateInfo creates a buffer together with its backing memory.
type BufferCreateInfo struct {
	SType      StructureType
	Size       uint64
	Usage      BufferUsageFlags
	Properties MemoryPropertyFlags
}

type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

type DescriptorPoolCreateInfo struct {
	SType     StructureType
	MaxSets   uint32
	PoolSizes []DescriptorPoolSize
}

type DescriptorSetAllocateInfo struct {
	SType      StructureType
	Pool       Handle
	SetLayouts []Handle
}

type DescriptorBufferWrite struct {
	SType   StructureType
	Set     Handle
	Binding uint32
	Type    DescriptorType
	Buffer  Handle
	Offset  uint64
	Range   uint64
}

type SubmitInfo struct {
	SType            StructureType
	WaitSemaphores   []Handle
	WaitStages       []PipelineStageFlags
	CommandBuffers   []Handle
	SignalSemaphores []Handle
}

type PresentInfo struct {
	SType          StructureType
	WaitSemaphores []Handle
	Swapchains     []Handle
	ImageIndices   []uint32
}

type RenderPassBeginInfo struct {
	SType       StructureType
	RenderPass  Handle
	Framebuffer Handle
	Extent      Extent2D
	ClearColor  [4]float32
}
