package metadata

import (
	"fmt"
	"math"
)

// The enumerations below carry the numeric values of their Vulkan counterparts so that a
// driver can convert them with a plain cast.

type Format int32

const (
	FormatUndefined          Format = 0
	FormatR8G8B8A8Unorm      Format = 37
	FormatR8G8B8A8Srgb       Format = 43
	FormatB8G8R8A8Unorm      Format = 44
	FormatB8G8R8A8Srgb       Format = 50
	FormatR32G32Sfloat       Format = 103
	FormatR32G32B32Sfloat    Format = 106
	FormatR32G32B32A32Sfloat Format = 109
)

type ColorSpace int32

const (
	ColorSpaceSrgbNonlinear ColorSpace = 0
)

type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

func (f SurfaceFormat) String() string {
	return fmt.Sprintf("format=%d colorspace=%d", f.Format, f.ColorSpace)
}

type PresentMode int32

const (
	PresentModeImmediate   PresentMode = 0
	PresentModeMailbox     PresentMode = 1
	PresentModeFifo        PresentMode = 2
	PresentModeFifoRelaxed PresentMode = 3
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeImmediate:
		return "immediate"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeFifo:
		return "fifo"
	case PresentModeFifoRelaxed:
		return "fifo_relaxed"
	default:
		return fmt.Sprintf("PresentMode(%d)", int32(m))
	}
}

// ParsePresentMode maps a configuration name to a present mode.
func ParsePresentMode(name string) (PresentMode, bool) {
	switch name {
	case "immediate":
		return PresentModeImmediate, true
	case "mailbox":
		return PresentModeMailbox, true
	case "fifo":
		return PresentModeFifo, true
	case "fifo_relaxed":
		return PresentModeFifoRelaxed, true
	}
	return PresentModeFifo, false
}

type Extent2D struct {
	Width  uint32
	Height uint32
}

// UndefinedExtent is reported as current extent by surfaces whose size follows the swapchain.
const UndefinedExtent uint32 = math.MaxUint32

type ImageUsageFlags uint32

const (
	ImageUsageTransferSrc     ImageUsageFlags = 0x1
	ImageUsageTransferDst     ImageUsageFlags = 0x2
	ImageUsageColorAttachment ImageUsageFlags = 0x10
)

type SurfaceCapabilities struct {
	MinImageCount       uint32
	MaxImageCount       uint32
	CurrentExtent       Extent2D
	MinImageExtent      Extent2D
	MaxImageExtent      Extent2D
	SupportedUsage      ImageUsageFlags
	CurrentTransform    uint32
	SupportedTransforms uint32
}

type PhysicalDeviceType int32

const (
	PhysicalDeviceTypeOther      PhysicalDeviceType = 0
	PhysicalDeviceTypeIntegrated PhysicalDeviceType = 1
	PhysicalDeviceTypeDiscrete   PhysicalDeviceType = 2
	PhysicalDeviceTypeVirtual    PhysicalDeviceType = 3
	PhysicalDeviceTypeCPU        PhysicalDeviceType = 4
)

func (t PhysicalDeviceType) String() string {
	switch t {
	case PhysicalDeviceTypeIntegrated:
		return "Integrated"
	case PhysicalDeviceTypeDiscrete:
		return "Discrete"
	case PhysicalDeviceTypeVirtual:
		return "Virtual"
	case PhysicalDeviceTypeCPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

type MemoryHeap struct {
	Size        uint64
	DeviceLocal bool
}

type PhysicalDeviceProperties struct {
	Name          string
	Type          PhysicalDeviceType
	APIVersion    uint32
	DriverVersion uint32
	VendorID      uint32
	DeviceID      uint32
	MemoryHeaps   []MemoryHeap
}

type PhysicalDeviceFeatures struct {
	SamplerAnisotropy bool
	GeometryShader    bool
}

type QueueFlags uint32

const (
	QueueGraphics QueueFlags = 0x1
	QueueCompute  QueueFlags = 0x2
	QueueTransfer QueueFlags = 0x4
)

type QueueFamilyProperties struct {
	Flags      QueueFlags
	QueueCount uint32
}

type BufferUsageFlags uint32

const (
	BufferUsageTransferSrc BufferUsageFlags = 0x1
	BufferUsageTransferDst BufferUsageFlags = 0x2
	BufferUsageUniform     BufferUsageFlags = 0x10
	BufferUsageIndex       BufferUsageFlags = 0x40
	BufferUsageVertex      BufferUsageFlags = 0x80
)

type MemoryPropertyFlags uint32

const (
	MemoryPropertyDeviceLocal  MemoryPropertyFlags = 0x1
	MemoryPropertyHostVisible  MemoryPropertyFlags = 0x2
	MemoryPropertyHostCoherent MemoryPropertyFlags = 0x4
)

type ShaderStageFlags uint32

const (
	ShaderStageVertex   ShaderStageFlags = 0x1
	ShaderStageGeometry ShaderStageFlags = 0x8
	ShaderStageFragment ShaderStageFlags = 0x10
)

type PipelineStageFlags uint32

const (
	PipelineStageColorAttachmentOutput PipelineStageFlags = 0x400
)

type AccessFlags uint32

const (
	AccessColorAttachmentRead  AccessFlags = 0x80
	AccessColorAttachmentWrite AccessFlags = 0x100
)

type ImageLayout int32

const (
	ImageLayoutUndefined              ImageLayout = 0
	ImageLayoutColorAttachmentOptimal ImageLayout = 2
	ImageLayoutPresentSrc             ImageLayout = 1000001002
)

type AttachmentLoadOp int32

const (
	AttachmentLoadOpLoad     AttachmentLoadOp = 0
	AttachmentLoadOpClear    AttachmentLoadOp = 1
	AttachmentLoadOpDontCare AttachmentLoadOp = 2
)

type AttachmentStoreOp int32

const (
	AttachmentStoreOpStore    AttachmentStoreOp = 0
	AttachmentStoreOpDontCare AttachmentStoreOp = 1
)

// SubpassExternal refers to the implicit subpass outside the render pass.
const SubpassExternal uint32 = ^uint32(0)

type DescriptorType int32

const (
	DescriptorTypeCombinedImageSampler DescriptorType = 1
	DescriptorTypeUniformBuffer        DescriptorType = 6
	DescriptorTypeStorageBuffer        DescriptorType = 7
)

func (t DescriptorType) String() string {
	switch t {
	case DescriptorTypeCombinedImageSampler:
		return "combined_image_sampler"
	case DescriptorTypeUniformBuffer:
		return "uniform_buffer"
	case DescriptorTypeStorageBuffer:
		return "storage_buffer"
	default:
		return fmt.Sprintf("DescriptorType(%d)", int32(t))
	}
}

type CommandBufferUsage uint32

const (
	CommandBufferUsageOneTimeSubmit CommandBufferUsage = 0x1
)
