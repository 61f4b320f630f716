package metadata

import "fmt"

/** @brief Determines face culling mode during rendering. */
type FaceCullMode int

const (
	/** @brief No faces are culled. */
	FaceCullModeNone FaceCullMode = 0x0
	/** @brief Only front faces are culled. */
	FaceCullModeFront FaceCullMode = 0x1
	/** @brief Only back faces are culled. */
	FaceCullModeBack FaceCullMode = 0x2
	/** @brief Both front and back faces are culled. */
	FaceCullModeFrontAndBack FaceCullMode = 0x3
)

/** @brief Winding order that identifies a front face. */
type FrontFace int

const (
	FrontFaceCounterClockwise FrontFace = 0
	FrontFaceClockwise        FrontFace = 1
)

/** @brief How polygons are rasterized. */
type PolygonMode int

const (
	PolygonModeFill  PolygonMode = 0
	PolygonModeLine  PolygonMode = 1
	PolygonModePoint PolygonMode = 2
)

type PrimitiveTopology int

const (
	PrimitiveTopologyPointList    PrimitiveTopology = 0
	PrimitiveTopologyLineList     PrimitiveTopology = 1
	PrimitiveTopologyTriangleList PrimitiveTopology = 3
)

type BlendFactor int

const (
	BlendFactorZero             BlendFactor = 0
	BlendFactorOne              BlendFactor = 1
	BlendFactorSrcAlpha         BlendFactor = 6
	BlendFactorOneMinusSrcAlpha BlendFactor = 7
)

type BlendOp int

const (
	BlendOpAdd BlendOp = 0
)

/** @brief The stage a shader binary is bound to. */
type ShaderStageType int

const (
	ShaderStageTypeVertex ShaderStageType = iota
	ShaderStageTypeFragment
	ShaderStageTypeGeometry
)

func (t ShaderStageType) String() string {
	switch t {
	case ShaderStageTypeVertex:
		return "vertex"
	case ShaderStageTypeFragment:
		return "fragment"
	case ShaderStageTypeGeometry:
		return "geometry"
	}
	return fmt.Sprintf("ShaderStageType(%d)", int(t))
}

// ParseShaderStageType maps a descriptor name to a stage type.
func ParseShaderStageType(name string) (ShaderStageType, error) {
	switch name {
	case "vertex", "vert":
		return ShaderStageTypeVertex, nil
	case "fragment", "frag":
		return ShaderStageTypeFragment, nil
	case "geometry", "geom":
		return ShaderStageTypeGeometry, nil
	}
	return 0, fmt.Errorf("unknown shader stage type `%s`", name)
}

// Flags returns the pipeline shader stage bit of the stage type.
func (t ShaderStageType) Flags() ShaderStageFlags {
	switch t {
	case ShaderStageTypeFragment:
		return ShaderStageFragment
	case ShaderStageTypeGeometry:
		return ShaderStageGeometry
	default:
		return ShaderStageVertex
	}
}

/**
 * @brief A compiled shader stage as handed over by the shader provider.
 * The renderer performs no compilation or reflection on Code.
 */
type ShaderStage struct {
	/** @brief The stage this binary runs in. */
	Type ShaderStageType
	/** @brief Name of the entry point function, usually "main". */
	EntryPoint string
	/** @brief SPIR-V byte code. Length must be a multiple of 4. */
	Code []byte
}

/** @brief A single vertex attribute inside a binding. */
type VertexAttribute struct {
	Location uint32
	Format   Format
	Offset   uint32
}

/**
 * @brief Describes how vertex data is laid out in a single vertex buffer binding.
 * Nothing is implied: every attribute the shaders consume must be listed.
 */
type VertexLayout struct {
	Binding    uint32
	Stride     uint32
	Attributes []VertexAttribute
}

/** @brief Rasterizer state of a graphics pipeline. */
type RasterConfig struct {
	PolygonMode PolygonMode
	CullMode    FaceCullMode
	FrontFace   FrontFace
	LineWidth   float32
	Topology    PrimitiveTopology
}

/** @brief Multisampling state. Only SampleCount 1 is used by the engine. */
type MultisampleConfig struct {
	SampleCount      uint32
	SampleShading    bool
	MinSampleShading float32
}

/** @brief Color blend state for the single color attachment. */
type BlendConfig struct {
	Enabled        bool
	SrcColorFactor BlendFactor
	DstColorFactor BlendFactor
	ColorOp        BlendOp
	SrcAlphaFactor BlendFactor
	DstAlphaFactor BlendFactor
	AlphaOp        BlendOp
}

func DefaultRasterConfig() RasterConfig {
	return RasterConfig{
		PolygonMode: PolygonModeFill,
		CullMode:    FaceCullModeBack,
		FrontFace:   FrontFaceClockwise,
		LineWidth:   1.0,
		Topology:    PrimitiveTopologyTriangleList,
	}
}

func DefaultMultisampleConfig() MultisampleConfig {
	return MultisampleConfig{SampleCount: 1, MinSampleShading: 1.0}
}

// DefaultBlendConfig disables blending. The factors describe straight alpha should it be enabled.
func DefaultBlendConfig() BlendConfig {
	return BlendConfig{
		Enabled:        false,
		SrcColorFactor: BlendFactorSrcAlpha,
		DstColorFactor: BlendFactorOneMinusSrcAlpha,
		ColorOp:        BlendOpAdd,
		SrcAlphaFactor: BlendFactorOne,
		DstAlphaFactor: BlendFactorZero,
		AlphaOp:        BlendOpAdd,
	}
}
