package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	ResourceTypeNone ResourceType = iota
	/** @brief Raw binary resource, e.g. a SPIR-V blob. */
	ResourceTypeBinary
	/** @brief Shader set descriptor listing the stages of a pipeline. */
	ResourceTypeShaderSet
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeBinary:
		return "binary"
	case ResourceTypeShaderSet:
		return "shader set"
	default:
		return "none"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource. */
	Name string
	/** @brief The type the resource was loaded as. */
	Type ResourceType
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}

/** @brief A single stage entry of a shader set descriptor. */
type ShaderStageConfig struct {
	Type       string `toml:"type"`
	EntryPoint string `toml:"entry_point"`
	// Path of the compiled SPIR-V file, relative to the descriptor.
	File string `toml:"file"`
}

/** @brief The decoded contents of a `.shaderset.toml` descriptor. */
type ShaderSetConfig struct {
	Name   string              `toml:"name"`
	Stages []ShaderStageConfig `toml:"stages"`
}
