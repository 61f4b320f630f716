package renderer

import (
	"time"

	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// SurfaceProvider is the window the renderer presents to.
type SurfaceProvider interface {
	// FramebufferSize returns the drawable size in pixels. A zero axis means nothing can
	// be presented, e.g. while the window is minimized.
	FramebufferSize() (uint32, uint32)
	RequiredSurfaceExtensions() []string
	// CreateNativeSurface creates a surface for the API instance returned by the driver's
	// NativeInstance and returns its raw handle.
	CreateNativeSurface(instance any) (uintptr, error)
	// SetResizeCallback registers fn. It may be called from any goroutine.
	SetResizeCallback(fn func(width, height uint32))
}

// ShaderProvider supplies compiled shader stages.
type ShaderProvider interface {
	ShaderStages() ([]metadata.ShaderStage, error)
	// Changed delivers a value whenever the stages on disk changed. May return nil.
	Changed() <-chan struct{}
}

// MeshProvider supplies the vertex and index data drawn every frame.
type MeshProvider interface {
	Mesh() ([]metadata.Vertex, []uint32)
}

// UniformProvider computes the uniform buffer contents of a frame. Optional.
type UniformProvider interface {
	Uniform(extent metadata.Extent2D, elapsed time.Duration) metadata.UniformBufferObject
}
