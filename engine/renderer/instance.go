package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

const (
	EngineName = "Ember"

	ValidationLayerName = "VK_LAYER_KHRONOS_validation"
	DebugReportExtName  = "VK_EXT_debug_report"
)

// APIVersion10 is VK_MAKE_VERSION(1, 0, 0).
const APIVersion10 uint32 = 1 << 22

// InstanceConfig selects what the instance is created with.
type InstanceConfig struct {
	ApplicationName string
	Validation      bool
	// Extra instance extensions on top of what the surface requires.
	Extensions []string
}

// CreateInstance creates the API instance and the presentation surface. Both are pushed
// on the registry, the surface after the instance.
func (p Phase) CreateInstance(cfg InstanceConfig, surface SurfaceProvider) (state InstanceState, err error) {
	defer p.Registry.Scope(&err)()

	extensions := append([]string(nil), surface.RequiredSurfaceExtensions()...)
	extensions = append(extensions, cfg.Extensions...)
	var layers []string
	if cfg.Validation {
		extensions = append(extensions, DebugReportExtName)
		layers = append(layers, ValidationLayerName)
	}
	for _, ext := range extensions {
		core.LogDebug("Required instance extension: %s", ext)
	}

	core.LogDebug("Creating instance...")
	instance, err := p.Driver.CreateInstance(&metadata.InstanceCreateInfo{
		SType:           metadata.StructureTypeInstanceCreateInfo,
		ApplicationName: cfg.ApplicationName,
		EngineName:      EngineName,
		APIVersion:      APIVersion10,
		Extensions:      extensions,
		Layers:          layers,
		Validation:      cfg.Validation,
	})
	if err != nil {
		return state, errors.Wrap(err, "create instance")
	}
	p.Registry.Push(KindInstance, cfg.ApplicationName, func() { p.Driver.DestroyInstance(instance) })
	state.Instance = instance

	core.LogDebug("Creating surface...")
	native, err := surface.CreateNativeSurface(p.Driver.NativeInstance(instance))
	if err != nil {
		return state, errors.Wrap(err, "create window surface")
	}
	sh, err := p.Driver.ImportSurface(instance, native)
	if err != nil {
		return state, errors.Wrap(err, "import window surface")
	}
	p.Registry.Push(KindSurface, "window", func() { p.Driver.DestroySurface(instance, sh) })
	state.Surface = sh
	core.LogDebug("Surface created.")
	return state, nil
}
