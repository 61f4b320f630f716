package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// metrics are logged every this many ticks at debug level
const metricsLogInterval = 600

type Options struct {
	Driver  metadata.Driver
	Surface SurfaceProvider
	Shaders ShaderProvider
	// Meshes is optional; without it the frame only clears.
	Meshes MeshProvider
	// Uniforms is optional; identity matrices are used without it.
	Uniforms UniformProvider
}

// Renderer is the RENDERER module. It owns every driver object through a single registry
// and tears it all down on Terminate.
type Renderer struct {
	opts    Options
	session uuid.UUID
	log     *core.Logger

	registry     *Registry
	phase        Phase
	instance     InstanceState
	device       DeviceState
	setLayout    *DescriptorSetLayout
	sync         *SyncUnit
	mesh         *MeshBuffers
	orchestrator *FrameOrchestrator
	metrics      *core.FrameMetrics

	shadersChanged <-chan struct{}
}

func New(opts Options) *Renderer {
	return &Renderer{opts: opts, metrics: core.NewFrameMetrics()}
}

func (r *Renderer) Name() string {
	return "renderer"
}

func (r *Renderer) Type() engine.ModuleType {
	return engine.ModuleTypeRenderer
}

func (r *Renderer) Session() uuid.UUID {
	return r.session
}

func (r *Renderer) Registry() *Registry {
	return r.registry
}

func (r *Renderer) Metrics() *core.FrameMetrics {
	return r.metrics
}

// Orchestrator is nil until Initialize succeeded.
func (r *Renderer) Orchestrator() *FrameOrchestrator {
	return r.orchestrator
}

func (r *Renderer) State() RenderState {
	if r.orchestrator == nil {
		return StateIdle
	}
	return r.orchestrator.State()
}

// Initialize creates, in order: instance, surface, device with its queues and command
// pool, descriptor set layout, frame sync objects, mesh buffers and the first swapchain
// generation. A failure unwinds everything created so far.
func (r *Renderer) Initialize(ctx *engine.Context) (err error) {
	if r.orchestrator != nil {
		return errors.New("renderer already initialized")
	}
	if r.opts.Driver == nil || r.opts.Surface == nil || r.opts.Shaders == nil {
		return errors.New("renderer needs a driver, a surface provider and a shader provider")
	}
	cfg := ctx.Config.Renderer
	mode, ok := metadata.ParsePresentMode(cfg.PresentMode)
	if !ok {
		return errors.Newf("unknown present mode %q", cfg.PresentMode)
	}

	r.session = uuid.New()
	r.log = core.WithFields("session", r.session.String()[:8])
	r.log.Info("Renderer session %s starting.", r.session)

	r.registry = NewRegistry()
	r.phase = Phase{Driver: r.opts.Driver, Registry: r.registry}
	defer func() {
		if err != nil {
			r.registry.Unwind()
			r.orchestrator = nil
		}
	}()

	r.instance, err = r.phase.CreateInstance(InstanceConfig{
		ApplicationName: ctx.Config.Application.Name,
		Validation:      cfg.Validation,
	}, r.opts.Surface)
	if err != nil {
		return err
	}

	r.device, err = r.phase.CreateDevice(r.instance, DefaultDeviceCriteria(cfg.DeviceExtensions...))
	if err != nil {
		return err
	}

	r.setLayout, err = r.phase.CreateDescriptorSetLayout(r.device.Device, UniformSetLayoutBindings())
	if err != nil {
		return err
	}

	r.sync, err = r.phase.NewSyncUnit(r.device.Device, cfg.FrameSlots, 0)
	if err != nil {
		return err
	}

	r.mesh = nil
	if r.opts.Meshes != nil {
		vertices, indices := r.opts.Meshes.Mesh()
		if r.mesh, err = r.phase.UploadMesh(r.device, vertices, indices); err != nil {
			return err
		}
	}

	orchestrator := NewFrameOrchestrator(r.phase, FrameDeps{
		Instance:  r.instance,
		Device:    r.device,
		SetLayout: r.setLayout,
		Mesh:      r.mesh,
		Sync:      r.sync,
		Surface:   r.opts.Surface,
		Shaders:   r.opts.Shaders,
		Uniforms:  r.opts.Uniforms,
		Log:       r.log,
	}, OrchestratorConfig{
		FrameSlots:       cfg.FrameSlots,
		FenceTimeout:     cfg.FenceTimeout.Duration,
		MaxFenceTimeouts: int(cfg.MaxFenceTimeouts),
		PresentMode:      mode,
		ClearColor:       cfg.ClearColor,
	}, r.metrics)
	if err = orchestrator.Start(); err != nil {
		return err
	}
	r.orchestrator = orchestrator

	r.opts.Surface.SetResizeCallback(func(width, height uint32) {
		orchestrator.RequestRebuild()
	})
	r.shadersChanged = r.opts.Shaders.Changed()

	r.log.Info("Renderer initialized (%s, %d live objects).", r.orchestrator.State(), r.registry.Len())
	return nil
}

// Tick renders one frame.
func (r *Renderer) Tick(ctx *engine.Context) error {
	if r.orchestrator == nil {
		return errors.Wrap(core.ErrNotInitialized, "renderer")
	}

	select {
	case <-r.shadersChanged:
		r.log.Info("Shaders changed on disk, rebuilding pipeline.")
		r.orchestrator.RequestRebuild()
	default:
	}

	err := r.orchestrator.Tick(ctx.Time)
	r.metrics.Update(ctx.Delta)
	if err != nil {
		if errors.Is(err, core.ErrDeviceLost) {
			r.log.Error("Device lost: %s", err)
		}
		return err
	}

	if ctx.Tick > 0 && ctx.Tick%metricsLogInterval == 0 {
		r.log.Debug("%.1f fps, %s per frame, %d rebuilds, %d fence timeouts.",
			r.metrics.FPS(), r.metrics.FrameTime(), r.metrics.Rebuilds(), r.metrics.FenceTimeouts())
	}
	return nil
}

// Terminate waits for the device to drain and destroys every object in reverse creation
// order.
func (r *Renderer) Terminate(ctx *engine.Context) error {
	if r.orchestrator == nil {
		return nil
	}
	r.opts.Surface.SetResizeCallback(nil)

	r.orchestrator.Stop()
	if r.mesh != nil {
		r.phase.ReleaseMesh(r.mesh)
		r.mesh = nil
	}
	r.registry.Unwind()
	r.orchestrator = nil
	r.shadersChanged = nil

	r.log.Info("Renderer session %s terminated.", r.session)
	return nil
}

var _ engine.Module = (*Renderer)(nil)
