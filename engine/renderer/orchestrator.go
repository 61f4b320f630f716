package renderer

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// OrchestratorConfig holds the frame loop tunables.
type OrchestratorConfig struct {
	FrameSlots uint32
	// FenceTimeout bounds every fence wait and image acquisition. Zero waits forever.
	FenceTimeout time.Duration
	// MaxFenceTimeouts consecutive expiries are treated as device loss. Zero never escalates.
	MaxFenceTimeouts int
	PresentMode      metadata.PresentMode
	ClearColor       [4]float32
}

// FrameDeps are the long lived objects the orchestrator renders with. They sit below the
// swapchain generation on the ownership stack.
type FrameDeps struct {
	Instance  InstanceState
	Device    DeviceState
	SetLayout *DescriptorSetLayout
	Mesh      *MeshBuffers
	Sync      *SyncUnit

	Surface  SurfaceProvider
	Shaders  ShaderProvider
	Uniforms UniformProvider
	// Log is the renderer session logger; nil logs through the engine logger.
	Log *core.Logger
}

// FrameOrchestrator drives acquire, submit and present every tick and rebuilds the
// swapchain generation when it goes stale.
type FrameOrchestrator struct {
	phase   Phase
	cfg     OrchestratorConfig
	deps    FrameDeps
	builder *PipelineBuilder
	metrics *core.FrameMetrics

	state      RenderState
	gen        Generation
	genMark    Mark
	hasGen     bool
	frameIndex uint64
	timeouts   int

	rebuildRequested atomic.Bool
}

func NewFrameOrchestrator(phase Phase, deps FrameDeps, cfg OrchestratorConfig, metrics *core.FrameMetrics) *FrameOrchestrator {
	if metrics == nil {
		metrics = core.NewFrameMetrics()
	}
	return &FrameOrchestrator{
		phase:   phase,
		cfg:     cfg,
		deps:    deps,
		builder: NewPipelineBuilder(phase, deps.Device.Device),
		metrics: metrics,
		state:   StateIdle,
	}
}

func (o *FrameOrchestrator) State() RenderState {
	return o.state
}

func (o *FrameOrchestrator) FrameIndex() uint64 {
	return o.frameIndex
}

// Generation returns the live swapchain generation. Only valid while ACTIVE.
func (o *FrameOrchestrator) Generation() Generation {
	return o.gen
}

func (o *FrameOrchestrator) Metrics() *core.FrameMetrics {
	return o.metrics
}

// RequestRebuild asks for a rebuild after the next present. Safe from any goroutine.
func (o *FrameOrchestrator) RequestRebuild() {
	o.rebuildRequested.Store(true)
}

func (o *FrameOrchestrator) log() *core.Logger {
	return o.deps.Log
}

func (o *FrameOrchestrator) timeoutNs() uint64 {
	if o.cfg.FenceTimeout <= 0 {
		return metadata.InfiniteTimeout
	}
	return uint64(o.cfg.FenceTimeout.Nanoseconds())
}

// Start builds the first generation, or enters NO_SWAPCHAIN when the surface has no size.
func (o *FrameOrchestrator) Start() error {
	o.state = StateNoSwapchain
	_, err := o.Rebuild()
	return err
}

// Rebuild replaces the swapchain generation using the current surface size. It reports
// false without touching the driver when the surface has a zero axis.
func (o *FrameOrchestrator) Rebuild() (bool, error) {
	width, height := o.deps.Surface.FramebufferSize()
	if width == 0 || height == 0 {
		if o.state != StateNoSwapchain {
			o.log().Info("Surface has no drawable area (%dx%d), waiting.", width, height)
		}
		o.state = StateNoSwapchain
		return false, nil
	}

	dev := o.deps.Device.Device
	if res := o.phase.Driver.DeviceWaitIdle(dev); res != metadata.ResultSuccess {
		return false, resultError("device wait idle", res)
	}

	var prev SwapchainState
	if o.hasGen {
		prev = o.gen.Swapchain
		o.phase.Registry.UnwindTo(o.genMark)
		o.builder.Reset()
		o.gen = Generation{}
		o.hasGen = false
	}
	o.rebuildRequested.Store(false)

	gen, err := o.buildGeneration(metadata.Extent2D{Width: width, Height: height})
	if err != nil {
		o.state = StateNoSwapchain
		return false, err
	}
	o.gen = gen
	o.hasGen = true
	o.deps.Sync.ResizeImages(gen.Swapchain.ImageCount)
	o.state = StateActive
	o.metrics.CountRebuild()

	if prev.Swapchain.IsNull() {
		o.log().Info("Swapchain generation created at %dx%d.", gen.Swapchain.Extent.Width, gen.Swapchain.Extent.Height)
	} else {
		o.log().Info("Swapchain rebuilt: %dx%d -> %dx%d.", prev.Extent.Width, prev.Extent.Height,
			gen.Swapchain.Extent.Width, gen.Swapchain.Extent.Height)
	}
	return true, nil
}

// buildGeneration creates, in order: swapchain, views, render pass, pipeline layout,
// pipeline, framebuffers, uniform buffers, descriptor pool and sets, command buffers.
// Unwinding the generation mark destroys them in exact reverse.
func (o *FrameOrchestrator) buildGeneration(desired metadata.Extent2D) (gen Generation, err error) {
	o.genMark = o.phase.Registry.Mark()
	defer o.phase.Registry.Scope(&err)()

	dev := o.deps.Device
	gen.Swapchain, err = o.phase.CreateSwapchain(dev, o.deps.Instance.Surface, desired, o.cfg.PresentMode)
	if err != nil {
		return gen, err
	}
	sc := gen.Swapchain

	renderPass, err := o.phase.BuildRenderPass(dev.Device, sc.Format.Format)
	if err != nil {
		return gen, err
	}

	stages, err := o.deps.Shaders.ShaderStages()
	if err != nil {
		return gen, errors.Wrap(err, "load shader stages")
	}
	cfg := DefaultPipelineConfig(renderPass, stages, metadata.DefaultVertexLayout())
	cfg.SetLayouts = []metadata.Handle{o.deps.SetLayout.Handle}
	cfg.Extent = sc.Extent
	gen.Pipeline, err = o.builder.Build(cfg)
	if err != nil {
		return gen, err
	}

	targets := &gen.Targets
	for i, view := range sc.Views {
		fb, err := o.phase.Driver.CreateFramebuffer(dev.Device, &metadata.FramebufferCreateInfo{
			SType:       metadata.StructureTypeFramebufferCreateInfo,
			RenderPass:  renderPass,
			Attachments: []metadata.Handle{view},
			Extent:      sc.Extent,
			Layers:      1,
		})
		if err != nil {
			return gen, errors.Wrapf(err, "create framebuffer %d", i)
		}
		o.phase.Registry.Push(KindFramebuffer, fmt.Sprintf("swapchain image %d", i),
			func() { o.phase.Driver.DestroyFramebuffer(dev.Device, fb) })
		targets.Framebuffers = append(targets.Framebuffers, fb)
	}

	for i := range sc.Images {
		ubo, err := o.phase.Driver.CreateBuffer(dev.Device, &metadata.BufferCreateInfo{
			SType:      metadata.StructureTypeBufferCreateInfo,
			Size:       metadata.UniformBufferObjectSize,
			Usage:      metadata.BufferUsageUniform,
			Properties: metadata.MemoryPropertyHostVisible | metadata.MemoryPropertyHostCoherent,
		})
		if err != nil {
			return gen, errors.Wrapf(err, "create uniform buffer %d", i)
		}
		o.phase.Registry.Push(KindBuffer, fmt.Sprintf("uniform %d", i),
			func() { o.phase.Driver.DestroyBuffer(dev.Device, ubo) })
		targets.UniformBuffers = append(targets.UniformBuffers, ubo)
	}

	targets.DescriptorPool, err = o.phase.CreateDescriptorPool(dev.Device, sc.ImageCount, []metadata.DescriptorPoolSize{
		{Type: metadata.DescriptorTypeUniformBuffer, Count: sc.ImageCount},
	})
	if err != nil {
		return gen, err
	}
	targets.DescriptorSets, err = targets.DescriptorPool.Allocate(o.deps.SetLayout, sc.ImageCount)
	if err != nil {
		return gen, err
	}
	for i, set := range targets.DescriptorSets {
		targets.DescriptorPool.WriteUniform(set, 0, targets.UniformBuffers[i], metadata.UniformBufferObjectSize)
	}

	targets.CommandBuffers, err = o.phase.AllocateCommandBuffers(dev.Device, dev.GraphicsCommandPool, sc.ImageCount, "frame")
	if err != nil {
		return gen, err
	}
	for i, cb := range targets.CommandBuffers {
		err = cb.Record(DrawRecording{
			RenderPass:    renderPass,
			Framebuffer:   targets.Framebuffers[i],
			Extent:        sc.Extent,
			ClearColor:    o.cfg.ClearColor,
			Pipeline:      gen.Pipeline,
			DescriptorSet: targets.DescriptorSets[i],
			Mesh:          o.deps.Mesh,
		})
		if err != nil {
			return gen, errors.Wrapf(err, "record command buffer %d", i)
		}
	}
	return gen, nil
}

// fenceTimedOut counts an expiry. MaxFenceTimeouts consecutive expiries are reported as
// device loss.
func (o *FrameOrchestrator) fenceTimedOut(what string) error {
	o.timeouts++
	o.metrics.CountFenceTimeout()
	o.log().Warn("%s wait timed out after %s (%d consecutive).", what, o.cfg.FenceTimeout, o.timeouts)
	if o.cfg.MaxFenceTimeouts > 0 && o.timeouts >= o.cfg.MaxFenceTimeouts {
		err := errors.Wrapf(core.ErrFenceTimeout, "%d consecutive timeouts waiting on %s", o.timeouts, what)
		return errors.Mark(err, core.ErrDeviceLost)
	}
	return nil
}

// waitFence returns skip=true when the wait expired and the tick must be skipped. Only
// waits made before an image is acquired may skip.
func (o *FrameOrchestrator) waitFence(fence metadata.Handle, what string) (skip bool, err error) {
	switch res := o.deps.Sync.Wait(fence, o.timeoutNs()); res {
	case metadata.ResultSuccess:
		return false, nil
	case metadata.ResultTimeout:
		return true, o.fenceTimedOut(what)
	default:
		return true, resultError("wait for "+what, res)
	}
}

// waitImageFence waits for the previous frame that rendered to the acquired image. The
// acquire semaphore is already pending, so the tick cannot be skipped here: an expiry
// retries the wait and counts towards MaxFenceTimeouts.
func (o *FrameOrchestrator) waitImageFence(fence metadata.Handle) error {
	for {
		switch res := o.deps.Sync.Wait(fence, o.timeoutNs()); res {
		case metadata.ResultSuccess:
			return nil
		case metadata.ResultTimeout:
			if err := o.fenceTimedOut("image fence"); err != nil {
				return err
			}
		default:
			return resultError("wait for image fence", res)
		}
	}
}

// errNoImage means acquisition expired without an image; the semaphore was not signaled.
var errNoImage = errors.New("no swapchain image available")

// acquire returns core.ErrSwapchainStale when the swapchain is out of date and errNoImage
// when no image became available within the fence timeout.
func (o *FrameOrchestrator) acquire(slot FrameSlot) (index uint32, suboptimal bool, err error) {
	index, res := o.phase.Driver.AcquireNextImage(o.deps.Device.Device, o.gen.Swapchain.Swapchain, o.timeoutNs(), slot.ImageAvailable)
	switch res {
	case metadata.ResultSuccess:
		return index, false, nil
	case metadata.ResultSuboptimal:
		return index, true, nil
	case metadata.ResultErrorOutOfDate:
		return 0, false, core.ErrSwapchainStale
	case metadata.ResultTimeout, metadata.ResultNotReady:
		return 0, false, errNoImage
	default:
		return 0, false, resultError("acquire next image", res)
	}
}

func (o *FrameOrchestrator) updateUniform(imageIndex uint32, elapsed time.Duration) error {
	var ubo metadata.UniformBufferObject
	if o.deps.Uniforms != nil {
		ubo = o.deps.Uniforms.Uniform(o.gen.Swapchain.Extent, elapsed)
	} else {
		ubo = metadata.UniformBufferObject{Model: mgl32.Ident4(), View: mgl32.Ident4(), Projection: mgl32.Ident4()}
	}
	buffer := o.gen.Targets.UniformBuffers[imageIndex]
	if err := o.phase.Driver.WriteBuffer(o.deps.Device.Device, buffer, 0, ubo.Bytes()); err != nil {
		return errors.Wrapf(err, "update uniform buffer %d", imageIndex)
	}
	return nil
}

// Tick renders one frame. Staleness is handled here and never returned; returned
// errors are fatal.
func (o *FrameOrchestrator) Tick(elapsed time.Duration) error {
	switch o.state {
	case StateIdle:
		return errors.Wrap(core.ErrNotInitialized, "frame orchestrator ticked before start")
	case StateNoSwapchain:
		_, err := o.Rebuild()
		return err
	}

	dev := o.deps.Device
	drv := o.phase.Driver
	sync := o.deps.Sync
	slot := sync.Slot(o.frameIndex)

	if skip, err := o.waitFence(slot.InFlight, "frame slot fence"); skip || err != nil {
		return err
	}

	imageIndex, suboptimal, err := o.acquire(slot)
	if errors.Is(err, core.ErrSwapchainStale) {
		o.log().Debug("Swapchain out of date on acquire, rebuilding.")
		_, err = o.Rebuild()
		return err
	}
	if errors.Is(err, errNoImage) {
		return o.fenceTimedOut("image acquisition")
	}
	if err != nil {
		return err
	}

	if imageFence := sync.ImageFence(imageIndex); !imageFence.IsNull() && imageFence != slot.InFlight {
		if err := o.waitImageFence(imageFence); err != nil {
			return err
		}
	}
	sync.MarkImageInFlight(imageIndex, slot.InFlight)
	o.timeouts = 0

	if err := o.updateUniform(imageIndex, elapsed); err != nil {
		return err
	}

	if res := sync.Reset(slot.InFlight); res != metadata.ResultSuccess {
		return resultError("reset fence", res)
	}
	cb := o.gen.Targets.CommandBuffers[imageIndex]
	res := drv.QueueSubmit(dev.GraphicsQueue, &metadata.SubmitInfo{
		SType:            metadata.StructureTypeSubmitInfo,
		WaitSemaphores:   []metadata.Handle{slot.ImageAvailable},
		WaitStages:       []metadata.PipelineStageFlags{metadata.PipelineStageColorAttachmentOutput},
		CommandBuffers:   []metadata.Handle{cb.Handle},
		SignalSemaphores: []metadata.Handle{slot.RenderFinished},
	}, slot.InFlight)
	if res != metadata.ResultSuccess {
		return resultError("queue submit", res)
	}
	sync.Submitted(slot.InFlight)
	cb.UpdateSubmitted()

	res = drv.QueuePresent(dev.PresentQueue, &metadata.PresentInfo{
		SType:          metadata.StructureTypePresentInfo,
		WaitSemaphores: []metadata.Handle{slot.RenderFinished},
		Swapchains:     []metadata.Handle{o.gen.Swapchain.Swapchain},
		ImageIndices:   []uint32{imageIndex},
	})
	stale := IsStale(res)
	if res.IsError() && !stale {
		return resultError("queue present", res)
	}

	o.frameIndex = (o.frameIndex + 1) % uint64(sync.SlotCount())

	requested := o.rebuildRequested.Load()
	if stale || suboptimal || requested {
		o.log().Debug("Rebuilding swapchain (present %s, suboptimal acquire %t, requested %t).", res, suboptimal, requested)
		_, err := o.Rebuild()
		return err
	}
	return nil
}

// Stop waits for the device to drain and unwinds the swapchain generation.
func (o *FrameOrchestrator) Stop() {
	if o.state == StateIdle {
		return
	}
	if res := o.phase.Driver.DeviceWaitIdle(o.deps.Device.Device); res != metadata.ResultSuccess {
		o.log().Error("device wait idle failed with %s during shutdown", res)
	}
	if o.hasGen {
		o.phase.Registry.UnwindTo(o.genMark)
		o.builder.Reset()
		o.gen = Generation{}
		o.hasGen = false
	}
	o.state = StateIdle
}
