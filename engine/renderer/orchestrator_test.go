package renderer

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/headless"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func liveCounts(drv *headless.Driver) map[string]int {
	out := map[string]int{}
	for _, kind := range []string{
		"Swapchain", "ImageView", "RenderPass", "PipelineLayout", "Pipeline", "Framebuffer",
		"Buffer", "DescriptorPool", "CommandBuffer", "Semaphore", "Fence", "ShaderModule",
	} {
		out[kind] = drv.Live(kind)
	}
	return out
}

func TestOrchestratorStartBuildsGeneration(t *testing.T) {
	f := newRendererFixture(t, nil, nil)
	f.init(t)
	o := f.renderer.Orchestrator()

	if o.State() != StateActive {
		t.Fatalf("state %s after start", o.State())
	}
	gen := o.Generation()
	n := int(gen.Swapchain.ImageCount)
	if n != 3 || len(gen.Targets.Framebuffers) != n || len(gen.Targets.UniformBuffers) != n ||
		len(gen.Targets.DescriptorSets) != n || len(gen.Targets.CommandBuffers) != n {
		t.Fatalf("generation targets do not match %d images: %+v", n, gen.Targets)
	}
	for i, cb := range gen.Targets.CommandBuffers {
		if cb.State != COMMAND_BUFFER_STATE_RECORDING_ENDED {
			t.Fatalf("command buffer %d in state %s", i, cb.State)
		}
	}
	live := liveCounts(f.drv)
	if live["ShaderModule"] != 0 || live["Pipeline"] != 1 || live["Framebuffer"] != 3 {
		t.Fatalf("live objects %v", live)
	}
}

func TestOrchestratorFrameSlotRotation(t *testing.T) {
	f := newRendererFixture(t, nil, func(cfg *core.Config) { cfg.Renderer.FrameSlots = 2 })
	f.init(t)
	o := f.renderer.Orchestrator()
	sync := f.renderer.sync

	for i := 0; i < 7; i++ {
		f.tick(t)
		if want := uint64(i+1) % 2; o.FrameIndex() != want {
			t.Fatalf("after tick %d frame index is %d, want %d", i, o.FrameIndex(), want)
		}
	}

	subs := frameSubmissions(f.drv)
	if len(subs) != 7 {
		t.Fatalf("%d frame submissions, want 7", len(subs))
	}
	gen := o.Generation()
	for i, s := range subs {
		if want := sync.Slot(uint64(i)).InFlight; s.Fence != want {
			t.Fatalf("frame %d submitted with fence %s, want slot fence %s", i, s.Fence, want)
		}
		// images are handed out round robin by the headless driver
		if want := gen.Targets.CommandBuffers[i%3].Handle; s.CommandBuffers[0] != want {
			t.Fatalf("frame %d submitted %s, want %s", i, s.CommandBuffers[0], want)
		}
	}
	if f.drv.Calls("QueuePresent") != 7 {
		t.Fatalf("%d presents", f.drv.Calls("QueuePresent"))
	}
}

func TestOrchestratorUploadsUniformPerImage(t *testing.T) {
	f := newRendererFixture(t, nil, nil)
	f.init(t)
	f.tick(t)

	ubo := f.renderer.Orchestrator().Generation().Targets.UniformBuffers[0]
	data := f.drv.BufferData(ubo)
	if uint64(len(data)) != metadata.UniformBufferObjectSize {
		t.Fatalf("uniform buffer holds %d bytes", len(data))
	}
	// identity model matrix: first float is 1.0
	if data[0] != 0 || data[1] != 0 || data[2] != 0x80 || data[3] != 0x3f {
		t.Fatalf("uniform buffer starts with % x", data[:4])
	}
}

func TestOrchestratorMinimizedStall(t *testing.T) {
	f := newRendererFixture(t, nil, nil)
	f.init(t)
	o := f.renderer.Orchestrator()

	f.surface.resize(0, 0)
	// the frame in flight still presents, then the rebuild finds no drawable area
	f.tick(t)
	if o.State() != StateNoSwapchain {
		t.Fatalf("state %s after minimize", o.State())
	}
	swapchains := f.drv.Calls("CreateSwapchain")
	submits := f.drv.Calls("QueueSubmit")
	frame := o.FrameIndex()

	for _, size := range [][2]uint32{{0, 0}, {0, 0}, {800, 0}} {
		f.surface.resize(size[0], size[1])
		f.tick(t)
		if o.State() != StateNoSwapchain {
			t.Fatalf("state %s at %dx%d", o.State(), size[0], size[1])
		}
	}
	if f.drv.Calls("CreateSwapchain") != swapchains || f.drv.Calls("QueueSubmit") != submits || o.FrameIndex() != frame {
		t.Fatal("minimized ticks touched the frame loop")
	}
	// the last generation is kept until the surface is usable again
	if f.drv.Live("Swapchain") != 1 {
		t.Fatalf("%d swapchains alive while minimized", f.drv.Live("Swapchain"))
	}

	f.surface.resize(800, 600)
	f.tick(t)
	if o.State() != StateActive {
		t.Fatalf("state %s after restore", o.State())
	}
	if ext := o.Generation().Swapchain.Extent; ext != (metadata.Extent2D{Width: 800, Height: 600}) {
		t.Fatalf("restored extent %v", ext)
	}
	if f.drv.Live("Swapchain") != 1 {
		t.Fatalf("%d swapchains alive after restore", f.drv.Live("Swapchain"))
	}

	f.tick(t)
	if f.drv.Calls("QueueSubmit") != submits+1 {
		t.Fatal("no frame rendered after restore")
	}
}

func TestOrchestratorStartsMinimized(t *testing.T) {
	f := newRendererFixture(t, nil, nil)
	f.surface.resize(0, 0)
	f.init(t)
	o := f.renderer.Orchestrator()

	if o.State() != StateNoSwapchain || f.drv.Live("Swapchain") != 0 {
		t.Fatalf("state %s with %d swapchains", o.State(), f.drv.Live("Swapchain"))
	}
	f.surface.resize(640, 480)
	f.tick(t)
	if o.State() != StateActive {
		t.Fatalf("state %s after the surface got a size", o.State())
	}
}

func TestOrchestratorRebuildIsIdempotent(t *testing.T) {
	f := newRendererFixture(t, nil, nil)
	f.init(t)
	o := f.renderer.Orchestrator()

	before := liveCounts(f.drv)
	entries := f.renderer.Registry().Len()
	first := o.Generation().Swapchain
	for i := 0; i < 3; i++ {
		rebuilt, err := o.Rebuild()
		if err != nil || !rebuilt {
			t.Fatalf("rebuild %d: %t, %v", i, rebuilt, err)
		}
		sc := o.Generation().Swapchain
		if sc.ImageCount != first.ImageCount || sc.Format != first.Format || sc.Extent != first.Extent {
			t.Fatalf("rebuild %d: %d images %s %v, want %d images %s %v", i,
				sc.ImageCount, sc.Format, sc.Extent, first.ImageCount, first.Format, first.Extent)
		}
		if sc.Swapchain == first.Swapchain {
			t.Fatalf("rebuild %d kept swapchain %s", i, sc.Swapchain)
		}
		after := liveCounts(f.drv)
		for kind, n := range before {
			if after[kind] != n {
				t.Fatalf("rebuild %d: %d live %s, want %d", i, after[kind], kind, n)
			}
		}
		if f.renderer.Registry().Len() != entries {
			t.Fatalf("rebuild %d: %d registry entries, want %d", i, f.renderer.Registry().Len(), entries)
		}
	}
	if f.drv.Calls("CreateSwapchain") != 4 || f.renderer.Metrics().Rebuilds() != 4 {
		t.Fatalf("%d swapchains created, %d rebuilds counted", f.drv.Calls("CreateSwapchain"), f.renderer.Metrics().Rebuilds())
	}
	// the pipeline cache dies with its generation
	if f.drv.Calls("CreatePipeline") != 4 {
		t.Fatalf("%d pipelines built", f.drv.Calls("CreatePipeline"))
	}
}

func TestOrchestratorStaleAcquire(t *testing.T) {
	f := newRendererFixture(t, nil, nil)
	f.init(t)
	o := f.renderer.Orchestrator()

	f.drv.AcquireResults = []metadata.Result{metadata.ResultErrorOutOfDate}
	f.tick(t)

	if f.drv.Calls("QueueSubmit") != 2 || f.drv.Calls("QueuePresent") != 0 {
		t.Fatalf("stale acquire submitted %d times", f.drv.Calls("QueueSubmit")-2)
	}
	if f.drv.Calls("CreateSwapchain") != 2 || o.State() != StateActive || o.FrameIndex() != 0 {
		t.Fatalf("%d swapchains, state %s, frame %d", f.drv.Calls("CreateSwapchain"), o.State(), o.FrameIndex())
	}

	// the slot fence was waited on but never reset; the next frame must still work
	f.tick(t)
	if len(frameSubmissions(f.drv)) != 1 {
		t.Fatal("frame after rebuild not submitted")
	}
}

func TestOrchestratorStalePresent(t *testing.T) {
	for _, res := range []metadata.Result{metadata.ResultErrorOutOfDate, metadata.ResultSuboptimal} {
		t.Run(res.String(), func(t *testing.T) {
			f := newRendererFixture(t, nil, nil)
			f.init(t)
			o := f.renderer.Orchestrator()

			f.drv.PresentResults = []metadata.Result{res}
			f.tick(t)
			if len(frameSubmissions(f.drv)) != 1 || o.FrameIndex() != 1 {
				t.Fatal("frame was not submitted before the rebuild")
			}
			if f.drv.Calls("CreateSwapchain") != 2 || o.State() != StateActive {
				t.Fatalf("%d swapchains, state %s", f.drv.Calls("CreateSwapchain"), o.State())
			}
		})
	}
}

func TestOrchestratorSuboptimalAcquire(t *testing.T) {
	f := newRendererFixture(t, nil, nil)
	f.init(t)

	f.drv.AcquireResults = []metadata.Result{metadata.ResultSuboptimal}
	f.tick(t)
	if f.drv.Calls("QueuePresent") != 1 {
		t.Fatal("suboptimal image was not presented")
	}
	if f.drv.Calls("CreateSwapchain") != 2 {
		t.Fatal("suboptimal acquire did not rebuild after present")
	}
}

func TestOrchestratorFatalPresent(t *testing.T) {
	f := newRendererFixture(t, nil, nil)
	f.init(t)

	f.drv.PresentResults = []metadata.Result{metadata.ResultErrorDeviceLost}
	err := f.renderer.Tick(f.ctx)
	if !errors.Is(err, core.ErrDeviceLost) {
		t.Fatalf("expected device loss, got %v", err)
	}
}

func TestOrchestratorFenceTimeoutEscalation(t *testing.T) {
	f := newRendererFixture(t, nil, func(cfg *core.Config) { cfg.Renderer.MaxFenceTimeouts = 3 })
	f.init(t)
	o := f.renderer.Orchestrator()

	f.drv.FenceResults = []metadata.Result{metadata.ResultTimeout, metadata.ResultTimeout}
	f.tick(t)
	f.tick(t)
	if f.drv.Calls("AcquireNextImage") != 0 || o.FrameIndex() != 0 {
		t.Fatal("timed out ticks must be skipped")
	}
	f.tick(t)
	if len(frameSubmissions(f.drv)) != 1 {
		t.Fatal("frame after the fence recovered was not submitted")
	}
	if f.renderer.Metrics().FenceTimeouts() != 2 {
		t.Fatalf("%d timeouts counted", f.renderer.Metrics().FenceTimeouts())
	}

	// a successful frame resets the streak
	f.drv.FenceResults = []metadata.Result{metadata.ResultTimeout, metadata.ResultTimeout, metadata.ResultTimeout}
	f.tick(t)
	f.tick(t)
	err := f.renderer.Tick(f.ctx)
	if !errors.Is(err, core.ErrDeviceLost) || !errors.Is(err, core.ErrFenceTimeout) {
		t.Fatalf("expected escalation to device loss, got %v", err)
	}
}

func TestOrchestratorFenceDeviceLost(t *testing.T) {
	f := newRendererFixture(t, nil, nil)
	f.init(t)

	f.drv.FenceResults = []metadata.Result{metadata.ResultErrorDeviceLost}
	if err := f.renderer.Tick(f.ctx); !errors.Is(err, core.ErrDeviceLost) {
		t.Fatalf("expected device loss, got %v", err)
	}
}

func TestOrchestratorPresentModes(t *testing.T) {
	f := newRendererFixture(t, nil, func(cfg *core.Config) { cfg.Renderer.PresentMode = "mailbox" })
	f.init(t)
	if m := f.renderer.Orchestrator().Generation().Swapchain.PresentMode; m != metadata.PresentModeMailbox {
		t.Fatalf("present mode %s, want mailbox", m)
	}

	a := headless.DefaultAdapter("vsync only")
	a.PresentModes = []metadata.PresentMode{metadata.PresentModeFifo}
	f = newRendererFixture(t, headless.NewDriver(a), func(cfg *core.Config) { cfg.Renderer.PresentMode = "mailbox" })
	f.init(t)
	if m := f.renderer.Orchestrator().Generation().Swapchain.PresentMode; m != metadata.PresentModeFifo {
		t.Fatalf("present mode %s, want fifo fallback", m)
	}
}

func TestOrchestratorResizeRequestsRebuild(t *testing.T) {
	f := newRendererFixture(t, nil, nil)
	f.init(t)
	o := f.renderer.Orchestrator()

	f.surface.resize(1024, 768)
	f.tick(t)
	if ext := o.Generation().Swapchain.Extent; ext != (metadata.Extent2D{Width: 1024, Height: 768}) {
		t.Fatalf("extent %v after resize", ext)
	}
	if len(frameSubmissions(f.drv)) != 1 {
		t.Fatal("the resize tick still renders its frame")
	}

	f.tick(t)
	if f.drv.Calls("CreateSwapchain") != 2 {
		t.Fatalf("%d swapchains, one rebuild expected", f.drv.Calls("CreateSwapchain"))
	}
}

func TestOrchestratorStopReleasesGeneration(t *testing.T) {
	f := newRendererFixture(t, nil, nil)
	f.init(t)
	o := f.renderer.Orchestrator()
	f.tick(t)

	o.Stop()
	if o.State() != StateIdle {
		t.Fatalf("state %s after stop", o.State())
	}
	for _, kind := range []string{"Swapchain", "ImageView", "Pipeline", "Framebuffer", "DescriptorPool", "CommandBuffer"} {
		if n := f.drv.Live(kind); n != 0 {
			t.Errorf("%d %s alive after stop", n, kind)
		}
	}
	// sync objects and mesh buffers live below the generation
	if f.drv.Live("Fence") == 0 || f.drv.Live("Buffer") != 2 {
		t.Fatalf("%d fences, %d buffers after stop", f.drv.Live("Fence"), f.drv.Live("Buffer"))
	}
	if err := o.Tick(0); !errors.Is(err, core.ErrNotInitialized) {
		t.Fatalf("tick after stop returned %v", err)
	}
}

func TestOrchestratorClaimsImageAfterItsFence(t *testing.T) {
	f := newRendererFixture(t, nil, func(cfg *core.Config) { cfg.Renderer.FrameSlots = 2 })
	f.init(t)
	sync := f.renderer.sync

	// 2 slots over 3 images: from the fourth frame on every image was last used by the other slot
	wantWaits := []int{1, 1, 1, 2, 2, 2, 2}
	for i, want := range wantWaits {
		waits := f.drv.Calls("WaitForFence")
		f.tick(t)
		if got := f.drv.Calls("WaitForFence") - waits; got != want {
			t.Fatalf("tick %d waited on %d fences, want %d", i, got, want)
		}
		image := uint32(i % 3)
		if got, slot := sync.ImageFence(image), sync.Slot(uint64(i)).InFlight; got != slot {
			t.Fatalf("tick %d: image %d claimed by %s, want slot fence %s", i, image, got, slot)
		}
	}
}

func TestOrchestratorImageFenceTimeoutRetries(t *testing.T) {
	f := newRendererFixture(t, nil, func(cfg *core.Config) { cfg.Renderer.FrameSlots = 2 })
	f.init(t)
	o := f.renderer.Orchestrator()
	for i := 0; i < 3; i++ {
		f.tick(t)
	}

	// slot fence succeeds, then the fence of the image's previous frame expires once
	f.drv.FenceResults = []metadata.Result{metadata.ResultSuccess, metadata.ResultTimeout}
	waits := f.drv.Calls("WaitForFence")
	f.tick(t)
	if got := f.drv.Calls("WaitForFence") - waits; got != 3 {
		t.Fatalf("%d fence waits, want slot + two image waits", got)
	}
	if f.renderer.Metrics().FenceTimeouts() != 1 || o.FrameIndex() != 0 {
		t.Fatalf("%d timeouts counted, frame %d", f.renderer.Metrics().FenceTimeouts(), o.FrameIndex())
	}

	f.tick(t)
	f.tick(t)
	// every acquired image was submitted, so no acquire semaphore is left signaled
	subs := frameSubmissions(f.drv)
	if acquires := f.drv.Calls("AcquireNextImage"); acquires != 6 || len(subs) != 6 {
		t.Fatalf("%d acquires, %d submissions", acquires, len(subs))
	}
	for i, s := range subs {
		if want := f.renderer.sync.Slot(uint64(i)).InFlight; s.Fence != want {
			t.Fatalf("frame %d submitted with %s, want %s", i, s.Fence, want)
		}
	}
	if f.drv.Calls("QueuePresent") != 6 {
		t.Fatalf("%d presents", f.drv.Calls("QueuePresent"))
	}
}

func TestOrchestratorImageFenceTimeoutEscalation(t *testing.T) {
	f := newRendererFixture(t, nil, func(cfg *core.Config) {
		cfg.Renderer.FrameSlots = 2
		cfg.Renderer.MaxFenceTimeouts = 3
	})
	f.init(t)
	for i := 0; i < 3; i++ {
		f.tick(t)
	}

	f.drv.FenceResults = []metadata.Result{
		metadata.ResultSuccess, metadata.ResultTimeout, metadata.ResultTimeout, metadata.ResultTimeout,
	}
	err := f.renderer.Tick(f.ctx)
	if !errors.Is(err, core.ErrDeviceLost) || !errors.Is(err, core.ErrFenceTimeout) {
		t.Fatalf("expected escalation to device loss, got %v", err)
	}
	if len(frameSubmissions(f.drv)) != 3 {
		t.Fatal("frame submitted after its image fence never signaled")
	}
}

func TestOrchestratorAcquireTimeoutSkipsTick(t *testing.T) {
	for _, res := range []metadata.Result{metadata.ResultTimeout, metadata.ResultNotReady} {
		t.Run(res.String(), func(t *testing.T) {
			f := newRendererFixture(t, nil, nil)
			f.init(t)
			o := f.renderer.Orchestrator()

			f.drv.AcquireResults = []metadata.Result{res}
			f.tick(t)
			if len(frameSubmissions(f.drv)) != 0 || f.drv.Calls("QueuePresent") != 0 || o.FrameIndex() != 0 {
				t.Fatal("tick without an image must be skipped")
			}
			if f.renderer.Metrics().FenceTimeouts() != 1 || f.drv.Calls("CreateSwapchain") != 1 {
				t.Fatalf("%d timeouts, %d swapchains", f.renderer.Metrics().FenceTimeouts(), f.drv.Calls("CreateSwapchain"))
			}

			// the slot fence was waited on but not reset; the next frame renders normally
			f.tick(t)
			if len(frameSubmissions(f.drv)) != 1 || o.FrameIndex() != 1 {
				t.Fatal("frame after the skipped acquire not rendered")
			}
		})
	}
}

func TestOrchestratorAcquireTimeoutEscalation(t *testing.T) {
	f := newRendererFixture(t, nil, func(cfg *core.Config) { cfg.Renderer.MaxFenceTimeouts = 2 })
	f.init(t)

	f.drv.AcquireResults = []metadata.Result{metadata.ResultTimeout, metadata.ResultNotReady}
	f.tick(t)
	err := f.renderer.Tick(f.ctx)
	if !errors.Is(err, core.ErrDeviceLost) || !errors.Is(err, core.ErrFenceTimeout) {
		t.Fatalf("expected escalation to device loss, got %v", err)
	}
}

func TestRendererSessionLoggers(t *testing.T) {
	a := newRendererFixture(t, nil, nil)
	a.init(t)
	b := newRendererFixture(t, nil, nil)
	b.init(t)

	if a.renderer.Session() == b.renderer.Session() {
		t.Fatal("two renderers share a session id")
	}
	if a.renderer.log == nil || a.renderer.log == b.renderer.log {
		t.Fatal("renderers must own separate session loggers")
	}
	if a.renderer.Orchestrator().log() != a.renderer.log {
		t.Fatal("orchestrator does not log through its renderer's session logger")
	}
}
