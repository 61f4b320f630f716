package renderer

import (
	"slices"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/headless"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func TestCommandBufferRecord(t *testing.T) {
	drv := headless.NewDriver()
	phase, _, dev := setupDevice(t, drv)

	cbs, err := phase.AllocateCommandBuffers(dev.Device, dev.GraphicsCommandPool, 2, "test")
	if err != nil {
		t.Fatal(err)
	}
	cb := cbs[0]
	err = cb.Record(DrawRecording{
		RenderPass:    metadata.Handle(100),
		Framebuffer:   metadata.Handle(101),
		Extent:        metadata.Extent2D{Width: 800, Height: 600},
		Pipeline:      PipelineState{Pipeline: 102, Layout: 103},
		DescriptorSet: metadata.Handle(104),
		Mesh:          &MeshBuffers{Vertex: 105, Index: 106, IndexCount: 6},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"BeginRenderPass", "BindPipeline", "SetViewportScissor", "BindDescriptorSet",
		"BindVertexBuffer", "BindIndexBuffer", "DrawIndexed(6)", "EndRenderPass",
	}
	if got := drv.Recorded(cb.Handle); !slices.Equal(got, want) {
		t.Fatalf("recorded %v, want %v", got, want)
	}
	if cb.State != COMMAND_BUFFER_STATE_RECORDING_ENDED {
		t.Fatalf("state %s after record", cb.State)
	}

	// without mesh and set the pass only clears
	if err := cbs[1].Record(DrawRecording{Pipeline: PipelineState{Pipeline: 102}}); err != nil {
		t.Fatal(err)
	}
	if got := drv.Recorded(cbs[1].Handle); !slices.Equal(got, []string{"BeginRenderPass", "BindPipeline", "SetViewportScissor", "EndRenderPass"}) {
		t.Fatalf("clear-only recording %v", got)
	}

	phase.Registry.Unwind()
	if cb.State != COMMAND_BUFFER_STATE_NOT_ALLOCATED {
		t.Fatalf("state %s after free", cb.State)
	}
}

func TestCommandBufferStateViolations(t *testing.T) {
	drv := headless.NewDriver()
	phase, _, dev := setupDevice(t, drv)
	cbs, err := phase.AllocateCommandBuffers(dev.Device, dev.GraphicsCommandPool, 1, "test")
	if err != nil {
		t.Fatal(err)
	}
	cb := cbs[0]

	mustPanic(t, "end before begin", func() { _ = cb.End() })
	mustPanic(t, "render pass outside recording", func() {
		cb.BeginRenderPass(&metadata.RenderPassBeginInfo{SType: metadata.StructureTypeRenderPassBeginInfo})
	})
	if err := cb.Begin(false); err != nil {
		t.Fatal(err)
	}
	mustPanic(t, "begin twice", func() { _ = cb.Begin(false) })
	mustPanic(t, "end render pass outside pass", cb.EndRenderPass)
}

func TestRunSingleUse(t *testing.T) {
	drv := headless.NewDriver()
	phase, _, dev := setupDevice(t, drv)

	ran := false
	err := phase.RunSingleUse(dev, func(cb *CommandBuffer) {
		ran = true
		if cb.State != COMMAND_BUFFER_STATE_RECORDING {
			t.Errorf("single use buffer in state %s", cb.State)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Fatal("record function not called")
	}
	subs := drv.Submissions()
	if len(subs) != 1 || !subs[0].Fence.IsNull() || subs[0].Queue != dev.GraphicsQueue {
		t.Fatalf("submissions %+v", subs)
	}
	if drv.Calls("QueueWaitIdle") != 1 || drv.Live("CommandBuffer") != 0 {
		t.Fatalf("%d queue waits, %d live command buffers", drv.Calls("QueueWaitIdle"), drv.Live("CommandBuffer"))
	}
	info := drv.LastInfo("CommandBuffer").(metadata.CommandBufferAllocateInfo)
	if info.Count != 1 || !info.Primary {
		t.Fatalf("allocate info %+v", info)
	}
}

func TestResultErrorMarksDeviceLoss(t *testing.T) {
	err := resultError("queue submit", metadata.ResultErrorDeviceLost)
	if !errors.Is(err, core.ErrDeviceLost) {
		t.Fatalf("%v is not marked as device loss", err)
	}
	var re *metadata.ResultError
	if !errors.As(err, &re) || re.Result != metadata.ResultErrorDeviceLost {
		t.Fatalf("result not preserved in %v", err)
	}
	if errors.Is(resultError("queue submit", metadata.ResultErrorOutOfHostMemory), core.ErrDeviceLost) {
		t.Fatal("out of memory marked as device loss")
	}
}
