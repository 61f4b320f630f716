package renderer

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

type CommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY CommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

func (s CommandBufferState) String() string {
	return [...]string{"ready", "recording", "in render pass", "recording ended", "submitted", "not allocated"}[s]
}

type CommandBuffer struct {
	Handle metadata.Handle
	// Command buffer state.
	State CommandBufferState

	driver metadata.Driver
}

func (c *CommandBuffer) expect(op string, states ...CommandBufferState) {
	for _, s := range states {
		if c.State == s {
			return
		}
	}
	panic(errors.AssertionFailedf("%s on command buffer %s in state %s", op, c.Handle, c.State))
}

func (c *CommandBuffer) Begin(singleUse bool) error {
	c.expect("begin", COMMAND_BUFFER_STATE_READY, COMMAND_BUFFER_STATE_RECORDING_ENDED, COMMAND_BUFFER_STATE_SUBMITTED)
	info := &metadata.CommandBufferBeginInfo{SType: metadata.StructureTypeCommandBufferBeginInfo}
	if singleUse {
		info.Usage |= metadata.CommandBufferUsageOneTimeSubmit
	}
	if err := c.driver.BeginCommandBuffer(c.Handle, info); err != nil {
		return errors.Wrap(err, "begin command buffer")
	}
	c.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (c *CommandBuffer) End() error {
	c.expect("end", COMMAND_BUFFER_STATE_RECORDING)
	if err := c.driver.EndCommandBuffer(c.Handle); err != nil {
		return errors.Wrap(err, "end command buffer")
	}
	c.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (c *CommandBuffer) BeginRenderPass(info *metadata.RenderPassBeginInfo) {
	c.expect("begin render pass", COMMAND_BUFFER_STATE_RECORDING)
	c.driver.CmdBeginRenderPass(c.Handle, info)
	c.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (c *CommandBuffer) EndRenderPass() {
	c.expect("end render pass", COMMAND_BUFFER_STATE_IN_RENDER_PASS)
	c.driver.CmdEndRenderPass(c.Handle)
	c.State = COMMAND_BUFFER_STATE_RECORDING
}

func (c *CommandBuffer) UpdateSubmitted() {
	c.State = COMMAND_BUFFER_STATE_SUBMITTED
}

// AllocateCommandBuffers allocates count primary buffers from pool. They are freed
// together by a single registry entry.
func (p Phase) AllocateCommandBuffers(device, pool metadata.Handle, count uint32, label string) ([]*CommandBuffer, error) {
	handles, err := p.Driver.AllocateCommandBuffers(device, &metadata.CommandBufferAllocateInfo{
		SType:   metadata.StructureTypeCommandBufferAllocateInfo,
		Pool:    pool,
		Count:   count,
		Primary: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "allocate command buffers")
	}
	out := make([]*CommandBuffer, len(handles))
	for i, h := range handles {
		out[i] = &CommandBuffer{Handle: h, State: COMMAND_BUFFER_STATE_READY, driver: p.Driver}
	}
	p.Registry.Push(KindCommandBuffers, fmt.Sprintf("%d %s", count, label), func() {
		p.Driver.FreeCommandBuffers(device, pool, handles)
		for _, cb := range out {
			cb.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
		}
	})
	return out, nil
}

// RunSingleUse records fn into a throwaway command buffer, submits it to the graphics
// queue and waits for the queue to drain before freeing the buffer.
func (p Phase) RunSingleUse(dev DeviceState, fn func(cb *CommandBuffer)) error {
	handles, err := p.Driver.AllocateCommandBuffers(dev.Device, &metadata.CommandBufferAllocateInfo{
		SType:   metadata.StructureTypeCommandBufferAllocateInfo,
		Pool:    dev.GraphicsCommandPool,
		Count:   1,
		Primary: true,
	})
	if err != nil {
		return errors.Wrap(err, "allocate single use command buffer")
	}
	defer p.Driver.FreeCommandBuffers(dev.Device, dev.GraphicsCommandPool, handles)

	cb := &CommandBuffer{Handle: handles[0], State: COMMAND_BUFFER_STATE_READY, driver: p.Driver}
	if err := cb.Begin(true); err != nil {
		return err
	}
	fn(cb)
	if err := cb.End(); err != nil {
		return err
	}

	res := p.Driver.QueueSubmit(dev.GraphicsQueue, &metadata.SubmitInfo{
		SType:          metadata.StructureTypeSubmitInfo,
		CommandBuffers: []metadata.Handle{cb.Handle},
	}, metadata.NullHandle)
	if res != metadata.ResultSuccess {
		return resultError("single use queue submit", res)
	}
	cb.UpdateSubmitted()

	if res := p.Driver.QueueWaitIdle(dev.GraphicsQueue); res != metadata.ResultSuccess {
		return resultError("queue wait idle", res)
	}
	return nil
}

// DrawRecording is what a per-image command buffer draws.
type DrawRecording struct {
	RenderPass    metadata.Handle
	Framebuffer   metadata.Handle
	Extent        metadata.Extent2D
	ClearColor    [4]float32
	Pipeline      PipelineState
	DescriptorSet metadata.Handle
	Mesh          *MeshBuffers
}

// Record fills cb with one render pass drawing the mesh. The buffer is read-only
// afterwards until the next swapchain generation.
func (c *CommandBuffer) Record(d DrawRecording) error {
	if err := c.Begin(false); err != nil {
		return err
	}
	c.BeginRenderPass(&metadata.RenderPassBeginInfo{
		SType:       metadata.StructureTypeRenderPassBeginInfo,
		RenderPass:  d.RenderPass,
		Framebuffer: d.Framebuffer,
		Extent:      d.Extent,
		ClearColor:  d.ClearColor,
	})
	c.driver.CmdBindPipeline(c.Handle, d.Pipeline.Pipeline)
	c.driver.CmdSetViewportScissor(c.Handle, d.Extent)
	if !d.DescriptorSet.IsNull() {
		c.driver.CmdBindDescriptorSet(c.Handle, d.Pipeline.Layout, d.DescriptorSet)
	}
	if d.Mesh != nil && d.Mesh.IndexCount > 0 {
		c.driver.CmdBindVertexBuffer(c.Handle, d.Mesh.Vertex, 0)
		c.driver.CmdBindIndexBuffer(c.Handle, d.Mesh.Index, 0)
		c.driver.CmdDrawIndexed(c.Handle, d.Mesh.IndexCount)
	}
	c.EndRenderPass()
	return c.End()
}

// resultError builds the fatal error for a driver call. Device loss is marked so callers
// can test for it with errors.Is.
func resultError(op string, res metadata.Result) error {
	err := errors.WithStack(metadata.NewResultError(op, res))
	if res == metadata.ResultErrorDeviceLost {
		err = errors.Mark(err, core.ErrDeviceLost)
	}
	return err
}
