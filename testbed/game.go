package testbed

import (
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// radians per second
const spinSpeed = 0.5

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  atomic.Uint32
	height atomic.Uint32

	lastReport time.Duration
}

func NewTestGame() *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			GameName: "testbed",
			State:    &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize(ctx *engine.Context) error {
	core.LogDebug("TestGame Initialize fn....")
	state := g.state()
	state.width.Store(ctx.Config.Application.Width)
	state.height.Store(ctx.Config.Application.Height)
	return nil
}

func (g *TestGame) Update(ctx *engine.Context) error {
	state := g.state()
	if ctx.Time-state.lastReport >= 5*time.Second {
		state.lastReport = ctx.Time
		core.LogDebug("tick %d, %s elapsed, window %dx%d", ctx.Tick, ctx.Time.Truncate(time.Millisecond), state.width.Load(), state.height.Load())
	}
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.state()
	state.width.Store(width)
	state.height.Store(height)
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogDebug("TestGame Shutdown fn....")
	return nil
}

// Mesh returns a colored quad in the XY plane, wound clockwise.
func (g *TestGame) Mesh() ([]metadata.Vertex, []uint32) {
	normal := mgl32.Vec3{0, 0, 1}
	vertices := []metadata.Vertex{
		{Position: mgl32.Vec3{-0.5, -0.5, 0}, Normal: normal, TexCoord: mgl32.Vec2{0, 0}, Color: mgl32.Vec4{1, 0, 0, 1}},
		{Position: mgl32.Vec3{0.5, -0.5, 0}, Normal: normal, TexCoord: mgl32.Vec2{1, 0}, Color: mgl32.Vec4{0, 1, 0, 1}},
		{Position: mgl32.Vec3{0.5, 0.5, 0}, Normal: normal, TexCoord: mgl32.Vec2{1, 1}, Color: mgl32.Vec4{0, 0, 1, 1}},
		{Position: mgl32.Vec3{-0.5, 0.5, 0}, Normal: normal, TexCoord: mgl32.Vec2{0, 1}, Color: mgl32.Vec4{1, 1, 1, 1}},
	}
	indices := []uint32{0, 1, 2, 2, 3, 0}
	return vertices, indices
}

// Uniform spins the quad around Z and looks at it from above.
func (g *TestGame) Uniform(extent metadata.Extent2D, elapsed time.Duration) metadata.UniformBufferObject {
	aspect := float32(1)
	if extent.Height > 0 {
		aspect = float32(extent.Width) / float32(extent.Height)
	}
	proj := mgl32.Perspective(mgl32.DegToRad(45), aspect, 0.1, 10.0)
	// Vulkan clip space has Y pointing down.
	proj[5] *= -1

	return metadata.UniformBufferObject{
		Model:      mgl32.HomogRotate3DZ(float32(elapsed.Seconds()) * spinSpeed),
		View:       mgl32.LookAtV(mgl32.Vec3{2, 2, 2}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1}),
		Projection: proj,
	}
}
