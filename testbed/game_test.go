package testbed

import (
	"testing"
	"time"

	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

func TestMeshIndicesInRange(t *testing.T) {
	vertices, indices := NewTestGame().Mesh()
	if len(indices)%3 != 0 {
		t.Fatalf("%d indices is not a triangle list", len(indices))
	}
	for _, i := range indices {
		if int(i) >= len(vertices) {
			t.Fatalf("index %d out of range", i)
		}
	}
}

func TestUniformFlipsY(t *testing.T) {
	g := NewTestGame()
	ubo := g.Uniform(metadata.Extent2D{Width: 800, Height: 600}, 0)
	if ubo.Projection[5] >= 0 {
		t.Fatalf("projection y scale %f not flipped", ubo.Projection[5])
	}
	// A zero height must not produce NaN.
	ubo = g.Uniform(metadata.Extent2D{Width: 800}, time.Second)
	if ubo.Projection[0] != ubo.Projection[0] {
		t.Fatal("NaN in projection")
	}
}

func TestResizeUpdatesState(t *testing.T) {
	g := NewTestGame()
	ctx := &engine.Context{Config: core.DefaultConfig(), Events: core.NewEventBus()}
	if err := g.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	if g.state().width.Load() != 1280 {
		t.Fatalf("width %d", g.state().width.Load())
	}
	if err := g.OnResize(640, 480); err != nil {
		t.Fatal(err)
	}
	if g.state().width.Load() != 640 || g.state().height.Load() != 480 {
		t.Fatal("resize not stored")
	}
}
