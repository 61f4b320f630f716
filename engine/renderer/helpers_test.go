package renderer

import (
	"sync"
	"testing"

	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/headless"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

type fakeSurface struct {
	mu       sync.Mutex
	width    uint32
	height   uint32
	onResize func(width, height uint32)
}

func newFakeSurface(width, height uint32) *fakeSurface {
	return &fakeSurface{width: width, height: height}
}

func (s *fakeSurface) FramebufferSize() (uint32, uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *fakeSurface) RequiredSurfaceExtensions() []string {
	return []string{"VK_KHR_surface"}
}

func (s *fakeSurface) CreateNativeSurface(instance any) (uintptr, error) {
	return 0x5eed, nil
}

func (s *fakeSurface) SetResizeCallback(fn func(width, height uint32)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResize = fn
}

// resize changes the size and fires the callback like a window system would.
func (s *fakeSurface) resize(width, height uint32) {
	s.mu.Lock()
	s.width, s.height = width, height
	fn := s.onResize
	s.mu.Unlock()
	if fn != nil {
		fn(width, height)
	}
}

type fakeShaders struct {
	stages  []metadata.ShaderStage
	err     error
	changed chan struct{}
	loads   int
}

func newFakeShaders() *fakeShaders {
	return &fakeShaders{stages: testStages(), changed: make(chan struct{}, 1)}
}

func (f *fakeShaders) ShaderStages() ([]metadata.ShaderStage, error) {
	f.loads++
	return f.stages, f.err
}

func (f *fakeShaders) Changed() <-chan struct{} {
	return f.changed
}

type quadMesh struct{}

func (quadMesh) Mesh() ([]metadata.Vertex, []uint32) {
	return testVertices(), []uint32{0, 1, 2, 2, 3, 0}
}

func testStages() []metadata.ShaderStage {
	return []metadata.ShaderStage{
		{Type: metadata.ShaderStageTypeVertex, EntryPoint: "main", Code: []byte{0x03, 0x02, 0x23, 0x07, 1, 0, 0, 0}},
		{Type: metadata.ShaderStageTypeFragment, EntryPoint: "main", Code: []byte{0x03, 0x02, 0x23, 0x07, 2, 0, 0, 0}},
	}
}

func testVertices() []metadata.Vertex {
	return []metadata.Vertex{
		{Position: [3]float32{-0.5, -0.5, 0}, Color: [4]float32{1, 0, 0, 1}},
		{Position: [3]float32{0.5, -0.5, 0}, Color: [4]float32{0, 1, 0, 1}},
		{Position: [3]float32{0.5, 0.5, 0}, Color: [4]float32{0, 0, 1, 1}},
		{Position: [3]float32{-0.5, 0.5, 0}, Color: [4]float32{1, 1, 1, 1}},
	}
}

func mustPanic(t *testing.T, what string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s: expected a panic", what)
		}
	}()
	fn()
}

// setupDevice runs the instance and device phases on a fresh registry.
func setupDevice(t *testing.T, drv *headless.Driver) (Phase, InstanceState, DeviceState) {
	t.Helper()
	phase := Phase{Driver: drv, Registry: NewRegistry()}
	inst, err := phase.CreateInstance(InstanceConfig{ApplicationName: "test"}, newFakeSurface(800, 600))
	if err != nil {
		t.Fatalf("create instance: %v", err)
	}
	dev, err := phase.CreateDevice(inst, DefaultDeviceCriteria())
	if err != nil {
		t.Fatalf("create device: %v", err)
	}
	return phase, inst, dev
}

func testContext(mutate func(cfg *core.Config)) *engine.Context {
	cfg := core.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	return &engine.Context{Config: cfg, Events: core.NewEventBus()}
}

type rendererFixture struct {
	drv      *headless.Driver
	surface  *fakeSurface
	shaders  *fakeShaders
	renderer *Renderer
	ctx      *engine.Context
}

func newRendererFixture(t *testing.T, drv *headless.Driver, mutate func(cfg *core.Config)) *rendererFixture {
	t.Helper()
	if drv == nil {
		drv = headless.NewDriver()
	}
	f := &rendererFixture{
		drv:     drv,
		surface: newFakeSurface(800, 600),
		shaders: newFakeShaders(),
		ctx:     testContext(mutate),
	}
	f.renderer = New(Options{
		Driver:  drv,
		Surface: f.surface,
		Shaders: f.shaders,
		Meshes:  quadMesh{},
	})
	return f
}

func (f *rendererFixture) init(t *testing.T) {
	t.Helper()
	if err := f.renderer.Initialize(f.ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(func() { _ = f.renderer.Terminate(f.ctx) })
}

func (f *rendererFixture) tick(t *testing.T) {
	t.Helper()
	if err := f.renderer.Tick(f.ctx); err != nil {
		t.Fatalf("tick %d: %v", f.ctx.Tick, err)
	}
	f.ctx.Tick++
}

// frameSubmissions drops the fence-less single use submits of the mesh upload.
func frameSubmissions(drv *headless.Driver) []headless.Submission {
	var out []headless.Submission
	for _, s := range drv.Submissions() {
		if !s.Fence.IsNull() {
			out = append(out, s)
		}
	}
	return out
}
