package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/core"
)

// ResourceKind names the driver object an entry owns. Used for logging and tests.
type ResourceKind string

const (
	KindInstance            ResourceKind = "instance"
	KindSurface             ResourceKind = "surface"
	KindDevice              ResourceKind = "device"
	KindCommandPool         ResourceKind = "command pool"
	KindCommandBuffers      ResourceKind = "command buffers"
	KindSwapchain           ResourceKind = "swapchain"
	KindImageView           ResourceKind = "image view"
	KindRenderPass          ResourceKind = "render pass"
	KindDescriptorSetLayout ResourceKind = "descriptor set layout"
	KindPipelineLayout      ResourceKind = "pipeline layout"
	KindPipeline            ResourceKind = "pipeline"
	KindFramebuffer         ResourceKind = "framebuffer"
	KindSemaphore           ResourceKind = "semaphore"
	KindFence               ResourceKind = "fence"
	KindBuffer              ResourceKind = "buffer"
	KindDescriptorPool      ResourceKind = "descriptor pool"
)

// ResourceID identifies a registry entry. IDs increase monotonically and are never reused.
type ResourceID uint64

// Mark is a position in the ownership stack. UnwindTo(mark) destroys everything pushed after it.
type Mark int

type registryEntry struct {
	id       ResourceID
	kind     ResourceKind
	label    string
	destroy  func()
	released bool
}

// Registry is an ownership stack of driver objects. Every object is pushed right after its
// create call succeeded together with the call that destroys it; unwinding runs those
// calls in exact reverse order of creation.
type Registry struct {
	entries []*registryEntry
	index   map[ResourceID]*registryEntry
	nextID  ResourceID
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[ResourceID]*registryEntry)}
}

func (r *Registry) Push(kind ResourceKind, label string, destroy func()) ResourceID {
	r.nextID++
	e := &registryEntry{id: r.nextID, kind: kind, label: label, destroy: destroy}
	r.entries = append(r.entries, e)
	r.index[e.id] = e
	core.LogDebug("registered %s %s (#%d)", kind, label, e.id)
	return e.id
}

func (r *Registry) Mark() Mark {
	return Mark(len(r.entries))
}

// UnwindTo destroys every entry above mark, last pushed first.
func (r *Registry) UnwindTo(mark Mark) {
	if int(mark) < 0 || int(mark) > len(r.entries) {
		panic(errors.AssertionFailedf("registry mark %d out of range [0, %d]", mark, len(r.entries)))
	}
	for i := len(r.entries) - 1; i >= int(mark); i-- {
		e := r.entries[i]
		if !e.released {
			core.LogDebug("destroying %s %s (#%d)", e.kind, e.label, e.id)
			e.destroy()
		}
		delete(r.index, e.id)
		r.entries[i] = nil
	}
	r.entries = r.entries[:mark]
}

func (r *Registry) Unwind() {
	r.UnwindTo(0)
}

// Release destroys a single entry ahead of the unwind. Releasing an entry twice, or one
// the registry does not know, is a contract violation.
func (r *Registry) Release(id ResourceID) {
	e, ok := r.index[id]
	if !ok {
		panic(errors.AssertionFailedf("release of unknown resource #%d", id))
	}
	if e.released {
		panic(errors.AssertionFailedf("double release of %s %s (#%d)", e.kind, e.label, id))
	}
	core.LogDebug("releasing %s %s (#%d)", e.kind, e.label, e.id)
	e.released = true
	e.destroy()
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	n := 0
	for _, e := range r.entries {
		if !e.released {
			n++
		}
	}
	return n
}

// Kinds lists the kinds of the live entries in creation order.
func (r *Registry) Kinds() []ResourceKind {
	out := make([]ResourceKind, 0, len(r.entries))
	for _, e := range r.entries {
		if !e.released {
			out = append(out, e.kind)
		}
	}
	return out
}

// Scope returns a function that unwinds to the current position unless *err is nil.
// Phases use it as `defer reg.Scope(&err)()` so a failing step leaves nothing behind.
func (r *Registry) Scope(err *error) func() {
	mark := r.Mark()
	return func() {
		if *err != nil {
			r.UnwindTo(mark)
		}
	}
}
