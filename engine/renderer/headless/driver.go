// Package headless provides an in-memory metadata.Driver. It renders nothing: every call
// is recorded, handles come from a monotonic counter and results can be scripted, which
// makes the frame lifecycle observable without a GPU.
package headless

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// Adapter scripts one physical device.
type Adapter struct {
	Properties    metadata.PhysicalDeviceProperties
	Features      metadata.PhysicalDeviceFeatures
	QueueFamilies []metadata.QueueFamilyProperties
	Extensions    []string
	// PresentFamilies lists the families that can present. nil means every family can.
	PresentFamilies []uint32
	Capabilities    metadata.SurfaceCapabilities
	Formats         []metadata.SurfaceFormat
	PresentModes    []metadata.PresentMode
}

// DefaultAdapter is a discrete GPU with a single universal queue family.
func DefaultAdapter(name string) Adapter {
	return Adapter{
		Properties: metadata.PhysicalDeviceProperties{
			Name:        name,
			Type:        metadata.PhysicalDeviceTypeDiscrete,
			APIVersion:  1<<22 | 2<<12,
			MemoryHeaps: []metadata.MemoryHeap{{Size: 8 << 30, DeviceLocal: true}},
		},
		Features: metadata.PhysicalDeviceFeatures{SamplerAnisotropy: true},
		QueueFamilies: []metadata.QueueFamilyProperties{
			{Flags: metadata.QueueGraphics | metadata.QueueCompute | metadata.QueueTransfer, QueueCount: 16},
		},
		Extensions: []string{"VK_KHR_swapchain"},
		Capabilities: metadata.SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  8,
			CurrentExtent:  metadata.Extent2D{Width: metadata.UndefinedExtent, Height: metadata.UndefinedExtent},
			MinImageExtent: metadata.Extent2D{Width: 1, Height: 1},
			MaxImageExtent: metadata.Extent2D{Width: 4096, Height: 4096},
			SupportedUsage: metadata.ImageUsageColorAttachment |
				metadata.ImageUsageTransferSrc | metadata.ImageUsageTransferDst,
			CurrentTransform: 1,
		},
		Formats: []metadata.SurfaceFormat{
			{Format: metadata.FormatB8G8R8A8Srgb, ColorSpace: metadata.ColorSpaceSrgbNonlinear},
			{Format: metadata.FormatB8G8R8A8Unorm, ColorSpace: metadata.ColorSpaceSrgbNonlinear},
		},
		PresentModes: []metadata.PresentMode{metadata.PresentModeFifo, metadata.PresentModeMailbox},
	}
}

// Event is one recorded create or destroy call.
type Event struct {
	Destroy bool
	Kind    string
	Handle  metadata.Handle
}

func (e Event) String() string {
	op := "create"
	if e.Destroy {
		op = "destroy"
	}
	return fmt.Sprintf("%s %s %s", op, e.Kind, e.Handle)
}

// Submission is one recorded queue submit.
type Submission struct {
	Queue          metadata.Handle
	Fence          metadata.Handle
	CommandBuffers []metadata.Handle
}

type object struct {
	kind string
	// swapchain images, command buffers and descriptor sets are owned by a parent
	parent metadata.Handle
}

type fenceState struct {
	signaled bool
}

type bufferState struct {
	data []byte
	info metadata.BufferCreateInfo
}

type commandBufferState struct {
	recording bool
	commands  []string
}

type Driver struct {
	mu sync.Mutex

	Adapters []Adapter

	// Scripted results are consumed front to back. An empty script yields success.
	AcquireResults []metadata.Result
	PresentResults []metadata.Result
	FenceResults   []metadata.Result
	// Fail makes the next create call of the given kind fail with the given result.
	Fail map[string]metadata.Result

	next      metadata.Handle
	live      map[metadata.Handle]object
	events    []Event
	calls     map[string]int
	infos     map[string]any
	gpus      map[metadata.Handle]int
	fences    map[metadata.Handle]*fenceState
	buffers   map[metadata.Handle]*bufferState
	commands  map[metadata.Handle]*commandBufferState
	images    map[metadata.Handle][]metadata.Handle
	acquired  map[metadata.Handle]uint32
	submits   []Submission
	deviceGPU map[metadata.Handle]int
}

func NewDriver(adapters ...Adapter) *Driver {
	if len(adapters) == 0 {
		adapters = []Adapter{DefaultAdapter("headless")}
	}
	return &Driver{
		Adapters:  adapters,
		Fail:      make(map[string]metadata.Result),
		live:      make(map[metadata.Handle]object),
		calls:     make(map[string]int),
		infos:     make(map[string]any),
		gpus:      make(map[metadata.Handle]int),
		fences:    make(map[metadata.Handle]*fenceState),
		buffers:   make(map[metadata.Handle]*bufferState),
		commands:  make(map[metadata.Handle]*commandBufferState),
		images:    make(map[metadata.Handle][]metadata.Handle),
		acquired:  make(map[metadata.Handle]uint32),
		deviceGPU: make(map[metadata.Handle]int),
	}
}

// Events returns a copy of every recorded create and destroy call.
func (d *Driver) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

// Calls returns how often the named driver call ran.
func (d *Driver) Calls(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[name]
}

// LastInfo returns the last info struct passed to the create call of kind.
func (d *Driver) LastInfo(kind string) any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.infos[kind]
}

// Live returns the number of live objects of kind, or of every kind when kind is empty.
func (d *Driver) Live(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, o := range d.live {
		if kind == "" || o.kind == kind {
			n++
		}
	}
	return n
}

func (d *Driver) Submissions() []Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Submission(nil), d.submits...)
}

// BufferData returns the bytes last written to a host visible buffer.
func (d *Driver) BufferData(buffer metadata.Handle) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buffers[buffer]; ok {
		return append([]byte(nil), b.data...)
	}
	return nil
}

// Recorded returns the commands recorded into a command buffer.
func (d *Driver) Recorded(buffer metadata.Handle) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.commands[buffer]; ok {
		return append([]string(nil), c.commands...)
	}
	return nil
}

func (d *Driver) count(name string) {
	d.calls[name]++
}

func (d *Driver) create(kind string, info any) (metadata.Handle, error) {
	d.count("Create" + kind)
	if res, ok := d.Fail[kind]; ok {
		delete(d.Fail, kind)
		return metadata.NullHandle, metadata.NewResultError("create "+kind, res)
	}
	d.next++
	h := d.next
	d.live[h] = object{kind: kind}
	d.events = append(d.events, Event{Kind: kind, Handle: h})
	if info != nil {
		d.infos[kind] = info
	}
	return h, nil
}

func (d *Driver) destroy(kind string, h metadata.Handle) {
	d.count("Destroy" + kind)
	o, ok := d.live[h]
	if !ok {
		panic(fmt.Sprintf("headless: destroy of unknown %s %s", kind, h))
	}
	if o.kind != kind {
		panic(fmt.Sprintf("headless: destroy %s called on %s %s", kind, o.kind, h))
	}
	delete(d.live, h)
	d.events = append(d.events, Event{Destroy: true, Kind: kind, Handle: h})
}

// child allocates a handle owned by parent. Children are not part of the event log.
func (d *Driver) child(kind string, parent metadata.Handle) metadata.Handle {
	d.next++
	d.live[d.next] = object{kind: kind, parent: parent}
	return d.next
}

func (d *Driver) freeChildren(parent metadata.Handle) {
	for h, o := range d.live {
		if o.parent == parent {
			delete(d.live, h)
			delete(d.commands, h)
		}
	}
}

func pop(script *[]metadata.Result) metadata.Result {
	if len(*script) == 0 {
		return metadata.ResultSuccess
	}
	r := (*script)[0]
	*script = (*script)[1:]
	return r
}

func (d *Driver) adapter(gpu metadata.Handle) *Adapter {
	i, ok := d.gpus[gpu]
	if !ok {
		panic(fmt.Sprintf("headless: unknown physical device %s", gpu))
	}
	return &d.Adapters[i]
}
