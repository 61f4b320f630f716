package renderer

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// FrameSlot holds the synchronization objects of one frame in flight.
type FrameSlot struct {
	ImageAvailable metadata.Handle
	RenderFinished metadata.Handle
	InFlight       metadata.Handle
}

// fencePhase tracks the signaled -> waited -> reset -> signaled cycle of a slot fence.
type fencePhase int

const (
	fenceSignaled fencePhase = iota
	fenceWaited
	fenceReset
)

func (f fencePhase) String() string {
	switch f {
	case fenceWaited:
		return "waited"
	case fenceReset:
		return "reset"
	default:
		return "signaled"
	}
}

// SyncUnit owns the frame slots and remembers which slot fence last claimed each
// swapchain image.
type SyncUnit struct {
	driver metadata.Driver
	device metadata.Handle

	slots          []FrameSlot
	phases         map[metadata.Handle]fencePhase
	imagesInFlight []metadata.Handle

	registry *Registry
	id       ResourceID
}

// NewSyncUnit creates frameSlotCount slots, each with two semaphores and a fence created
// signaled so the first wait on it returns immediately. The whole unit is one registry
// entry; its objects are destroyed in reverse creation order.
func (p Phase) NewSyncUnit(device metadata.Handle, frameSlotCount, imageCount uint32) (*SyncUnit, error) {
	if frameSlotCount == 0 {
		panic(errors.AssertionFailedf("sync unit needs at least one frame slot"))
	}
	s := &SyncUnit{
		driver:         p.Driver,
		device:         device,
		phases:         make(map[metadata.Handle]fencePhase),
		imagesInFlight: make([]metadata.Handle, imageCount),
		registry:       p.Registry,
	}

	var created []func()
	destroyAll := func() {
		for i := len(created) - 1; i >= 0; i-- {
			created[i]()
		}
	}

	for i := uint32(0); i < frameSlotCount; i++ {
		var slot FrameSlot
		var err error

		if slot.ImageAvailable, err = p.Driver.CreateSemaphore(device, &metadata.SemaphoreCreateInfo{SType: metadata.StructureTypeSemaphoreCreateInfo}); err != nil {
			destroyAll()
			return nil, errors.Wrapf(err, "create image available semaphore %d", i)
		}
		sem := slot.ImageAvailable
		created = append(created, func() { p.Driver.DestroySemaphore(device, sem) })

		if slot.RenderFinished, err = p.Driver.CreateSemaphore(device, &metadata.SemaphoreCreateInfo{SType: metadata.StructureTypeSemaphoreCreateInfo}); err != nil {
			destroyAll()
			return nil, errors.Wrapf(err, "create render finished semaphore %d", i)
		}
		sem2 := slot.RenderFinished
		created = append(created, func() { p.Driver.DestroySemaphore(device, sem2) })

		if slot.InFlight, err = p.Driver.CreateFence(device, &metadata.FenceCreateInfo{SType: metadata.StructureTypeFenceCreateInfo, Signaled: true}); err != nil {
			destroyAll()
			return nil, errors.Wrapf(err, "create in flight fence %d", i)
		}
		fence := slot.InFlight
		created = append(created, func() { p.Driver.DestroyFence(device, fence) })

		s.phases[slot.InFlight] = fenceSignaled
		s.slots = append(s.slots, slot)
	}

	s.id = p.Registry.Push(KindFence, fmt.Sprintf("%d frame slots", frameSlotCount), destroyAll)
	core.LogDebug("Created %d frame slots.", frameSlotCount)
	return s, nil
}

func (s *SyncUnit) SlotCount() int {
	return len(s.slots)
}

// Slot returns the slot used by frame frameIndex, i.e. slot frameIndex mod F.
func (s *SyncUnit) Slot(frameIndex uint64) FrameSlot {
	return s.slots[frameIndex%uint64(len(s.slots))]
}

func (s *SyncUnit) AcquireFence(frameIndex uint64) metadata.Handle {
	return s.Slot(frameIndex).InFlight
}

// Wait blocks on fence for at most timeout nanoseconds and returns the driver result.
// A successful wait moves a slot fence to the waited phase.
func (s *SyncUnit) Wait(fence metadata.Handle, timeout uint64) metadata.Result {
	res := s.driver.WaitForFence(s.device, fence, timeout)
	if res == metadata.ResultSuccess {
		if phase, ok := s.phases[fence]; ok && phase == fenceSignaled {
			s.phases[fence] = fenceWaited
		}
	}
	return res
}

// Reset unsignals a fence that has been waited on. Resetting a fence nobody waited on
// would race the GPU and is a contract violation.
func (s *SyncUnit) Reset(fence metadata.Handle) metadata.Result {
	phase, ok := s.phases[fence]
	if !ok {
		panic(errors.AssertionFailedf("reset of unknown fence %s", fence))
	}
	if phase != fenceWaited {
		panic(errors.AssertionFailedf("reset of fence %s in phase %s, it must be waited on first", fence, phase))
	}
	res := s.driver.ResetFence(s.device, fence)
	if res == metadata.ResultSuccess {
		s.phases[fence] = fenceReset
	}
	return res
}

// Submitted records that work signaling fence was handed to a queue.
func (s *SyncUnit) Submitted(fence metadata.Handle) {
	if phase := s.phases[fence]; phase != fenceReset {
		panic(errors.AssertionFailedf("submit with fence %s in phase %s, it must be reset first", fence, phase))
	}
	s.phases[fence] = fenceSignaled
}

// ImageFence returns the fence that last claimed the image, or NullHandle.
func (s *SyncUnit) ImageFence(imageIndex uint32) metadata.Handle {
	return s.imagesInFlight[imageIndex]
}

func (s *SyncUnit) MarkImageInFlight(imageIndex uint32, fence metadata.Handle) {
	s.imagesInFlight[imageIndex] = fence
}

// ResizeImages forgets every image claim; called after the swapchain was rebuilt.
func (s *SyncUnit) ResizeImages(imageCount uint32) {
	s.imagesInFlight = make([]metadata.Handle, imageCount)
}

// Destroy releases every slot object ahead of the registry unwind.
func (s *SyncUnit) Destroy() {
	s.registry.Release(s.id)
	s.slots = nil
	s.imagesInFlight = nil
	clear(s.phases)
}
