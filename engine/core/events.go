package core

import (
	"sync"

	"github.com/spaghettifunk/ember/engine/containers"
)

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Resized/resolution changed from the OS.
	/* Context usage:
	 * u32 width = data.U32[0];
	 * u32 height = data.U32[1];
	 */
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	// One or more shader binaries changed on disk.
	/* Context usage:
	 * string path = data.Path;
	 */
	EVENT_CODE_SHADERS_CHANGED SystemEventCode = 0x09

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

const eventQueueSize = 256

type EventContext struct {
	Code SystemEventCode
	U32  [4]uint32
	Path string
}

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type queuedEvent struct {
	sender interface{}
	data   EventContext
}

// EventBus dispatches events on the engine thread. Post is safe from any goroutine
// (GLFW callbacks, the asset watcher); Dispatch runs the listeners.
type EventBus struct {
	mu         sync.Mutex
	registered map[SystemEventCode][]*registeredEvent
	pending    *containers.RingQueue[queuedEvent]
}

func NewEventBus() *EventBus {
	return &EventBus{
		registered: make(map[SystemEventCode][]*registeredEvent),
		pending:    containers.NewRingQueue[queuedEvent](eventQueueSize),
	}
}

// Register to listen for when events are sent with the provided code. Duplicate listeners
// for the same code are rejected.
func (b *EventBus) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range b.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code `%d`", code)
			return false
		}
	}
	b.registered[code] = append(b.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

func (b *EventBus) Unregister(code SystemEventCode, listener interface{}) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := b.registered[code]
	for i, e := range events {
		if e.listener == listener {
			b.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// Post queues an event for the next Dispatch. When the queue is full the oldest event is dropped.
func (b *EventBus) Post(sender interface{}, data EventContext) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending.IsFull() {
		LogWarn("event queue full, dropping oldest event")
	}
	b.pending.Push(queuedEvent{sender: sender, data: data})
}

// Dispatch delivers every queued event and returns how many were delivered.
func (b *EventBus) Dispatch() int {
	b.mu.Lock()
	var batch []queuedEvent
	for !b.pending.IsEmpty() {
		e, _ := b.pending.Dequeue()
		batch = append(batch, e)
	}
	b.mu.Unlock()

	for _, e := range batch {
		b.Fire(e.data.Code, e.sender, e.data)
	}
	return len(batch)
}

// Fire delivers an event synchronously. If a handler returns true the event is
// considered handled and is not passed on to any more listeners.
func (b *EventBus) Fire(code SystemEventCode, sender interface{}, data EventContext) bool {
	b.mu.Lock()
	events := append([]*registeredEvent(nil), b.registered[code]...)
	b.mu.Unlock()

	data.Code = code
	for _, e := range events {
		if e.callback(code, sender, e.listener, data) {
			return true
		}
	}
	return false
}

func (b *EventBus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registered = make(map[SystemEventCode][]*registeredEvent)
	for !b.pending.IsEmpty() {
		_, _ = b.pending.Dequeue()
	}
}
