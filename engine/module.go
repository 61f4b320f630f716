package engine

import (
	"time"

	"github.com/spaghettifunk/ember/engine/core"
)

type ModuleType uint8

const (
	ModuleTypeSurface ModuleType = iota
	ModuleTypeRenderer
	ModuleTypeAudio
	ModuleTypeIO
	ModuleTypeOther
)

func (t ModuleType) String() string {
	switch t {
	case ModuleTypeSurface:
		return "SURFACE"
	case ModuleTypeRenderer:
		return "RENDERER"
	case ModuleTypeAudio:
		return "AUDIO"
	case ModuleTypeIO:
		return "IO"
	default:
		return "OTHER"
	}
}

// Context is handed to every module call. The engine owns it; modules must not keep it
// past the call.
type Context struct {
	// Tick is the number of completed ticks.
	Tick uint64
	// Time elapsed since the engine started running.
	Time time.Duration
	// Delta is the time since the previous tick.
	Delta  time.Duration
	Config *core.Config
	Events *core.EventBus
}

// Module is a unit of the engine lifecycle. Modules are initialized and ticked in the
// order they were given to the engine and terminated in reverse order.
type Module interface {
	Name() string
	Type() ModuleType
	Initialize(ctx *Context) error
	Tick(ctx *Context) error
	// Terminate is only called on modules whose Initialize succeeded.
	Terminate(ctx *Context) error
}
