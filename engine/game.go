package engine

import "github.com/spaghettifunk/ember/engine/core"

// Game is the application module. It runs after the engine modules it was given with, so
// its update sees the frame state of the current tick.
type Game struct {
	GameName     string
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func(ctx *Context) error
type Update func(ctx *Context) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error

func (g *Game) Name() string {
	if g.GameName == "" {
		return "game"
	}
	return g.GameName
}

func (g *Game) Type() ModuleType {
	return ModuleTypeOther
}

func (g *Game) Initialize(ctx *Context) error {
	if g.FnOnResize != nil {
		ctx.Events.Register(core.EVENT_CODE_RESIZED, g, g.onResized)
	}
	if g.FnInitialize != nil {
		return g.FnInitialize(ctx)
	}
	return nil
}

func (g *Game) Tick(ctx *Context) error {
	if g.FnUpdate != nil {
		return g.FnUpdate(ctx)
	}
	return nil
}

func (g *Game) Terminate(ctx *Context) error {
	ctx.Events.Unregister(core.EVENT_CODE_RESIZED, g)
	if g.FnShutdown != nil {
		return g.FnShutdown()
	}
	return nil
}

func (g *Game) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	width, height := data.U32[0], data.U32[1]
	if width == 0 || height == 0 {
		return false
	}
	if err := g.FnOnResize(width, height); err != nil {
		core.LogError("game resize handler failed: %s", err)
	}
	return false
}
