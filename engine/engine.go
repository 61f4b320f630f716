package engine

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/core"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

func (s Stage) String() string {
	return [...]string{"uninitialized", "booting", "boot complete", "initializing", "initialized", "running", "shutting down"}[s]
}

// Engine drives a fixed list of modules through initialize, tick and terminate.
type Engine struct {
	currentStage Stage
	modules      []Module
	// number of modules whose Initialize succeeded, in order
	initialized int
	stop        atomic.Bool

	config *core.Config
	events *core.EventBus
	clock  *core.Clock
	ctx    Context
}

func New(cfg *core.Config, modules ...Module) (*Engine, error) {
	return NewWithClock(cfg, core.NewClock(), modules...)
}

// NewWithClock is New with a caller supplied clock.
func NewWithClock(cfg *core.Config, clock *core.Clock, modules ...Module) (*Engine, error) {
	e := &Engine{currentStage: EngineStageBooting}

	if cfg == nil {
		return nil, errors.New("engine needs a configuration")
	}
	if len(modules) == 0 {
		return nil, errors.New("engine needs at least one module")
	}
	seen := make(map[string]bool, len(modules))
	for _, m := range modules {
		if seen[m.Name()] {
			return nil, errors.Newf("module %q registered twice", m.Name())
		}
		seen[m.Name()] = true
	}

	e.modules = modules
	e.config = cfg
	e.events = core.NewEventBus()
	e.clock = clock
	e.ctx = Context{Config: cfg, Events: e.events}
	e.currentStage = EngineStageBootComplete
	return e, nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Events() *core.EventBus {
	return e.events
}

// Initialize initializes every module in order. If one fails, the modules initialized
// before it are terminated in reverse order and the engine goes back to boot complete.
func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageBootComplete {
		return errors.Newf("engine cannot initialize while %s", e.currentStage)
	}
	e.currentStage = EngineStageInitializing

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	for _, m := range e.modules {
		core.LogInfo("Initializing %s module %s...", m.Type(), m.Name())
		if err := m.Initialize(&e.ctx); err != nil {
			err = errors.Wrapf(err, "initialize %s module %q", m.Type(), m.Name())
			core.LogError(err.Error())
			if termErr := e.terminateModules(); termErr != nil {
				err = errors.CombineErrors(err, termErr)
			}
			e.events.Shutdown()
			e.currentStage = EngineStageBootComplete
			return err
		}
		e.initialized++
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("Engine initialized with %d modules.", len(e.modules))
	return nil
}

// Step dispatches pending events and ticks every module once, in order.
func (e *Engine) Step() error {
	if e.currentStage != EngineStageInitialized && e.currentStage != EngineStageRunning {
		return errors.Wrapf(core.ErrNotInitialized, "engine ticked while %s", e.currentStage)
	}
	if !e.clock.Running() {
		e.clock.Start()
	}

	e.events.Dispatch()
	if e.stop.Load() {
		return nil
	}

	e.ctx.Delta = e.clock.Update()
	e.ctx.Time = e.clock.Elapsed()
	for _, m := range e.modules {
		if err := m.Tick(&e.ctx); err != nil {
			return errors.Wrapf(err, "tick %s module %q", m.Type(), m.Name())
		}
	}
	e.ctx.Tick++
	return nil
}

// Run ticks until Stop is called, a quit event arrives or a module fails, then shuts the
// engine down.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.Newf("engine cannot run while %s", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.clock.Start()

	var runErr error
	for !e.stop.Load() {
		if err := e.Step(); err != nil {
			core.LogError("Engine tick failed, shutting down: %s", err)
			runErr = err
			break
		}
	}

	if err := e.Shutdown(); err != nil {
		runErr = errors.CombineErrors(runErr, err)
	}
	return runErr
}

// Stop asks Run to return after the current tick. Safe from any goroutine.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// Shutdown terminates the initialized modules in reverse order.
func (e *Engine) Shutdown() error {
	if e.currentStage != EngineStageInitialized && e.currentStage != EngineStageRunning {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	core.LogInfo("Engine shutting down...")

	err := e.terminateModules()
	e.events.Shutdown()
	e.clock.Stop()
	e.currentStage = EngineStageUninitialized
	return err
}

func (e *Engine) terminateModules() error {
	var errs error
	for i := e.initialized - 1; i >= 0; i-- {
		m := e.modules[i]
		core.LogInfo("Terminating %s module %s...", m.Type(), m.Name())
		if err := m.Terminate(&e.ctx); err != nil {
			core.LogError("module %s failed to terminate: %s", m.Name(), err)
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "terminate module %q", m.Name()))
		}
	}
	e.initialized = 0
	return errs
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.Stop()
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	width, height := data.U32[0], data.U32[1]
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized (%dx%d).", width, height)
	} else {
		core.LogDebug("Window resize: %d, %d", width, height)
	}
	// Let other listeners see it too.
	return false
}
