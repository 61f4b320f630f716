/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/assets"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/platform"
	"github.com/spaghettifunk/ember/engine/renderer"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
	"github.com/spaghettifunk/ember/testbed"
)

func main() {
	configPath := flag.String("config", "ember.toml", "path of the configuration file")
	flag.Parse()

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		core.LogFatal("failed to load configuration: %+v", err)
	}
	core.SetLogLevel(cfg.Log.Level)

	window, err := platform.New()
	if err != nil {
		core.LogFatal("%+v", err)
	}
	driver, err := vulkan.NewDriver(window.VulkanProcAddr())
	if err != nil {
		core.LogFatal("%+v", err)
	}

	tb := testbed.NewTestGame()
	am := assets.NewAssetManager(cfg.Assets)
	r := renderer.New(renderer.Options{
		Driver:   driver,
		Surface:  window,
		Shaders:  am,
		Meshes:   tb,
		Uniforms: tb,
	})

	e, err := engine.New(cfg, window, am, r, tb.Game)
	if err != nil {
		core.LogFatal("%+v", err)
	}
	if err := e.Initialize(); err != nil {
		core.LogFatal("failed to initialize engine: %+v", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-sigCh
		e.Stop()
	}()

	// run engine
	if err := e.Run(); err != nil {
		core.LogFatal("%+v", err)
	}
}
