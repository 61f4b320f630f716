package core

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrNoSuitableDevice is fatal: no adapter resolves every required queue role.
	ErrNoSuitableDevice = errors.New("no physical device satisfies the renderer requirements")
	// ErrSwapchainStale is reported by acquire/present when the swapchain must be rebuilt.
	ErrSwapchainStale = errors.New("swapchain out of date")
	// ErrFenceTimeout marks a fence wait that expired before the GPU signaled it.
	ErrFenceTimeout = errors.New("fence wait timed out")
	// ErrDeviceLost marks any failure caused by a lost logical device.
	ErrDeviceLost = errors.New("device lost")
	// ErrNotInitialized is returned when a module is ticked before Initialize succeeded.
	ErrNotInitialized = errors.New("module not initialized")
)
