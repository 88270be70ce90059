package core

import (
	"errors"
)

// Error kinds of the engine failure model. Recoverable kinds are handled
// where they occur; everything else sets the quit flag and unwinds
// through cleanup.
var (
	// ErrInitFailure covers any failure during engine or game bring-up.
	ErrInitFailure = errors.New("engine initialization failed")

	// ErrDeviceLost is fatal. The loop exits after one final barrier.
	ErrDeviceLost = errors.New("vulkan device lost")

	// ErrSwapchainOutOfDate asks the frame scheduler for a recreation.
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")

	// ErrRecordFailure is a non-recoverable command recording error.
	ErrRecordFailure = errors.New("command buffer recording failed")

	// ErrModuleLoad covers a missing library, symbol resolution failure
	// or an ABI version mismatch.
	ErrModuleLoad = errors.New("game module load failed")

	// ErrGpuAlloc covers buffer and image allocation failures.
	ErrGpuAlloc = errors.New("gpu allocation failed")

	// ErrMeshLoad covers glTF decode failures and empty geometry.
	ErrMeshLoad = errors.New("mesh load failed")
)
