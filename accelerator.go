// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package convolve

import (
	"errors"
	"sync"
)

// ErrFallbackToCPU indicates the accelerator cannot handle this dispatch
// (for example an unsupported group shape or filter width). The caller
// should transparently fall back to the CPU work-group engine.
var ErrFallbackToCPU = errors.New("convolve: falling back to CPU engine")

// Accelerator is an optional device-side convolution provider.
//
// When registered via RegisterAccelerator, Run tries the accelerator
// first. If it returns ErrFallbackToCPU or any other error, the dispatch
// transparently falls back to the CPU engine.
//
// Implementations are provided by device backend packages. Users opt in
// via blank import:
//
//	import _ "github.com/gogpu/convolve/gpu" // enables WebGPU acceleration
type Accelerator interface {
	// Name returns the accelerator identifier (e.g. "wgpu-tiled").
	Name() string

	// Init initializes device resources. Called once during registration.
	Init() error

	// Close releases device resources.
	Close()

	// Convolve launches the tiled kernel over dst's pixel grid, grouped
	// by group, and blocks until the dispatch completes. dst and src must
	// already satisfy the geometry declared by the filter and group (see
	// Params.Validate); Convolve may assume validated inputs.
	//
	// Returns ErrFallbackToCPU when the configuration is outside the
	// device kernel's limits. Any other error is a device failure fatal
	// to this dispatch as a whole; no partial output is produced.
	Convolve(dst, src *Image, filter *Filter, group GroupShape) error
}

var (
	accelMu sync.RWMutex
	accel   Accelerator
)

// RegisterAccelerator registers a device accelerator.
//
// Only one accelerator can be registered; subsequent calls replace the
// previous one. The accelerator's Init() is called during registration.
// If Init() fails the accelerator is not registered and the error is
// returned.
func RegisterAccelerator(a Accelerator) error {
	if a == nil {
		return errors.New("convolve: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	propagateLogger(a, Logger())
	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// RegisteredAccelerator returns the current accelerator, or nil if none.
func RegisteredAccelerator() Accelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}
