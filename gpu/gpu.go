// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu registers the WebGPU accelerator for device-side
// convolution.
//
// Import this package to run dispatches on the GPU via wgpu/hal compute
// shaders. If device initialization fails (no Vulkan available), the
// dispatch transparently falls back to the CPU work-group engine.
//
// Usage:
//
//	import _ "github.com/gogpu/convolve/gpu" // enable GPU dispatch
package gpu

import (
	"github.com/gogpu/convolve"
	gpuimpl "github.com/gogpu/convolve/internal/gpu"
)

func init() {
	if err := convolve.RegisterAccelerator(&gpuimpl.Accelerator{}); err != nil {
		convolve.Logger().Warn("GPU accelerator not available", "err", err)
	}
}
