// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package convolve performs 2D image convolution with an explicit tiled
// work-group kernel, on the GPU via WebGPU compute shaders or on the CPU
// via cooperating goroutine groups.
//
// The kernel partitions the output image into fixed-size work-groups.
// Each group stages a halo-padded tile of the input into a group-local
// scratch buffer with a cooperative strided load, synchronizes at a
// barrier, and then computes one filter-weighted sum per thread. The GPU
// and CPU paths execute the same protocol over the same geometry, so the
// CPU engine doubles as the reference for GPU parity testing.
//
// Basic usage, with the convolve/imageio package handling decode and
// halo padding:
//
//	filter, _ := convolve.NewFilter(convolve.FilterBox, 11)
//	src, _ := imageio.Read("dogs.png", filter.HalfWidth())
//	halo := filter.HalfWidth()
//	dst := convolve.NewImage(src.Width()-2*halo, src.Height()-2*halo)
//	err := convolve.Run(dst, src, filter, nil)
//
// GPU acceleration is opt-in via blank import:
//
//	import _ "github.com/gogpu/convolve/gpu" // enables the WebGPU path
//
// Without the import, or when no adapter is available, Run transparently
// falls back to the CPU work-group engine.
package convolve
