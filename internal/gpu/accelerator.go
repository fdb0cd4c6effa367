// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu implements the device-side convolution path on WebGPU.
// It owns the HAL device lifecycle, the compiled compute pipeline, and
// per-dispatch buffer staging. The package is wired into the public API
// through convolve.RegisterAccelerator; see the convolve/gpu package.
package gpu

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gogpu/convolve"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Accelerator runs the tiled convolution kernel on a WebGPU device.
// It implements convolve.Accelerator.
//
// Device initialization is deferred until the first dispatch so that
// registering the accelerator on a machine without a GPU stays cheap
// and the fallback path is exercised only when actually needed.
type Accelerator struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	dispatcher *Dispatcher

	gpuReady  bool
	initTried bool
	initErr   error
}

// Interface compliance check.
var _ convolve.Accelerator = (*Accelerator)(nil)

// Name returns the accelerator identifier.
func (a *Accelerator) Name() string { return "wgpu-tiled" }

// Init registers the accelerator. GPU device creation is deferred until
// the first dispatch.
func (a *Accelerator) Init() error {
	return nil
}

// Close releases all GPU resources held by the accelerator.
func (a *Accelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dispatcher != nil {
		a.dispatcher.Close()
		a.dispatcher = nil
	}
	if a.device != nil {
		a.device.Destroy()
		a.device = nil
	}
	if a.instance != nil {
		a.instance.Destroy()
		a.instance = nil
	}
	a.queue = nil
	a.gpuReady = false
	a.initTried = false
	a.initErr = nil
}

// SetLogger sets the logger for the accelerator and its internal
// packages. Called by convolve.SetLogger to propagate configuration.
func (a *Accelerator) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// CanCompute reports whether the device pipeline is available and ready.
// It forces device initialization if that has not happened yet.
func (a *Accelerator) CanCompute() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureGPU(); err != nil {
		return false
	}
	return a.gpuReady && a.dispatcher != nil
}

// Convolve launches the tiled kernel on the device and blocks until the
// result has been read back into dst.
//
// Configurations outside the device kernel's limits — a group shape
// other than 8x8 or a filter wider than MaxFilterWidth — return
// convolve.ErrFallbackToCPU. Device failures are fatal to the dispatch
// as a whole: dst is untouched on any error.
func (a *Accelerator) Convolve(dst, src *convolve.Image, filter *convolve.Filter, group convolve.GroupShape) error {
	if group.W != wgSize || group.H != wgSize {
		return fmt.Errorf("%w: device kernel is compiled for %dx%d groups, got %dx%d",
			convolve.ErrFallbackToCPU, wgSize, wgSize, group.W, group.H)
	}
	if filter.Width() > MaxFilterWidth {
		return fmt.Errorf("%w: device scratch holds filters up to width %d, got %d",
			convolve.ErrFallbackToCPU, MaxFilterWidth, filter.Width())
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ensureGPU(); err != nil {
		return fmt.Errorf("%w: %v", convolve.ErrFallbackToCPU, err)
	}

	cfg := convolveConfig{
		OutWidth:    uint32(dst.Width()),
		OutHeight:   uint32(dst.Height()),
		InStride:    uint32(src.Width()),
		FilterWidth: uint32(filter.Width()),
		Halo:        uint32(filter.HalfWidth()),
	}

	input := vec4sToBytes(src.Pix())
	weights := vec4sToBytes(filter.Weights())
	out := make([]byte, len(dst.Pix())*16)

	bufs, err := a.dispatcher.AllocateBuffers(cfg,
		uint64(len(input)), uint64(len(weights)), uint64(len(out)))
	if err != nil {
		return err
	}
	defer a.dispatcher.DestroyBuffers(bufs)

	if err := a.dispatcher.Dispatch(bufs, cfg, input, weights, out); err != nil {
		return err
	}

	bytesToVec4s(out, dst.Pix())
	return nil
}

// ensureGPU creates the standalone Vulkan device and compiles the
// pipeline on first use. The outcome, success or failure, is cached;
// callers must hold a.mu.
func (a *Accelerator) ensureGPU() error {
	if a.gpuReady {
		return nil
	}
	if a.initTried {
		return a.initErr
	}
	a.initTried = true
	a.initErr = a.initGPU()
	return a.initErr
}

// initGPU creates a standalone Vulkan device for compute-only use and
// compiles the convolution pipeline on it.
func (a *Accelerator) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	a.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	a.device = openDev.Device
	a.queue = openDev.Queue

	dispatcher := NewDispatcher(a.device, a.queue)
	if err := dispatcher.Init(); err != nil {
		return err
	}
	a.dispatcher = dispatcher

	a.gpuReady = true
	slogger().Info("convolve gpu: device initialized", "adapter", selected.Info.Name)
	return nil
}

// vec4sToBytes serializes a Vec4 slice as little-endian f32 words,
// matching the vec4<f32> storage buffer layout.
func vec4sToBytes(v []convolve.Vec4) []byte {
	buf := make([]byte, len(v)*16)
	le := binary.LittleEndian
	for i, p := range v {
		off := i * 16
		le.PutUint32(buf[off:], math.Float32bits(p[0]))
		le.PutUint32(buf[off+4:], math.Float32bits(p[1]))
		le.PutUint32(buf[off+8:], math.Float32bits(p[2]))
		le.PutUint32(buf[off+12:], math.Float32bits(p[3]))
	}
	return buf
}

// bytesToVec4s deserializes little-endian f32 words into dst.
// len(buf) must be len(dst)*16.
func bytesToVec4s(buf []byte, dst []convolve.Vec4) {
	le := binary.LittleEndian
	for i := range dst {
		off := i * 16
		dst[i] = convolve.Vec4{
			math.Float32frombits(le.Uint32(buf[off:])),
			math.Float32frombits(le.Uint32(buf[off+4:])),
			math.Float32frombits(le.Uint32(buf[off+8:])),
			math.Float32frombits(le.Uint32(buf[off+12:])),
		}
	}
}
