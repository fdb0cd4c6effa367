// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// dispatcher.go defines the GPU dispatch orchestration for the tiled
// convolution kernel: shader compilation, buffer lifecycle, bind groups,
// and the single compute pass that runs one work-group per 8x8 output
// tile.

package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/convolve.wgsl
var shaderConvolve string

const (
	// wgSize is the workgroup side length used by the convolution shader.
	// This matches the WG_SIZE constant and @workgroup_size in convolve.wgsl.
	wgSize = 8

	// MaxFilterWidth is the largest filter the device kernel supports.
	// The workgroup scratch array is statically sized for this width;
	// larger filters fall back to the CPU engine.
	MaxFilterWidth = 15

	// submitTimeout is the maximum time to wait for submitted GPU work
	// to complete.
	submitTimeout = 5 * time.Second

	// pollInterval is the sleep between completion polls while waiting
	// for a submission.
	pollInterval = 100 * time.Microsecond
)

// convolveConfig holds the parameters uploaded as the Config uniform
// buffer at binding(0). This struct must match the Config struct in
// convolve.wgsl: 8 consecutive u32 fields in the same order.
type convolveConfig struct {
	// OutWidth, OutHeight are the output dimensions in pixels.
	OutWidth  uint32
	OutHeight uint32

	// InStride is the padded input width in pixels.
	InStride uint32

	// FilterWidth is the filter's side length (odd).
	FilterWidth uint32

	// Halo is FilterWidth / 2.
	Halo uint32
}

// sizeInBytes returns the uniform buffer size: 8 u32 fields including
// the WGSL struct's trailing padding.
func (c convolveConfig) sizeInBytes() uint64 {
	return 8 * 4
}

// toBytes serializes convolveConfig in little-endian format, matching
// the WGSL Config layout.
func (c convolveConfig) toBytes() []byte {
	buf := make([]byte, c.sizeInBytes())
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], c.OutWidth)
	le.PutUint32(buf[4:8], c.OutHeight)
	le.PutUint32(buf[8:12], c.InStride)
	le.PutUint32(buf[12:16], c.FilterWidth)
	le.PutUint32(buf[16:20], c.Halo)
	return buf
}

// Buffers holds the GPU buffer handles for one dispatch. Input and
// filter are read-only storage for the kernel; output is written by the
// kernel and copied into the staging buffer for CPU readback.
type Buffers struct {
	// Config is the uniform buffer, bound at group(0) binding(0).
	Config hal.Buffer

	// Input is the halo-padded input image, vec4 per pixel, binding(1).
	Input hal.Buffer

	// Filter is the row-major weight matrix, vec4 per cell, binding(2).
	Filter hal.Buffer

	// Output is the unpadded result, vec4 per pixel, binding(3).
	Output hal.Buffer

	// Staging receives a copy of Output for mapped readback.
	Staging hal.Buffer
}

// Dispatcher compiles the convolution pipeline once and launches
// dispatches against it. Create with NewDispatcher, initialize with
// Init, release with Close.
type Dispatcher struct {
	mu sync.RWMutex

	device hal.Device
	queue  hal.Queue

	pipeline       hal.ComputePipeline
	pipelineLayout hal.PipelineLayout
	bgLayout       hal.BindGroupLayout
	shaderModule   hal.ShaderModule

	initialized bool
}

// NewDispatcher creates a dispatcher attached to the given HAL device
// and queue. Init must be called before Dispatch.
func NewDispatcher(device hal.Device, queue hal.Queue) *Dispatcher {
	return &Dispatcher{device: device, queue: queue}
}

// bindGroupLayoutEntries returns the layout entries matching the
// @group(0) @binding(N) annotations in convolve.wgsl.
func bindGroupLayoutEntries() []gputypes.BindGroupLayoutEntry {
	buffer := func(binding uint32, typ gputypes.BufferBindingType) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: typ},
		}
	}
	return []gputypes.BindGroupLayoutEntry{
		buffer(0, gputypes.BufferBindingTypeUniform),
		buffer(1, gputypes.BufferBindingTypeReadOnlyStorage),
		buffer(2, gputypes.BufferBindingTypeReadOnlyStorage),
		buffer(3, gputypes.BufferBindingTypeStorage),
	}
}

// Init compiles the WGSL kernel to SPIR-V and creates the compute
// pipeline. Safe to call multiple times; subsequent calls are no-ops.
func (d *Dispatcher) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}
	if shaderConvolve == "" {
		return fmt.Errorf("convolve gpu: missing embedded shader source")
	}

	spirv, err := compileShaderToSPIRV(shaderConvolve)
	if err != nil {
		return fmt.Errorf("convolve gpu: %w", err)
	}

	module, err := createShaderModule(d.device, "convolve_tiled", spirv)
	if err != nil {
		return fmt.Errorf("convolve gpu: create shader module: %w", err)
	}
	d.shaderModule = module

	bgLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "convolve_tiled_bgl",
		Entries: bindGroupLayoutEntries(),
	})
	if err != nil {
		d.destroyPartialInit()
		return fmt.Errorf("convolve gpu: create bind group layout: %w", err)
	}
	d.bgLayout = bgLayout

	pipelineLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "convolve_tiled_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
	})
	if err != nil {
		d.destroyPartialInit()
		return fmt.Errorf("convolve gpu: create pipeline layout: %w", err)
	}
	d.pipelineLayout = pipelineLayout

	pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "convolve_tiled",
		Layout: pipelineLayout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		d.destroyPartialInit()
		return fmt.Errorf("convolve gpu: create compute pipeline: %w", err)
	}
	d.pipeline = pipeline

	slogger().Debug("convolve gpu: pipeline created", "shader_bytes", len(shaderConvolve))

	d.initialized = true
	return nil
}

// destroyPartialInit cleans up resources created by a failed Init so no
// resource leaks on partial initialization.
func (d *Dispatcher) destroyPartialInit() {
	if d.pipeline != nil {
		d.device.DestroyComputePipeline(d.pipeline)
		d.pipeline = nil
	}
	if d.pipelineLayout != nil {
		d.device.DestroyPipelineLayout(d.pipelineLayout)
		d.pipelineLayout = nil
	}
	if d.bgLayout != nil {
		d.device.DestroyBindGroupLayout(d.bgLayout)
		d.bgLayout = nil
	}
	if d.shaderModule != nil {
		d.device.DestroyShaderModule(d.shaderModule)
		d.shaderModule = nil
	}
}

// Close releases all GPU resources held by the dispatcher.
// After Close, the dispatcher must be re-initialized before use.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyPartialInit()
	d.initialized = false
}

// AllocateBuffers creates the GPU buffers for one dispatch. inputSize,
// filterSize, and outputSize are in bytes. The caller must call
// DestroyBuffers when the dispatch is done, on every exit path.
func (d *Dispatcher) AllocateBuffers(cfg convolveConfig, inputSize, filterSize, outputSize uint64) (*Buffers, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.initialized {
		return nil, fmt.Errorf("convolve gpu: dispatcher not initialized, call Init() first")
	}

	bufs := &Buffers{}

	type bufSpec struct {
		target *hal.Buffer
		label  string
		size   uint64
		usage  gputypes.BufferUsage
	}
	specs := []bufSpec{
		{&bufs.Config, "convolve_config", cfg.sizeInBytes(),
			gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst},
		{&bufs.Input, "convolve_input", inputSize,
			gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst},
		{&bufs.Filter, "convolve_filter", filterSize,
			gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst},
		{&bufs.Output, "convolve_output", outputSize,
			gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc},
		{&bufs.Staging, "convolve_staging", outputSize,
			gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst},
	}

	for _, s := range specs {
		buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: s.label,
			Size:  s.size,
			Usage: s.usage,
		})
		if err != nil {
			d.DestroyBuffers(bufs)
			return nil, fmt.Errorf("convolve gpu: create %s buffer: %w", s.label, err)
		}
		*s.target = buf
	}

	slogger().Debug("convolve gpu: buffers allocated",
		"output", fmt.Sprintf("%dx%d", cfg.OutWidth, cfg.OutHeight),
		"input_bytes", inputSize,
		"filter_bytes", filterSize,
		"output_bytes", outputSize)

	return bufs, nil
}

// DestroyBuffers releases all GPU buffers for a dispatch.
// After this call, the buffers must not be used.
func (d *Dispatcher) DestroyBuffers(bufs *Buffers) {
	if bufs == nil {
		return
	}
	destroyBuf := func(b hal.Buffer) {
		if b != nil {
			d.device.DestroyBuffer(b)
		}
	}
	destroyBuf(bufs.Config)
	destroyBuf(bufs.Input)
	destroyBuf(bufs.Filter)
	destroyBuf(bufs.Output)
	destroyBuf(bufs.Staging)
	*bufs = Buffers{}
}

// Dispatch uploads the config, input, and filter data, launches one
// workgroup per 8x8 output tile, blocks until the submission completes,
// and reads the result back into out. A failure at any step fails the
// dispatch as a whole; no partial output is written to out.
//
// The caller guarantees OutWidth and OutHeight are multiples of the
// workgroup size and that input/filter match the config geometry.
func (d *Dispatcher) Dispatch(bufs *Buffers, cfg convolveConfig, input, filter, out []byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.initialized {
		return fmt.Errorf("convolve gpu: dispatcher not initialized, call Init() first")
	}
	if bufs == nil {
		return fmt.Errorf("convolve gpu: buffers must not be nil")
	}

	if err := d.queue.WriteBuffer(bufs.Config, 0, cfg.toBytes()); err != nil {
		return fmt.Errorf("convolve gpu: upload config: %w", err)
	}
	if err := d.queue.WriteBuffer(bufs.Input, 0, input); err != nil {
		return fmt.Errorf("convolve gpu: upload input: %w", err)
	}
	if err := d.queue.WriteBuffer(bufs.Filter, 0, filter); err != nil {
		return fmt.Errorf("convolve gpu: upload filter: %w", err)
	}

	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "convolve_tiled_bg",
		Layout: d.bgLayout,
		Entries: []gputypes.BindGroupEntry{
			bufferEntry(0, bufs.Config),
			bufferEntry(1, bufs.Input),
			bufferEntry(2, bufs.Filter),
			bufferEntry(3, bufs.Output),
		},
	})
	if err != nil {
		return fmt.Errorf("convolve gpu: create bind group: %w", err)
	}
	defer d.device.DestroyBindGroup(bg)

	groupsX := cfg.OutWidth / wgSize
	groupsY := cfg.OutHeight / wgSize

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "convolve_tiled",
	})
	if err != nil {
		return fmt.Errorf("convolve gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("convolve_tiled"); err != nil {
		return fmt.Errorf("convolve gpu: begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "convolve_tiled"})
	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(groupsX, groupsY, 1)
	pass.End()

	encoder.CopyBufferToBuffer(bufs.Output, bufs.Staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: uint64(len(out))},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("convolve gpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	subIdx, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("convolve gpu: submit: %w", err)
	}
	if err := waitForSubmission(d.queue, subIdx, submitTimeout); err != nil {
		return err
	}

	mapping, err := d.device.MapBuffer(bufs.Staging, 0, uint64(len(out)))
	if err != nil {
		return fmt.Errorf("convolve gpu: map staging buffer: %w", err)
	}
	copy(out, unsafe.Slice((*byte)(mapping.Ptr), len(out)))
	if err := d.device.UnmapBuffer(bufs.Staging); err != nil {
		return fmt.Errorf("convolve gpu: unmap staging buffer: %w", err)
	}

	slogger().Debug("convolve gpu: dispatch complete",
		"workgroups", fmt.Sprintf("%dx%d", groupsX, groupsY))
	return nil
}

// waitForSubmission blocks until the queue reports the submission index
// as completed, polling the queue at pollInterval. The HAL tracks
// completion internally, so polling is the only observation point.
func waitForSubmission(queue hal.Queue, subIdx uint64, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for queue.PollCompleted() < subIdx {
		if time.Now().After(deadline) {
			return fmt.Errorf("convolve gpu: submission %d not complete after %v", subIdx, timeout)
		}
		time.Sleep(pollInterval)
	}
	return nil
}

// bufferEntry builds a whole-buffer bind group entry.
func bufferEntry(binding uint32, buf hal.Buffer) gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{
		Binding: binding,
		Resource: gputypes.BufferBinding{
			Buffer: buf.NativeHandle(),
			Offset: 0,
			Size:   0, // 0 = entire buffer
		},
	}
}
