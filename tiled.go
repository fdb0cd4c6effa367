// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// tiled.go is the CPU work-group convolution engine. It executes the
// same three-phase protocol as the WGSL kernel in internal/gpu: each
// work-group cooperatively stages a halo-padded input tile into a
// group-local scratch buffer, meets at a barrier, and then each thread
// computes the filter-weighted sum for its own output pixel.

package convolve

import (
	"sync"

	"github.com/gogpu/convolve/internal/parallel"
)

// groupJob is the geometry one work-group operates on. All coordinates
// share the convention of the device kernel: the group's top-left read
// offset is groupId * localRange in the halo-padded input's index space.
type groupJob struct {
	gx, gy int // group id within the dispatch grid
	group  GroupShape
	halo   int

	src, dst *Image
	filter   *Filter
}

// ConvolveTiled runs the tiled work-group convolution on the CPU.
//
// The output grid is partitioned into groups of group.W x group.H
// threads; groups execute independently on a worker pool while the
// threads of one group run as cooperating goroutines sharing a scratch
// tile and a barrier. src must be pre-padded with a halo of
// filter.HalfWidth() pixels on every side.
//
// All preconditions are assumed validated (see Run); ConvolveTiled is
// pure computation over already-validated buffers.
func ConvolveTiled(dst, src *Image, filter *Filter, group GroupShape) {
	groupsX := dst.width / group.W
	groupsY := dst.height / group.H

	jobs := make([]func(), 0, groupsX*groupsY)
	for gy := 0; gy < groupsY; gy++ {
		for gx := 0; gx < groupsX; gx++ {
			job := groupJob{
				gx: gx, gy: gy,
				group:  group,
				halo:   filter.HalfWidth(),
				src:    src,
				dst:    dst,
				filter: filter,
			}
			jobs = append(jobs, job.run)
		}
	}

	pool := parallel.NewWorkerPool(0)
	defer pool.Close()
	pool.ExecuteAll(jobs)
}

// run executes one work-group: it spawns the group's threads, which
// share a freshly allocated scratch tile for the duration of the group
// and discard it when the group finishes. No other group's scratch or
// output pixels are touched.
func (j groupJob) run() {
	scratchW := j.group.W + 2*j.halo
	scratchH := j.group.H + 2*j.halo
	scratch := make([]Vec4, scratchW*scratchH)
	bar := newBarrier(j.group.W * j.group.H)

	var wg sync.WaitGroup
	wg.Add(j.group.W * j.group.H)
	for ly := 0; ly < j.group.H; ly++ {
		for lx := 0; lx < j.group.W; lx++ {
			go func(lx, ly int) {
				defer wg.Done()
				j.thread(lx, ly, scratch, scratchW, scratchH, bar)
			}(lx, ly)
		}
	}
	wg.Wait()
}

// thread is the per-thread kernel body: stage, synchronize, compute.
func (j groupJob) thread(lx, ly int, scratch []Vec4, scratchW, scratchH int, bar *barrier) {
	// Top-left corner of this group's read region, in the padded input's
	// coordinates. The input's origin already accounts for the halo, so
	// no additional offset is needed.
	offX := j.gx * j.group.W
	offY := j.gy * j.group.H

	// Stage: the scratch tile is larger than the group, so each thread
	// loads a strided subset, starting at its own local id and stepping
	// by the group shape until the full scratch extent is covered:
	//
	//	+---------------------+
	//	| it 1 load  | it 2   |   scratchW = group.W + 2*halo
	//	+------------+--------+
	//	| it 3 load  | it 4   |   scratchH = group.H + 2*halo
	//	+------------+--------+
	//
	// No bounds checks: the input was pre-padded to cover every group's
	// maximal read extent, so the loop condition is the only guard.
	for i := ly; i < scratchH; i += j.group.H {
		srcRow := (offY + i) * j.src.width
		dstRow := i * scratchW
		for c := lx; c < scratchW; c += j.group.W {
			scratch[dstRow+c] = j.src.pix[srcRow+offX+c]
		}
	}

	// Every thread must arrive before any thread reads scratch. Omitting
	// this is a correctness bug, not a performance concern: a thread
	// could read a cell a peer has not written yet.
	bar.Await()

	// Compute: row-major multiply-accumulate over the filter window.
	// The thread's local id is also the top-left corner of its window in
	// scratch coordinates, because the staged tile leads the group's
	// output block by exactly the halo margin. The iteration order is
	// fixed so results are deterministic for identical inputs.
	fw := j.filter.width
	var sum Vec4
	for r := 0; r < fw; r++ {
		row := (ly + r) * scratchW
		frow := r * fw
		for c := 0; c < fw; c++ {
			sum = sum.Add(scratch[row+lx+c].Mul(j.filter.weights[frow+c]))
		}
	}

	j.dst.pix[(offY+ly)*j.dst.width+offX+lx] = sum
}
