// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package convolve

import "sync"

// barrier is a cyclic rendezvous for the threads of one work-group.
//
// Await blocks until all n participants have arrived, then releases them
// together. The mutex acquisition on both sides of the wait gives the
// usual happens-before edge: every write performed by any participant
// before its Await is visible to every participant after Await returns.
// This is the CPU analogue of workgroupBarrier() in the device kernel.
type barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	n       int
	arrived int
	phase   uint
}

// newBarrier creates a barrier for n participants. n must be positive.
func newBarrier(n int) *barrier {
	b := &barrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Await blocks the caller until all n participants have called Await.
// The barrier resets afterwards and can be reused for further phases.
// Must be called unconditionally by every participant; a conditional
// call by a subset deadlocks the group.
func (b *barrier) Await() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.arrived++
	if b.arrived == b.n {
		b.arrived = 0
		b.phase++
		b.cond.Broadcast()
		return
	}

	phase := b.phase
	for phase == b.phase {
		b.cond.Wait()
	}
}
