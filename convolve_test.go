// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package convolve

import (
	"errors"
	"fmt"
	"testing"
)

func TestRunValidatesBeforeDispatch(t *testing.T) {
	filter, err := NewFilter(FilterBox, 3)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	// Group shape must evenly divide the output.
	dst := NewImage(20, 16)
	src := randomPadded(20, 16, 1, 1)
	err = Run(dst, src, filter, &Options{Group: GroupShape{8, 8}})
	if !errors.Is(err, ErrGroupShape) {
		t.Errorf("indivisible dispatch error = %v, want ErrGroupShape", err)
	}

	// Input must carry the halo.
	dst = NewImage(16, 16)
	err = Run(dst, NewImage(16, 16), filter, nil)
	if !errors.Is(err, ErrBufferSize) {
		t.Errorf("unpadded input error = %v, want ErrBufferSize", err)
	}

	if err := Run(nil, src, filter, nil); err == nil {
		t.Error("Run(nil dst) = nil error, want error")
	}
}

func TestRunDefaultsToCPUEngine(t *testing.T) {
	filter, err := NewFilter(FilterBox, 5)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	src := randomPadded(16, 16, filter.HalfWidth(), 5)
	dst := NewImage(16, 16)

	if err := Run(dst, src, filter, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := NewImage(16, 16)
	ConvolveReference(want, src, filter)
	assertImagesClose(t, dst, want, 1e-5)
}

// stubAccelerator records dispatch attempts and returns a fixed error,
// for exercising the fallback path.
type stubAccelerator struct {
	calls int
	err   error
}

func (s *stubAccelerator) Name() string { return "stub" }
func (s *stubAccelerator) Init() error  { return nil }
func (s *stubAccelerator) Close()       {}
func (s *stubAccelerator) Convolve(dst, src *Image, filter *Filter, group GroupShape) error {
	s.calls++
	return s.err
}

// swapAccelerator installs a and restores the previous registration on
// cleanup.
func swapAccelerator(t *testing.T, a Accelerator) {
	t.Helper()
	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	t.Cleanup(func() {
		accelMu.Lock()
		accel = old
		accelMu.Unlock()
	})
}

func TestRunFallsBackOnAcceleratorDecline(t *testing.T) {
	stub := &stubAccelerator{err: fmt.Errorf("%w: stub declines everything", ErrFallbackToCPU)}
	swapAccelerator(t, stub)

	filter, err := NewFilter(FilterBox, 3)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	src := randomPadded(16, 16, 1, 9)
	dst := NewImage(16, 16)

	if err := Run(dst, src, filter, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("accelerator called %d times, want 1", stub.calls)
	}

	want := NewImage(16, 16)
	ConvolveReference(want, src, filter)
	assertImagesClose(t, dst, want, 1e-5)
}

func TestRunForceCPUSkipsAccelerator(t *testing.T) {
	stub := &stubAccelerator{}
	swapAccelerator(t, stub)

	filter, err := NewFilter(FilterBox, 3)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	src := randomPadded(16, 16, 1, 2)
	dst := NewImage(16, 16)

	if err := Run(dst, src, filter, &Options{ForceCPU: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stub.calls != 0 {
		t.Errorf("accelerator called %d times with ForceCPU, want 0", stub.calls)
	}
}

func TestRunAcceleratedRequiresRegistration(t *testing.T) {
	swapAccelerator(t, nil)

	filter, err := NewFilter(FilterBox, 3)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	src := randomPadded(16, 16, 1, 4)
	dst := NewImage(16, 16)

	if err := RunAccelerated(dst, src, filter, nil); err == nil {
		t.Error("RunAccelerated with no accelerator = nil error, want error")
	}
}
