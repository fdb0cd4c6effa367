// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package convolve

import (
	"errors"
	"fmt"
)

// Configuration and data errors. All are detected before any device
// transfer or kernel launch; a dispatch either starts with validated
// inputs or not at all.
var (
	// ErrImageDims is returned when image dimensions are not positive.
	ErrImageDims = errors.New("convolve: image dimensions must be positive")

	// ErrEvenFilterWidth is returned when the filter width is even or
	// non-positive. An odd width is required for a well-defined center.
	ErrEvenFilterWidth = errors.New("convolve: filter width must be odd and positive")

	// ErrFilterSize is returned when a filter's weight count does not
	// match its declared width.
	ErrFilterSize = errors.New("convolve: filter weight count mismatch")

	// ErrGroupShape is returned when the work-group shape does not evenly
	// divide the output dimensions. Partial groups are not supported.
	ErrGroupShape = errors.New("convolve: group shape must evenly divide image dimensions")

	// ErrBufferSize is returned when a buffer's length disagrees with its
	// declared dimensions, including a missing input halo.
	ErrBufferSize = errors.New("convolve: buffer size mismatch")
)

// GroupShape is the fixed work-group tile shape (localRange): W*H threads
// cooperate on one scratch tile and write a W*H block of output pixels.
type GroupShape struct {
	W, H int
}

// DefaultGroupShape is an 8x8 work-group, 64 threads per group.
var DefaultGroupShape = GroupShape{W: 8, H: 8}

// Params describes one dispatch: the unpadded output dimensions, the
// filter width, and the work-group shape partitioning the output.
type Params struct {
	// ImageW, ImageH are the output dimensions in pixels (unpadded).
	ImageW, ImageH int

	// FilterWidth is the square filter's side length. Must be odd.
	FilterWidth int

	// Group is the work-group tile shape. Must evenly divide the output.
	Group GroupShape
}

// Halo returns the input padding margin implied by the filter width.
func (p Params) Halo() int { return p.FilterWidth / 2 }

// Groups returns the dispatch grid dimensions in groups.
// Only meaningful after Validate has accepted p.
func (p Params) Groups() (gx, gy int) {
	return p.ImageW / p.Group.W, p.ImageH / p.Group.H
}

// Validate checks every dispatch precondition: positive dimensions, odd
// filter width, and exact divisibility of the output by the group shape.
// It reports the first violation found.
func (p Params) Validate() error {
	if p.ImageW <= 0 || p.ImageH <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrImageDims, p.ImageW, p.ImageH)
	}
	if p.FilterWidth <= 0 || p.FilterWidth%2 == 0 {
		return fmt.Errorf("%w: got %d", ErrEvenFilterWidth, p.FilterWidth)
	}
	if p.Group.W <= 0 || p.Group.H <= 0 {
		return fmt.Errorf("%w: group %dx%d", ErrGroupShape, p.Group.W, p.Group.H)
	}
	if p.ImageW%p.Group.W != 0 || p.ImageH%p.Group.H != 0 {
		return fmt.Errorf("%w: image %dx%d, group %dx%d",
			ErrGroupShape, p.ImageW, p.ImageH, p.Group.W, p.Group.H)
	}
	return nil
}

// validateBuffers checks that dst, src, and filter agree with the
// dispatch geometry: dst matches the output dimensions, src carries
// exactly the halo padding the filter requires, and the filter's weight
// matrix matches its width.
func validateBuffers(p Params, dst, src *Image, f *Filter) error {
	if f.width != p.FilterWidth {
		return fmt.Errorf("%w: params declare width %d, filter has %d",
			ErrFilterSize, p.FilterWidth, f.width)
	}
	if len(f.weights) != f.width*f.width {
		return fmt.Errorf("%w: %d weights for width %d", ErrFilterSize, len(f.weights), f.width)
	}
	if dst.width != p.ImageW || dst.height != p.ImageH {
		return fmt.Errorf("%w: output is %dx%d, params declare %dx%d",
			ErrBufferSize, dst.width, dst.height, p.ImageW, p.ImageH)
	}
	halo := p.Halo()
	wantW, wantH := p.ImageW+2*halo, p.ImageH+2*halo
	if src.width != wantW || src.height != wantH {
		return fmt.Errorf("%w: input is %dx%d, want %dx%d (halo %d)",
			ErrBufferSize, src.width, src.height, wantW, wantH, halo)
	}
	if len(dst.pix) != dst.width*dst.height || len(src.pix) != src.width*src.height {
		return fmt.Errorf("%w: pixel slice length disagrees with dimensions", ErrBufferSize)
	}
	return nil
}
