// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package convolve

import (
	"fmt"
	"math"
)

// FilterKind selects the convolution kernel generated by NewFilter.
type FilterKind int

const (
	// FilterIdentity passes the center pixel through unchanged.
	FilterIdentity FilterKind = iota

	// FilterBox is a uniform average: every weight is 1/(width*width).
	FilterBox

	// FilterGaussian is a normalized 2D Gaussian.
	FilterGaussian
)

// String returns the kind name as accepted by ParseFilterKind.
func (k FilterKind) String() string {
	switch k {
	case FilterIdentity:
		return "identity"
	case FilterBox:
		return "box"
	case FilterGaussian:
		return "gaussian"
	default:
		return fmt.Sprintf("FilterKind(%d)", int(k))
	}
}

// ParseFilterKind converts a kind name ("identity", "box", "gaussian")
// to a FilterKind.
func ParseFilterKind(s string) (FilterKind, error) {
	switch s {
	case "identity":
		return FilterIdentity, nil
	case "box":
		return FilterBox, nil
	case "gaussian":
		return FilterGaussian, nil
	default:
		return 0, fmt.Errorf("convolve: unknown filter kind %q", s)
	}
}

// Filter is a square matrix of per-channel weight vectors with an odd
// side length, stored row-major. Weights sum to one per channel for the
// averaging kinds, so filtered output stays in the input's value range.
type Filter struct {
	width   int
	weights []Vec4
}

// NewFilter generates a normalized convolution kernel of the requested
// kind and odd width. Returns ErrEvenFilterWidth when width is even or
// not positive.
func NewFilter(kind FilterKind, width int) (*Filter, error) {
	if width <= 0 || width%2 == 0 {
		return nil, fmt.Errorf("%w: got %d", ErrEvenFilterWidth, width)
	}

	weights := make([]Vec4, width*width)
	half := width / 2

	switch kind {
	case FilterIdentity:
		weights[half*width+half] = Splat(1)

	case FilterBox:
		w := Splat(1 / float32(width*width))
		for i := range weights {
			weights[i] = w
		}

	case FilterGaussian:
		// Sigma chosen so the kernel tail is small at the cutoff radius.
		sigma := 0.3*(float64(width-1)*0.5-1) + 0.8
		var total float64
		for r := 0; r < width; r++ {
			for c := 0; c < width; c++ {
				dy, dx := float64(r-half), float64(c-half)
				g := math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
				weights[r*width+c] = Splat(float32(g))
				total += g
			}
		}
		inv := float32(1 / total)
		for i := range weights {
			weights[i] = weights[i].Scale(inv)
		}

	default:
		return nil, fmt.Errorf("convolve: unknown filter kind %d", int(kind))
	}

	return &Filter{width: width, weights: weights}, nil
}

// NewFilterFrom builds a filter from explicit row-major weights.
// The weights slice length must be width*width and width must be odd.
func NewFilterFrom(width int, weights []Vec4) (*Filter, error) {
	if width <= 0 || width%2 == 0 {
		return nil, fmt.Errorf("%w: got %d", ErrEvenFilterWidth, width)
	}
	if len(weights) != width*width {
		return nil, fmt.Errorf("%w: filter %dx%d needs %d weights, got %d",
			ErrFilterSize, width, width, width*width, len(weights))
	}
	w := make([]Vec4, len(weights))
	copy(w, weights)
	return &Filter{width: width, weights: w}, nil
}

// Width returns the filter's side length.
func (f *Filter) Width() int { return f.width }

// HalfWidth returns width/2, the halo margin the input must carry.
func (f *Filter) HalfWidth() int { return f.width / 2 }

// Weights returns the row-major weight matrix.
func (f *Filter) Weights() []Vec4 { return f.weights }

// At returns the weight at filter row r, column c.
func (f *Filter) At(r, c int) Vec4 { return f.weights[r*f.width+c] }
