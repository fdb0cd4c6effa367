// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package convolve

// Vec4 is one packed pixel: four float32 channels (RGBA). Filter weights
// use the same representation so a multiply-accumulate is a single
// component-wise Mul followed by Add, mirroring vec4<f32> on the GPU.
type Vec4 [4]float32

// Add returns the component-wise sum v + w.
func (v Vec4) Add(w Vec4) Vec4 {
	return Vec4{v[0] + w[0], v[1] + w[1], v[2] + w[2], v[3] + w[3]}
}

// Mul returns the component-wise product v * w.
func (v Vec4) Mul(w Vec4) Vec4 {
	return Vec4{v[0] * w[0], v[1] * w[1], v[2] * w[2], v[3] * w[3]}
}

// Scale returns v with every channel multiplied by s.
func (v Vec4) Scale(s float32) Vec4 {
	return Vec4{v[0] * s, v[1] * s, v[2] * s, v[3] * s}
}

// Splat returns a Vec4 with all four channels set to s.
func Splat(s float32) Vec4 {
	return Vec4{s, s, s, s}
}
