// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package convolve

// ConvolveReference computes the convolution pixel by pixel, summing the
// filter window directly over the padded input with no tiling or
// staging. It is the correctness oracle the tiled engines are tested
// against, and is deliberately the simplest possible rendition.
//
// src must carry the same halo padding ConvolveTiled requires.
func ConvolveReference(dst, src *Image, filter *Filter) {
	fw := filter.width
	for y := 0; y < dst.height; y++ {
		for x := 0; x < dst.width; x++ {
			var sum Vec4
			for r := 0; r < fw; r++ {
				row := (y + r) * src.width
				frow := r * fw
				for c := 0; c < fw; c++ {
					sum = sum.Add(src.pix[row+x+c].Mul(filter.weights[frow+c]))
				}
			}
			dst.pix[y*dst.width+x] = sum
		}
	}
}
