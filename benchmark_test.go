// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package convolve

import (
	"fmt"
	"testing"
)

func benchmarkConvolve(b *testing.B, size, filterWidth int, tiled bool) {
	filter, err := NewFilter(FilterBox, filterWidth)
	if err != nil {
		b.Fatalf("NewFilter: %v", err)
	}
	src := randomPadded(size, size, filter.HalfWidth(), 1)
	dst := NewImage(size, size)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if tiled {
			ConvolveTiled(dst, src, filter, DefaultGroupShape)
		} else {
			ConvolveReference(dst, src, filter)
		}
	}
}

func BenchmarkTiled(b *testing.B) {
	for _, size := range []int{64, 256} {
		for _, fw := range []int{3, 11} {
			b.Run(fmt.Sprintf("%dx%d/w%d", size, size, fw), func(b *testing.B) {
				benchmarkConvolve(b, size, fw, true)
			})
		}
	}
}

func BenchmarkReference(b *testing.B) {
	for _, size := range []int{64, 256} {
		for _, fw := range []int{3, 11} {
			b.Run(fmt.Sprintf("%dx%d/w%d", size, size, fw), func(b *testing.B) {
				benchmarkConvolve(b, size, fw, false)
			})
		}
	}
}
