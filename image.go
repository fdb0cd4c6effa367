// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package convolve

// Channels is the fixed channel count of every Image. Pixels are packed
// as one Vec4 per pixel so the convolution arithmetic stays vectorized
// on both the CPU and GPU paths.
const Channels = 4

// Image is a dense row-major buffer of Vec4 pixels.
//
// An Image is either an unpadded output surface (see NewImage) or an
// input surface that has been pre-padded with a halo border by the image
// loader (see imageio.Read / imageio.Pad). The convolution core never
// performs bounds clamping itself; it relies on the input halo covering
// every group's maximal read extent.
//
// Thread safety: concurrent reads are safe. Writers are partitioned by
// disjoint pixel ownership during a dispatch; anything else requires
// external synchronization.
type Image struct {
	width  int
	height int
	pix    []Vec4
}

// NewImage allocates a zeroed image of the given dimensions.
// Panics if width or height is not positive; use Params.Validate to
// reject bad configurations before allocation.
func NewImage(width, height int) *Image {
	if width <= 0 || height <= 0 {
		panic("convolve: image dimensions must be positive")
	}
	return &Image{
		width:  width,
		height: height,
		pix:    make([]Vec4, width*height),
	}
}

// NewImageFrom wraps an existing pixel slice. The slice length must be
// exactly width*height; ownership transfers to the Image.
func NewImageFrom(width, height int, pix []Vec4) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrImageDims
	}
	if len(pix) != width*height {
		return nil, ErrBufferSize
	}
	return &Image{width: width, height: height, pix: pix}, nil
}

// Width returns the image width in pixels.
func (m *Image) Width() int { return m.width }

// Height returns the image height in pixels.
func (m *Image) Height() int { return m.height }

// Pix returns the backing pixel slice, row-major, one Vec4 per pixel.
func (m *Image) Pix() []Vec4 { return m.pix }

// At returns the pixel at (x, y). No bounds checking beyond the slice's own.
func (m *Image) At(x, y int) Vec4 { return m.pix[y*m.width+x] }

// Set stores the pixel at (x, y).
func (m *Image) Set(x, y int, v Vec4) { m.pix[y*m.width+x] = v }

// Clone returns a deep copy of the image.
func (m *Image) Clone() *Image {
	pix := make([]Vec4, len(m.pix))
	copy(pix, m.pix)
	return &Image{width: m.width, height: m.height, pix: pix}
}
