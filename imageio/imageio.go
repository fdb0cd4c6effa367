// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package imageio loads and stores images for the convolution core.
//
// Read decodes a file, converts it to the core's packed float pixel
// representation, and pre-pads it with a replicated halo border sized to
// the filter's half-width, so the kernel itself never bounds-checks.
// Supported formats: PNG, JPEG, BMP.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"

	"github.com/gogpu/convolve"
)

// I/O errors.
var (
	// ErrUnsupportedFormat is returned when the output extension is not
	// a supported encoder.
	ErrUnsupportedFormat = errors.New("imageio: unsupported format")

	// ErrNegativeHalo is returned when a negative halo margin is requested.
	ErrNegativeHalo = errors.New("imageio: halo must be non-negative")
)

// Read loads an image and pre-pads it with a halo border of the given
// width on every side, replicating edge pixels. The result is ready to
// feed a convolution with filter half-width equal to halo.
func Read(path string, halo int) (*convolve.Image, error) {
	if halo < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNegativeHalo, halo)
	}
	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	if halo == 0 {
		return img, nil
	}
	return Pad(img, halo), nil
}

// Load decodes an image file without padding. The format is detected
// from content, so any registered codec (PNG, JPEG, BMP) works
// regardless of extension.
func Load(path string) (*convolve.Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("imageio: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// Decode decodes an image from the reader, auto-detecting the format,
// and converts it to packed float pixels with channels scaled to [0, 1].
func Decode(r io.Reader) (*convolve.Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("imageio: decode: %w", err)
	}
	return FromStdImage(src), nil
}

// FromStdImage converts a standard library image to the core's packed
// representation. Channels are non-premultiplied and scaled from 16-bit
// color to [0, 1], matching the NRGBA encoding ToStdImage writes so
// semi-transparent pixels survive a round trip.
func FromStdImage(src image.Image) *convolve.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := convolve.NewImage(w, h)
	pix := dst.Pix()

	const scale = 1.0 / 0xffff
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA64Model.Convert(src.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA64)
			pix[y*w+x] = convolve.Vec4{
				float32(c.R) * scale,
				float32(c.G) * scale,
				float32(c.B) * scale,
				float32(c.A) * scale,
			}
		}
	}
	return dst
}

// Pad returns a copy of img surrounded by a halo-wide border on every
// side, with border cells replicating the nearest edge pixel. The
// padding covers every work-group's maximal read extent, so the kernel's
// strided loads need no bounds checks.
func Pad(img *convolve.Image, halo int) *convolve.Image {
	if halo <= 0 {
		return img.Clone()
	}

	w, h := img.Width(), img.Height()
	padded := convolve.NewImage(w+2*halo, h+2*halo)
	src, dst := img.Pix(), padded.Pix()
	pw := padded.Width()

	for y := 0; y < h+2*halo; y++ {
		sy := clamp(y-halo, 0, h-1)
		srcRow := sy * w
		dstRow := y * pw
		for x := 0; x < w+2*halo; x++ {
			sx := clamp(x-halo, 0, w-1)
			dst[dstRow+x] = src[srcRow+sx]
		}
	}
	return padded
}

// Unpad returns the interior of a padded image, dropping a halo-wide
// border on every side.
func Unpad(img *convolve.Image, halo int) *convolve.Image {
	if halo <= 0 {
		return img.Clone()
	}
	w := img.Width() - 2*halo
	h := img.Height() - 2*halo
	out := convolve.NewImage(w, h)
	src, dst := img.Pix(), out.Pix()
	for y := 0; y < h; y++ {
		copy(dst[y*w:(y+1)*w], src[(y+halo)*img.Width()+halo:])
	}
	return out
}

// Write encodes the image to the path, choosing the codec from the
// extension: .png, .jpg/.jpeg, or .bmp. Channel values are clamped to
// [0, 1] before quantization.
func Write(img *convolve.Image, path string) error {
	std := ToStdImage(img)

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("imageio: create file: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		err = png.Encode(f, std)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, std, nil)
	case ".bmp":
		err = bmp.Encode(f, std)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return fmt.Errorf("imageio: encode: %w", err)
	}
	return nil
}

// ToStdImage converts packed float pixels back to an 8-bit RGBA image,
// clamping each channel to [0, 1].
func ToStdImage(img *convolve.Image) *image.NRGBA {
	w, h := img.Width(), img.Height()
	std := image.NewNRGBA(image.Rect(0, 0, w, h))
	pix := img.Pix()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := pix[y*w+x]
			off := std.PixOffset(x, y)
			std.Pix[off+0] = quantize(p[0])
			std.Pix[off+1] = quantize(p[1])
			std.Pix[off+2] = quantize(p[2])
			std.Pix[off+3] = quantize(p[3])
		}
	}
	return std
}

// quantize maps a [0, 1] channel to 8 bits, clamping out-of-range values.
func quantize(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
