// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package imageio

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/convolve"
)

func TestPadReplicatesBorder(t *testing.T) {
	img := convolve.NewImage(2, 2)
	img.Set(0, 0, convolve.Vec4{1, 0, 0, 1})
	img.Set(1, 0, convolve.Vec4{0, 1, 0, 1})
	img.Set(0, 1, convolve.Vec4{0, 0, 1, 1})
	img.Set(1, 1, convolve.Vec4{1, 1, 1, 1})

	padded := Pad(img, 2)
	if padded.Width() != 6 || padded.Height() != 6 {
		t.Fatalf("padded dims = %dx%d, want 6x6", padded.Width(), padded.Height())
	}

	// Interior preserved.
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if padded.At(x+2, y+2) != img.At(x, y) {
				t.Errorf("interior (%d,%d) = %v, want %v", x, y, padded.At(x+2, y+2), img.At(x, y))
			}
		}
	}

	// Corners replicate the nearest pixel.
	if padded.At(0, 0) != img.At(0, 0) {
		t.Errorf("top-left halo = %v, want %v", padded.At(0, 0), img.At(0, 0))
	}
	if padded.At(5, 5) != img.At(1, 1) {
		t.Errorf("bottom-right halo = %v, want %v", padded.At(5, 5), img.At(1, 1))
	}
	// Edges replicate along the border.
	if padded.At(3, 0) != img.At(1, 0) {
		t.Errorf("top edge halo = %v, want %v", padded.At(3, 0), img.At(1, 0))
	}
}

func TestUnpadInvertsPad(t *testing.T) {
	img := convolve.NewImage(4, 3)
	pix := img.Pix()
	for i := range pix {
		pix[i] = convolve.Vec4{float32(i), float32(i) / 2, 0, 1}
	}

	round := Unpad(Pad(img, 3), 3)
	if round.Width() != 4 || round.Height() != 3 {
		t.Fatalf("dims = %dx%d, want 4x3", round.Width(), round.Height())
	}
	for i, v := range round.Pix() {
		if v != pix[i] {
			t.Fatalf("pixel %d = %v, want %v", i, v, pix[i])
		}
	}
}

func TestReadPadsWithHalo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.png")
	writeTestPNG(t, path, 8, 8)

	img, err := Read(path, 5)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if img.Width() != 18 || img.Height() != 18 {
		t.Errorf("padded dims = %dx%d, want 18x18", img.Width(), img.Height())
	}

	if _, err := Read(path, -1); !errors.Is(err, ErrNegativeHalo) {
		t.Errorf("negative halo error = %v, want ErrNegativeHalo", err)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	img := convolve.NewImage(4, 4)
	pix := img.Pix()
	for i := range pix {
		pix[i] = convolve.Vec4{0.25, 0.5, 0.75, 1}
	}

	for _, name := range []string{"out.png", "out.bmp"} {
		path := filepath.Join(dir, name)
		if err := Write(img, path); err != nil {
			t.Fatalf("Write(%s): %v", name, err)
		}
		back, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		if back.Width() != 4 || back.Height() != 4 {
			t.Fatalf("%s dims = %dx%d, want 4x4", name, back.Width(), back.Height())
		}
		// 8-bit quantization allows ~1/255 of drift per channel.
		for i, v := range back.Pix() {
			for ch := 0; ch < convolve.Channels; ch++ {
				diff := v[ch] - pix[i][ch]
				if diff < -0.01 || diff > 0.01 {
					t.Fatalf("%s pixel %d channel %d = %g, want ~%g", name, i, ch, v[ch], pix[i][ch])
				}
			}
		}
	}

	if err := Write(img, filepath.Join(dir, "out.tiff")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("tiff error = %v, want ErrUnsupportedFormat", err)
	}
}

// TestFromStdImagePreservesTransparency checks that semi-transparent
// pixels keep their non-premultiplied channel values through conversion,
// rather than coming back darkened by the alpha factor.
func TestFromStdImagePreservesTransparency(t *testing.T) {
	std := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	std.Set(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 128})

	img := FromStdImage(std)
	got := img.At(0, 0)
	want := convolve.Vec4{200.0 / 255, 100.0 / 255, 50.0 / 255, 128.0 / 255}
	for ch := 0; ch < convolve.Channels; ch++ {
		diff := got[ch] - want[ch]
		if diff < -0.002 || diff > 0.002 {
			t.Errorf("channel %d = %g, want %g", ch, got[ch], want[ch])
		}
	}

	// Full round trip through the NRGBA encoder.
	back := ToStdImage(img)
	if c := back.NRGBAAt(0, 0); c.R != 200 || c.G != 100 || c.B != 50 || c.A != 128 {
		t.Errorf("round trip = %+v, want {200 100 50 128}", c)
	}
}

func TestQuantizeClamps(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 128},
		{1, 255},
		{1.5, 255},
	}
	for _, tt := range tests {
		if got := quantize(tt.in); got != tt.want {
			t.Errorf("quantize(%g) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// writeTestPNG writes a small gradient PNG for decode tests.
func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}
