// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package convolve

import "testing"

func TestVec4Ops(t *testing.T) {
	a := Vec4{1, 2, 3, 4}
	b := Vec4{0.5, 0.25, 2, -1}

	if got, want := a.Add(b), (Vec4{1.5, 2.25, 5, 3}); got != want {
		t.Errorf("Add = %v, want %v", got, want)
	}
	if got, want := a.Mul(b), (Vec4{0.5, 0.5, 6, -4}); got != want {
		t.Errorf("Mul = %v, want %v", got, want)
	}
	if got, want := a.Scale(2), (Vec4{2, 4, 6, 8}); got != want {
		t.Errorf("Scale = %v, want %v", got, want)
	}
	if got, want := Splat(3), (Vec4{3, 3, 3, 3}); got != want {
		t.Errorf("Splat = %v, want %v", got, want)
	}
}

func TestImageAccessors(t *testing.T) {
	m := NewImage(4, 3)
	if m.Width() != 4 || m.Height() != 3 {
		t.Fatalf("dims = %dx%d, want 4x3", m.Width(), m.Height())
	}
	if len(m.Pix()) != 12 {
		t.Fatalf("pix len = %d, want 12", len(m.Pix()))
	}

	v := Vec4{1, 2, 3, 4}
	m.Set(2, 1, v)
	if m.At(2, 1) != v {
		t.Errorf("At(2,1) = %v, want %v", m.At(2, 1), v)
	}
	if m.Pix()[1*4+2] != v {
		t.Error("Set did not land at the row-major offset")
	}

	c := m.Clone()
	c.Set(0, 0, v)
	if m.At(0, 0) == v {
		t.Error("Clone shares backing storage with original")
	}
}

func TestNewImageFrom(t *testing.T) {
	pix := make([]Vec4, 6)
	m, err := NewImageFrom(3, 2, pix)
	if err != nil {
		t.Fatalf("NewImageFrom: %v", err)
	}
	if m.Width() != 3 || m.Height() != 2 {
		t.Errorf("dims = %dx%d, want 3x2", m.Width(), m.Height())
	}

	if _, err := NewImageFrom(3, 2, make([]Vec4, 5)); err == nil {
		t.Error("short slice accepted, want error")
	}
	if _, err := NewImageFrom(0, 2, nil); err == nil {
		t.Error("zero width accepted, want error")
	}
}
