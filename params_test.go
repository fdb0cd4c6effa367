// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package convolve

import (
	"errors"
	"testing"
)

func TestParamsValidate(t *testing.T) {
	valid := Params{ImageW: 16, ImageH: 16, FilterWidth: 11, Group: GroupShape{8, 8}}

	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr error
	}{
		{"valid", func(*Params) {}, nil},
		{"zero width", func(p *Params) { p.ImageW = 0 }, ErrImageDims},
		{"negative height", func(p *Params) { p.ImageH = -4 }, ErrImageDims},
		{"even filter", func(p *Params) { p.FilterWidth = 10 }, ErrEvenFilterWidth},
		{"zero filter", func(p *Params) { p.FilterWidth = 0 }, ErrEvenFilterWidth},
		{"zero group", func(p *Params) { p.Group = GroupShape{} }, ErrGroupShape},
		{"indivisible width", func(p *Params) { p.ImageW = 20 }, ErrGroupShape},
		{"indivisible height", func(p *Params) { p.ImageH = 17 }, ErrGroupShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParamsGroups(t *testing.T) {
	p := Params{ImageW: 16, ImageH: 24, FilterWidth: 3, Group: GroupShape{8, 8}}
	gx, gy := p.Groups()
	if gx != 2 || gy != 3 {
		t.Errorf("Groups() = (%d, %d), want (2, 3)", gx, gy)
	}
	if p.Halo() != 1 {
		t.Errorf("Halo() = %d, want 1", p.Halo())
	}
}

func TestValidateBuffers(t *testing.T) {
	filter, err := NewFilter(FilterBox, 3)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	p := Params{ImageW: 16, ImageH: 16, FilterWidth: 3, Group: GroupShape{8, 8}}

	dst := NewImage(16, 16)
	src := NewImage(18, 18) // 16 + 2*1 halo
	if err := validateBuffers(p, dst, src, filter); err != nil {
		t.Fatalf("validateBuffers(valid) = %v, want nil", err)
	}

	// Missing halo.
	if err := validateBuffers(p, dst, NewImage(16, 16), filter); !errors.Is(err, ErrBufferSize) {
		t.Errorf("unpadded src error = %v, want ErrBufferSize", err)
	}

	// Wrong output dims.
	if err := validateBuffers(p, NewImage(8, 16), src, filter); !errors.Is(err, ErrBufferSize) {
		t.Errorf("wrong dst dims error = %v, want ErrBufferSize", err)
	}

	// Filter width disagrees with params.
	wide, _ := NewFilter(FilterBox, 5)
	if err := validateBuffers(p, dst, src, wide); !errors.Is(err, ErrFilterSize) {
		t.Errorf("filter mismatch error = %v, want ErrFilterSize", err)
	}
}
