// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package convolve

import (
	"errors"
	"fmt"
)

// Options configures a Run dispatch.
type Options struct {
	// Group is the work-group tile shape. Zero value selects
	// DefaultGroupShape (8x8).
	Group GroupShape

	// ForceCPU skips the registered accelerator and runs the CPU
	// work-group engine unconditionally.
	ForceCPU bool
}

// Run convolves src by filter into dst, blocking until the dispatch
// completes.
//
// src must be pre-padded with a halo of filter.HalfWidth() pixels on
// every side (see imageio.Read and imageio.Pad); dst receives the
// unpadded result. Every precondition — positive dimensions, odd filter
// width, group divisibility, buffer sizes — is validated before any data
// transfer, and a violation fails the whole dispatch with a single
// configuration error.
//
// If a device accelerator is registered (blank import of
// convolve/gpu), Run tries it first and transparently falls back to the
// CPU engine on ErrFallbackToCPU or device failure, logging the reason.
func Run(dst, src *Image, filter *Filter, opts *Options) error {
	if dst == nil || src == nil || filter == nil {
		return errors.New("convolve: dst, src, and filter must not be nil")
	}

	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Group == (GroupShape{}) {
		o.Group = DefaultGroupShape
	}

	p := Params{
		ImageW:      dst.width,
		ImageH:      dst.height,
		FilterWidth: filter.width,
		Group:       o.Group,
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := validateBuffers(p, dst, src, filter); err != nil {
		return err
	}

	if !o.ForceCPU {
		if a := RegisteredAccelerator(); a != nil {
			err := a.Convolve(dst, src, filter, o.Group)
			if err == nil {
				return nil
			}
			if errors.Is(err, ErrFallbackToCPU) {
				Logger().Debug("convolve: accelerator declined dispatch, using CPU engine",
					"accelerator", a.Name(), "reason", err)
			} else {
				Logger().Warn("convolve: accelerator dispatch failed, using CPU engine",
					"accelerator", a.Name(), "error", err)
			}
		}
	}

	ConvolveTiled(dst, src, filter, o.Group)
	return nil
}

// RunAccelerated convolves on the registered accelerator only, with no
// CPU fallback. It surfaces device and configuration failures directly,
// for hosts that want to handle retry policy themselves.
func RunAccelerated(dst, src *Image, filter *Filter, opts *Options) error {
	if dst == nil || src == nil || filter == nil {
		return errors.New("convolve: dst, src, and filter must not be nil")
	}

	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Group == (GroupShape{}) {
		o.Group = DefaultGroupShape
	}

	p := Params{
		ImageW:      dst.width,
		ImageH:      dst.height,
		FilterWidth: filter.width,
		Group:       o.Group,
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := validateBuffers(p, dst, src, filter); err != nil {
		return err
	}

	a := RegisteredAccelerator()
	if a == nil {
		return fmt.Errorf("convolve: no accelerator registered (import convolve/gpu)")
	}
	return a.Convolve(dst, src, filter, o.Group)
}
