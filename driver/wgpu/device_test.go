// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import "testing"

func TestFloat32Bytes(t *testing.T) {
	got := float32Bytes([]float32{1.0, -2.0})
	want := []byte{
		0x00, 0x00, 0x80, 0x3f, // 1.0
		0x00, 0x00, 0x00, 0xc0, // -2.0
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestShaderSourcesEmbedded(t *testing.T) {
	if lineShaderSource == "" {
		t.Error("line shader source is empty")
	}
	if compositeShaderSource == "" {
		t.Error("composite shader source is empty")
	}
}
