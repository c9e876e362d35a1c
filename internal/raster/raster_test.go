// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package raster

import (
	"image"
	"math"
	"testing"
)

func TestDistanceToSegment(t *testing.T) {
	tests := []struct {
		name                   string
		px, py, ax, ay, bx, by float64
		want                   float64
	}{
		{"on segment", 5, 0, 0, 0, 10, 0, 0},
		{"above midpoint", 5, 3, 0, 0, 10, 0, 3},
		{"beyond end", 13, 4, 0, 0, 10, 0, 5},
		{"before start", -3, -4, 0, 0, 10, 0, 5},
		{"degenerate", 3, 4, 0, 0, 0, 0, 5},
		{"diagonal", 2, 0, 0, 0, 2, 2, math.Sqrt2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceToSegment(tt.px, tt.py, tt.ax, tt.ay, tt.bx, tt.by)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %g, want %g", got, tt.want)
			}
		})
	}
}

func TestBlendPremultipliedOverTransparent(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	BlendPremultiplied(img, 1, 1, 0.5, 0.25, 0, 0.5)

	i := img.PixOffset(1, 1)
	got := img.Pix[i : i+4]
	want := []uint8{128, 64, 0, 128}
	for c := range want {
		if got[c] != want[c] {
			t.Errorf("channel %d = %d, want %d", c, got[c], want[c])
		}
	}
}

func TestBlendPremultipliedSourceOver(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	// Opaque red background.
	img.Pix[0], img.Pix[3] = 255, 255

	// Half-transparent green over it.
	BlendPremultiplied(img, 0, 0, 0, 0.5, 0, 0.5)

	if got := img.Pix[0]; got != 128 {
		t.Errorf("red = %d, want 128", got)
	}
	if got := img.Pix[1]; got != 128 {
		t.Errorf("green = %d, want 128", got)
	}
	if got := img.Pix[3]; got != 255 {
		t.Errorf("alpha = %d, want 255", got)
	}
}

func TestBlendPremultipliedOutOfBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	BlendPremultiplied(img, -1, 0, 1, 1, 1, 1)
	BlendPremultiplied(img, 0, 5, 1, 1, 1, 1)
	for i, v := range img.Pix {
		if v != 0 {
			t.Fatalf("pixel byte %d = %d, want 0", i, v)
		}
	}
}
