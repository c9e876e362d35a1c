// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package raster provides the scalar pixel helpers behind the soft device:
// point-to-segment distance for capsule coverage and premultiplied
// source-over blending into an RGBA image.
package raster

import (
	"image"
	"math"
)

// DistanceToSegment returns the Euclidean distance from point (px, py) to
// the closed segment from (ax, ay) to (bx, by). A degenerate segment
// (coincident endpoints) degrades to point distance, which is what gives
// pen dots their round shape.
func DistanceToSegment(px, py, ax, ay, bx, by float64) float64 {
	dx := bx - ax
	dy := by - ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy))
}

// BlendPremultiplied composites a premultiplied RGBA source color (channels
// in [0, 1]) over the pixel at (x, y) of dst. Out-of-bounds coordinates are
// ignored.
func BlendPremultiplied(dst *image.RGBA, x, y int, r, g, b, a float64) {
	if !(image.Point{X: x, Y: y}).In(dst.Rect) {
		return
	}
	i := dst.PixOffset(x, y)
	p := dst.Pix[i : i+4 : i+4]
	inv := 1 - a
	p[0] = blendChannel(r, p[0], inv)
	p[1] = blendChannel(g, p[1], inv)
	p[2] = blendChannel(b, p[2], inv)
	p[3] = blendChannel(a, p[3], inv)
}

func blendChannel(src float64, dst uint8, invA float64) uint8 {
	v := src*255 + float64(dst)*invA
	if v > 255 {
		v = 255
	}
	return uint8(v + 0.5)
}
