// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"testing"

	"github.com/gogpu/pen/driver"
)

// lineSetup binds everything needed to rasterize one batch of segments on
// a fresh device: a target texture, the line program, and the three
// attribute streams.
type lineSetup struct {
	dev    *Device
	tex    driver.TextureID
	fb     driver.FramebufferID
	colors driver.BufferID
	thick  driver.BufferID
	points driver.BufferID
}

func newLineSetup(t *testing.T, host *Host, w, h int) *lineSetup {
	t.Helper()
	dev := host.SoftDevice()
	tex, err := dev.NewTexture(w, h)
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	fb, err := dev.NewFramebuffer(tex)
	if err != nil {
		t.Fatalf("NewFramebuffer: %v", err)
	}
	prog, err := host.Program(driver.DrawModeLine, driver.EffectNone)
	if err != nil {
		t.Fatalf("Program: %v", err)
	}

	s := &lineSetup{dev: dev, tex: tex, fb: fb}
	for _, b := range []*driver.BufferID{&s.colors, &s.thick, &s.points} {
		if *b, err = dev.NewAttribBuffer(1024); err != nil {
			t.Fatalf("NewAttribBuffer: %v", err)
		}
	}

	dev.BindFramebuffer(fb, w, h)
	dev.SetProjection(driver.CenteredBounds(w, h))
	dev.UseProgram(prog)
	dev.BindAttrib(prog, driver.AttribLineColor, s.colors, 4)
	dev.BindAttrib(prog, driver.AttribLineThicknessAndLength, s.thick, 2)
	dev.BindAttrib(prog, driver.AttribPenPoints, s.points, 4)
	return s
}

// uploadSegment writes one segment as six identical vertex records. The
// length attribute is left at zero; the soft rasterizer derives it from
// the point delta.
func (s *lineSetup) uploadSegment(x0, y0, dx, dy, diameter float32, color [4]float32) {
	var colors, thick, points []float32
	for i := 0; i < 6; i++ {
		colors = append(colors, color[0], color[1], color[2], color[3])
		thick = append(thick, diameter, 0)
		points = append(points, x0, y0, dx, dy)
	}
	s.dev.UploadAttribData(s.colors, colors)
	s.dev.UploadAttribData(s.thick, thick)
	s.dev.UploadAttribData(s.points, points)
}

func TestDrawTrianglesRasterizesDot(t *testing.T) {
	host := NewHost(100, 100)
	s := newLineSetup(t, host, 100, 100)

	// A dot at the origin with diameter 10.
	s.uploadSegment(0, 0, 0, 0, 10, [4]float32{0, 0, 1, 1})
	s.dev.DrawTriangles(6)

	img := s.dev.TexturePixels(s.tex)
	// Center pixel is inside the disc.
	if got := img.RGBAAt(50, 50); got.B != 255 || got.A != 255 {
		t.Errorf("center = %+v, want opaque blue", got)
	}
	// A pixel 4 units out is still inside (radius 5).
	if got := img.RGBAAt(54, 50); got.A != 255 {
		t.Errorf("(54,50) = %+v, want inside", got)
	}
	// A pixel 7 units out is beyond the radius.
	if got := img.RGBAAt(57, 50); got.A != 0 {
		t.Errorf("(57,50) = %+v, want outside", got)
	}
}

func TestDrawTrianglesRespectsProjectionFlip(t *testing.T) {
	host := NewHost(100, 100)
	s := newLineSetup(t, host, 100, 100)

	// +y up in layer space means a dot at (0, 40) lands near the TOP of
	// the pixel grid.
	s.uploadSegment(0, 40, 0, 0, 4, [4]float32{1, 0, 0, 1})
	s.dev.DrawTriangles(6)

	img := s.dev.TexturePixels(s.tex)
	if got := img.RGBAAt(50, 10); got.R != 255 {
		t.Errorf("(50,10) = %+v, want red (y axis must flip)", got)
	}
	if got := img.RGBAAt(50, 90); got.A != 0 {
		t.Errorf("(50,90) = %+v, want transparent", got)
	}
}

func TestDrawTexturedRectStretches(t *testing.T) {
	host := NewHost(8, 8)
	dev := host.SoftDevice()

	src, err := dev.NewTexture(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	// Top-left source pixel red, rest transparent.
	pix := make([]byte, 2*2*4)
	pix[0], pix[3] = 255, 255
	dev.UploadTexture(src, pix)

	dst, err := dev.NewTexture(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	fb, err := dev.NewFramebuffer(dst)
	if err != nil {
		t.Fatal(err)
	}
	prog, err := host.Program(driver.DrawModeTexture, driver.EffectNone)
	if err != nil {
		t.Fatal(err)
	}

	bounds := driver.CenteredBounds(8, 8)
	dev.BindFramebuffer(fb, 8, 8)
	dev.SetProjection(bounds)
	dev.DrawTexturedRect(prog, src, bounds)

	img := dev.TexturePixels(dst)
	// The red source pixel stretches over the top-left 4x4 quadrant.
	if got := img.RGBAAt(1, 1); got.R != 255 {
		t.Errorf("(1,1) = %+v, want red", got)
	}
	if got := img.RGBAAt(6, 6); got.A != 0 {
		t.Errorf("(6,6) = %+v, want transparent", got)
	}
}

func TestReadPixelsRoundTrip(t *testing.T) {
	host := NewHost(4, 4)
	dev := host.SoftDevice()

	tex, err := dev.NewTexture(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	fb, err := dev.NewFramebuffer(tex)
	if err != nil {
		t.Fatal(err)
	}
	pix := make([]byte, 4*4*4)
	for i := range pix {
		pix[i] = byte(i)
	}
	dev.UploadTexture(tex, pix)

	dev.BindFramebuffer(fb, 4, 4)
	got, err := dev.ReadPixels(4, 4)
	if err != nil {
		t.Fatalf("ReadPixels: %v", err)
	}
	if len(got) != len(pix) {
		t.Fatalf("len = %d, want %d", len(got), len(pix))
	}
	for i := range pix {
		if got[i] != pix[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], pix[i])
		}
	}
}

func TestReadPixelsWithoutTarget(t *testing.T) {
	dev := NewDevice()
	if _, err := dev.ReadPixels(1, 1); err != ErrNoTarget {
		t.Errorf("err = %v, want ErrNoTarget", err)
	}
}

func TestProgramInterning(t *testing.T) {
	host := NewHost(10, 10)
	a, err := host.Program(driver.DrawModeLine, driver.EffectNone)
	if err != nil {
		t.Fatal(err)
	}
	b, err := host.Program(driver.DrawModeLine, driver.EffectNone)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("same key returned different programs: %d, %d", a, b)
	}
	c, err := host.Program(driver.DrawModeTexture, driver.EffectNone)
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Error("different modes share a program ID")
	}
}

func TestNativeSizeNotification(t *testing.T) {
	host := NewHost(100, 50)
	if w, h := host.NativeSize(); w != 100 || h != 50 {
		t.Fatalf("NativeSize = %dx%d", w, h)
	}

	var gotW, gotH, calls int
	cancel := host.OnNativeSizeChange(func(w, h int) {
		gotW, gotH = w, h
		calls++
	})
	host.SetNativeSize(200, 100)
	if gotW != 200 || gotH != 100 || calls != 1 {
		t.Errorf("callback got %dx%d (%d calls)", gotW, gotH, calls)
	}

	cancel()
	host.SetNativeSize(300, 150)
	if calls != 1 {
		t.Errorf("calls after cancel = %d, want 1", calls)
	}
}

func TestInvalidResourceCreation(t *testing.T) {
	dev := NewDevice()
	if _, err := dev.NewTexture(0, 10); err == nil {
		t.Error("NewTexture(0, 10) should fail")
	}
	if _, err := dev.NewAttribBuffer(0); err == nil {
		t.Error("NewAttribBuffer(0) should fail")
	}
	if _, err := dev.NewFramebuffer(driver.TextureID(42)); err == nil {
		t.Error("NewFramebuffer over unknown texture should fail")
	}
}
