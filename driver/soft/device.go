// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"errors"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/pen/driver"
	"github.com/gogpu/pen/internal/raster"
)

var (
	// ErrNoTarget is returned when a read-back is requested with no
	// framebuffer bound.
	ErrNoTarget = errors.New("soft: no framebuffer bound")

	// ErrInvalidSize is returned for non-positive texture or buffer sizes.
	ErrInvalidSize = errors.New("soft: size must be positive")
)

// Stats counts device operations. Useful for performance assertions: the
// pen layer's batching contract is observable as draw and upload counts.
type Stats struct {
	TriangleDraws  int
	RectDraws      int
	BufferUploads  int
	TextureUploads int
	TextureAllocs  int
	ReadBacks      int
	Clears         int
}

// Device is a CPU implementation of driver.Device. It rasterizes line
// segments as hard-edged capsules (round end caps, no antialiasing) and
// composites textured rectangles with premultiplied source-over blending,
// so tests and headless hosts observe real pixels.
//
// Not safe for concurrent use, matching the driver.Device contract.
type Device struct {
	nextID uint64

	textures     map[driver.TextureID]*image.RGBA
	framebuffers map[driver.FramebufferID]driver.TextureID
	buffers      map[driver.BufferID][]float32
	programs     map[driver.ProgramID]driver.DrawMode

	boundFB    driver.FramebufferID
	viewportW  int
	viewportH  int
	projection driver.Bounds
	program    driver.ProgramID
	attribs    map[driver.Attrib]driver.BufferID

	stats Stats
}

// NewDevice returns an empty software device.
func NewDevice() *Device {
	return &Device{
		textures:     make(map[driver.TextureID]*image.RGBA),
		framebuffers: make(map[driver.FramebufferID]driver.TextureID),
		buffers:      make(map[driver.BufferID][]float32),
		programs:     make(map[driver.ProgramID]driver.DrawMode),
		attribs:      make(map[driver.Attrib]driver.BufferID),
	}
}

// Stats returns a snapshot of the operation counters.
func (d *Device) Stats() Stats { return d.stats }

func (d *Device) allocID() uint64 {
	d.nextID++
	return d.nextID
}

// NewTexture allocates a zeroed RGBA texture.
func (d *Device) NewTexture(width, height int) (driver.TextureID, error) {
	if width <= 0 || height <= 0 {
		return driver.InvalidID, ErrInvalidSize
	}
	id := driver.TextureID(d.allocID())
	d.textures[id] = image.NewRGBA(image.Rect(0, 0, width, height))
	d.stats.TextureAllocs++
	return id, nil
}

// ReleaseTexture frees a texture.
func (d *Device) ReleaseTexture(id driver.TextureID) {
	delete(d.textures, id)
}

// UploadTexture replaces a texture's pixels with premultiplied RGBA bytes.
// Short uploads fill a prefix; excess bytes are ignored.
func (d *Device) UploadTexture(id driver.TextureID, premultiplied []byte) {
	img, ok := d.textures[id]
	if !ok {
		return
	}
	copy(img.Pix, premultiplied)
	d.stats.TextureUploads++
}

// NewFramebuffer creates a render target over an existing texture.
func (d *Device) NewFramebuffer(target driver.TextureID) (driver.FramebufferID, error) {
	if _, ok := d.textures[target]; !ok {
		return driver.InvalidID, errors.New("soft: framebuffer target does not exist")
	}
	id := driver.FramebufferID(d.allocID())
	d.framebuffers[id] = target
	return id, nil
}

// ReleaseFramebuffer frees a framebuffer, leaving its texture intact.
func (d *Device) ReleaseFramebuffer(id driver.FramebufferID) {
	delete(d.framebuffers, id)
	if d.boundFB == id {
		d.boundFB = driver.InvalidID
	}
}

// BindFramebuffer makes a framebuffer the current render target.
func (d *Device) BindFramebuffer(id driver.FramebufferID, viewportWidth, viewportHeight int) {
	d.boundFB = id
	d.viewportW = viewportWidth
	d.viewportH = viewportHeight
}

// SetProjection sets the layer-to-viewport mapping for subsequent draws.
func (d *Device) SetProjection(b driver.Bounds) {
	d.projection = b
}

// Clear fills the current render target with transparent black.
func (d *Device) Clear() {
	d.stats.Clears++
	if img := d.targetImage(); img != nil {
		clear(img.Pix)
	}
}

// NewAttribBuffer allocates a float32 attribute buffer.
func (d *Device) NewAttribBuffer(capacity int) (driver.BufferID, error) {
	if capacity <= 0 {
		return driver.InvalidID, ErrInvalidSize
	}
	id := driver.BufferID(d.allocID())
	d.buffers[id] = make([]float32, capacity)
	return id, nil
}

// ReleaseBuffer frees an attribute buffer.
func (d *Device) ReleaseBuffer(id driver.BufferID) {
	delete(d.buffers, id)
}

// UploadAttribData writes data to the front of a buffer.
func (d *Device) UploadAttribData(id driver.BufferID, data []float32) {
	buf, ok := d.buffers[id]
	if !ok {
		return
	}
	copy(buf, data)
	d.stats.BufferUploads++
}

// UseProgram makes a program current.
func (d *Device) UseProgram(id driver.ProgramID) {
	d.program = id
}

// BindAttrib attaches a buffer to one of the line program's vertex streams.
// The soft device keys streams by attribute alone; stride is fixed by the
// stream layout and only validated implicitly during draws.
func (d *Device) BindAttrib(program driver.ProgramID, attrib driver.Attrib, buffer driver.BufferID, stride int) {
	_ = program
	_ = stride
	d.attribs[attrib] = buffer
}

// registerProgram interns a program for a draw mode. Called by Host.
func (d *Device) registerProgram(mode driver.DrawMode) driver.ProgramID {
	id := driver.ProgramID(d.allocID())
	d.programs[id] = mode
	return id
}

// targetImage returns the texture behind the bound framebuffer, or nil.
func (d *Device) targetImage() *image.RGBA {
	tex, ok := d.framebuffers[d.boundFB]
	if !ok {
		return nil
	}
	return d.textures[tex]
}

// toPixel maps layer coordinates through the projection into viewport
// pixel coordinates (origin top-left, +y down).
func (d *Device) toPixel(x, y float32) (float64, float64) {
	b := d.projection
	sx := float64(d.viewportW) / float64(b.Width())
	sy := float64(d.viewportH) / float64(b.Height())
	return (float64(x) - float64(b.Left)) * sx, (float64(b.Top) - float64(y)) * sy
}

// DrawTriangles rasterizes the batched segments bound to the line
// program's attribute streams. Vertex records arrive in groups of six
// identical entries per segment, so only the first record of each group is
// consulted.
func (d *Device) DrawTriangles(vertexCount int) {
	d.stats.TriangleDraws++
	target := d.targetImage()
	if target == nil || d.programs[d.program] != driver.DrawModeLine {
		return
	}
	colors := d.buffers[d.attribs[driver.AttribLineColor]]
	thickness := d.buffers[d.attribs[driver.AttribLineThicknessAndLength]]
	points := d.buffers[d.attribs[driver.AttribPenPoints]]
	if colors == nil || thickness == nil || points == nil {
		return
	}
	segments := vertexCount / 6
	for i := 0; i < segments; i++ {
		c := colors[i*24 : i*24+4]
		diameter := thickness[i*12]
		p := points[i*24 : i*24+4]
		d.drawCapsule(target,
			p[0], p[1], p[0]+p[2], p[1]+p[3],
			diameter, c[0], c[1], c[2], c[3])
	}
}

// drawCapsule blends a hard-edged round-capped segment into the target.
// Coordinates are layer units; the projection's horizontal scale converts
// the diameter, assuming the uniform scaling the pen layer always uses.
func (d *Device) drawCapsule(target *image.RGBA, x0, y0, x1, y1, diameter float32, r, g, b, a float32) {
	px0, py0 := d.toPixel(x0, y0)
	px1, py1 := d.toPixel(x1, y1)
	scale := float64(d.viewportW) / float64(d.projection.Width())
	radius := float64(diameter) / 2 * scale

	minX := int(min(px0, px1) - radius - 1)
	maxX := int(max(px0, px1) + radius + 1)
	minY := int(min(py0, py1) - radius - 1)
	maxY := int(max(py0, py1) + radius + 1)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			cx := float64(x) + 0.5
			cy := float64(y) + 0.5
			if raster.DistanceToSegment(cx, cy, px0, py0, px1, py1) <= radius {
				raster.BlendPremultiplied(target, x, y,
					float64(r), float64(g), float64(b), float64(a))
			}
		}
	}
}

// DrawTexturedRect composites tex over dst in the current render target,
// resampling with nearest-neighbor when the destination size differs.
func (d *Device) DrawTexturedRect(program driver.ProgramID, tex driver.TextureID, dst driver.Bounds) {
	_ = program
	d.stats.RectDraws++
	target := d.targetImage()
	src, ok := d.textures[tex]
	if target == nil || !ok {
		return
	}
	x0, y0 := d.toPixel(dst.Left, dst.Top)
	x1, y1 := d.toPixel(dst.Right, dst.Bottom)
	rect := image.Rect(roundToInt(x0), roundToInt(y0), roundToInt(x1), roundToInt(y1))
	if rect.Dx() == src.Rect.Dx() && rect.Dy() == src.Rect.Dy() {
		xdraw.Draw(target, rect, src, src.Rect.Min, xdraw.Over)
		return
	}
	xdraw.NearestNeighbor.Scale(target, rect, src, src.Rect, xdraw.Over, nil)
}

// ReadPixels copies the bound target's pixels out as premultiplied RGBA.
func (d *Device) ReadPixels(width, height int) ([]byte, error) {
	img := d.targetImage()
	if img == nil {
		return nil, ErrNoTarget
	}
	d.stats.ReadBacks++
	n := width * height * 4
	if n > len(img.Pix) {
		n = len(img.Pix)
	}
	out := make([]byte, width*height*4)
	copy(out, img.Pix[:n])
	return out, nil
}

// TexturePixels exposes a texture's backing image for inspection. Returns
// nil for unknown IDs.
func (d *Device) TexturePixels(id driver.TextureID) *image.RGBA {
	return d.textures[id]
}

func roundToInt(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}
