package pen

import "math"

const (
	// segmentVertexCount is the number of vertices one line segment
	// expands to: two triangles of a quad, as a plain triangle list.
	segmentVertexCount = 6

	colorStride     = 4 // premultiplied RGBA per vertex
	thicknessStride = 2 // diameter, length per vertex
	pointStride     = 4 // x0, y0, dx, dy per vertex

	// attributeBufferSize is the capacity in float32 values of the color
	// and points arrays. Chosen so a whole number of 6-vertex segments
	// fits exactly; the thickness array holds half as many floats for the
	// same segment count.
	attributeBufferSize = 65520

	// segmentCapacity is how many segments one batch holds before a flush
	// is forced: 2730.
	segmentCapacity = attributeBufferSize / (segmentVertexCount * colorStride)

	// partialUploadLimit is the written-floats threshold below which only
	// the written prefix of each array is uploaded. Past it, re-uploading
	// the whole backing array is cheaper than three sub-range writes.
	partialUploadLimit = 4096
)

// lineBatch accumulates line segments as three parallel per-vertex
// attribute arrays with independent write cursors. The arrays are
// allocated once and reused for the life of the layer; a flush only resets
// the cursors.
type lineBatch struct {
	color     []float32
	thickness []float32
	points    []float32

	colorCursor     int
	thicknessCursor int
	pointCursor     int
}

func newLineBatch() *lineBatch {
	return &lineBatch{
		color:     make([]float32, attributeBufferSize),
		thickness: make([]float32, attributeBufferSize/2),
		points:    make([]float32, attributeBufferSize),
	}
}

// full reports whether appending one more segment would overflow. All
// three arrays fill in lockstep, so checking one cursor suffices.
func (b *lineBatch) full() bool {
	return b.colorCursor+segmentVertexCount*colorStride > len(b.color)
}

func (b *lineBatch) empty() bool { return b.colorCursor == 0 }

// segments returns the number of batched segments.
func (b *lineBatch) segments() int {
	return b.colorCursor / (segmentVertexCount * colorStride)
}

// vertices returns the triangle-list vertex count for a draw.
func (b *lineBatch) vertices() int {
	return b.segments() * segmentVertexCount
}

// append writes one segment as six identical vertex records. The quad
// corners come from the shader's corner template, so only per-segment
// attributes vary here. The caller must flush a full batch first; append
// does not check.
//
// Color is premultiplied on the way in. The segment length is computed
// here rather than in the vertex shader: squaring large coordinates in
// reduced GPU precision loses the low bits that decide whether short
// segments render at all.
func (b *lineBatch) append(attrs Attributes, x0, y0, x1, y1 float32) {
	dx := x1 - x0
	dy := y1 - y0
	length := float32(math.Hypot(float64(dx), float64(dy)))

	a := attrs.Color[3]
	r := attrs.Color[0] * a
	g := attrs.Color[1] * a
	bl := attrs.Color[2] * a

	for i := 0; i < segmentVertexCount; i++ {
		c := b.color[b.colorCursor : b.colorCursor+colorStride : b.colorCursor+colorStride]
		c[0], c[1], c[2], c[3] = r, g, bl, a
		b.colorCursor += colorStride

		t := b.thickness[b.thicknessCursor : b.thicknessCursor+thicknessStride : b.thicknessCursor+thicknessStride]
		t[0], t[1] = attrs.Diameter, length
		b.thicknessCursor += thicknessStride

		p := b.points[b.pointCursor : b.pointCursor+pointStride : b.pointCursor+pointStride]
		p[0], p[1], p[2], p[3] = x0, y0, dx, dy
		b.pointCursor += pointStride
	}
}

// reset discards all batched segments.
func (b *lineBatch) reset() {
	b.colorCursor = 0
	b.thicknessCursor = 0
	b.pointCursor = 0
}
