package pen

import (
	"math"
	"testing"
)

func TestBatchAppendWritesSixIdenticalRecords(t *testing.T) {
	b := newLineBatch()
	attrs := Attributes{Diameter: 2, Color: [4]float32{1, 0, 0, 1}}
	b.append(attrs, 10, 20, 40, 60)

	if got := b.segments(); got != 1 {
		t.Fatalf("segments = %d, want 1", got)
	}
	if got := b.vertices(); got != 6 {
		t.Fatalf("vertices = %d, want 6", got)
	}
	for v := 0; v < segmentVertexCount; v++ {
		p := b.points[v*pointStride : v*pointStride+pointStride]
		if p[0] != 10 || p[1] != 20 || p[2] != 30 || p[3] != 40 {
			t.Errorf("vertex %d points = %v, want [10 20 30 40]", v, p)
		}
		th := b.thickness[v*thicknessStride : v*thicknessStride+thicknessStride]
		if th[0] != 2 || th[1] != 50 {
			t.Errorf("vertex %d thickness = %v, want [2 50]", v, th)
		}
	}
}

func TestBatchPremultipliesColor(t *testing.T) {
	b := newLineBatch()
	attrs := Attributes{Diameter: 1, Color: [4]float32{1, 0.5, 0.25, 0.5}}
	b.append(attrs, 0, 0, 1, 0)

	c := b.color[:colorStride]
	want := [4]float32{0.5, 0.25, 0.125, 0.5}
	for i := range want {
		if c[i] != want[i] {
			t.Errorf("color[%d] = %g, want %g", i, c[i], want[i])
		}
	}
}

func TestBatchLengthFullPrecision(t *testing.T) {
	b := newLineBatch()
	// Large coordinates whose squared values overflow float32 precision.
	const x0, y0 = 100000, 200000
	const x1, y1 = 100003, 200004
	b.append(DefaultAttributes(), x0, y0, x1, y1)

	want := float32(math.Hypot(x1-x0, y1-y0))
	if got := b.thickness[1]; got != want {
		t.Errorf("length = %g, want %g", got, want)
	}
}

func TestBatchCapacity(t *testing.T) {
	b := newLineBatch()
	for i := 0; i < segmentCapacity; i++ {
		if b.full() {
			t.Fatalf("batch full after %d segments, capacity is %d", i, segmentCapacity)
		}
		b.append(DefaultAttributes(), 0, 0, 1, 1)
	}
	if !b.full() {
		t.Fatalf("batch not full after %d segments", segmentCapacity)
	}
	if got := b.segments(); got != segmentCapacity {
		t.Errorf("segments = %d, want %d", got, segmentCapacity)
	}

	b.reset()
	if !b.empty() || b.full() {
		t.Error("reset batch should be empty and not full")
	}
}

func TestBatchCursorsAdvanceInLockstep(t *testing.T) {
	b := newLineBatch()
	b.append(DefaultAttributes(), 0, 0, 5, 5)
	b.append(DefaultAttributes(), 5, 5, 9, 9)

	if b.colorCursor != 2*segmentVertexCount*colorStride {
		t.Errorf("colorCursor = %d", b.colorCursor)
	}
	if b.thicknessCursor != 2*segmentVertexCount*thicknessStride {
		t.Errorf("thicknessCursor = %d", b.thicknessCursor)
	}
	if b.pointCursor != 2*segmentVertexCount*pointStride {
		t.Errorf("pointCursor = %d", b.pointCursor)
	}
}
