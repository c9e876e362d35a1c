// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

// Resource IDs
//
// These opaque IDs represent GPU resources owned by a Device. Each device
// implementation maintains the mapping between IDs and backend objects.
// IDs are uint64 to accommodate various backend handle sizes.

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// FramebufferID is an opaque handle to a render target bound to a texture.
type FramebufferID uint64

// BufferID is an opaque handle to a GPU vertex attribute buffer.
type BufferID uint64

// ProgramID is an opaque handle to a compiled shader program.
type ProgramID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// DrawMode selects a shader program family in the host's program lookup.
type DrawMode uint8

const (
	// DrawModeLine renders batched line segments as capsule quads with
	// round end caps.
	DrawModeLine DrawMode = iota + 1

	// DrawModeTexture renders one textured rectangle, used for raster
	// compositing and content migration.
	DrawModeTexture
)

// String returns a human-readable name for the draw mode.
func (m DrawMode) String() string {
	switch m {
	case DrawModeLine:
		return "Line"
	case DrawModeTexture:
		return "Texture"
	default:
		return "Unknown"
	}
}

// EffectMask is a bitmask of post-processing effects baked into a compiled
// program variant. The pen layer itself always uses EffectNone; the mask
// exists because the host's program cache is keyed by (DrawMode, EffectMask).
type EffectMask uint32

// EffectNone selects the effect-free program variant.
const EffectNone EffectMask = 0

// Attrib identifies one of the per-vertex attribute streams of the line
// program.
type Attrib uint8

const (
	// AttribLineColor is the premultiplied segment color, 4 floats per vertex.
	AttribLineColor Attrib = iota

	// AttribLineThicknessAndLength is the segment diameter and Euclidean
	// length, 2 floats per vertex.
	AttribLineThicknessAndLength

	// AttribPenPoints is the segment start point and signed delta to the end
	// point, 4 floats per vertex.
	AttribPenPoints
)

// Bounds is a rectangle in layer coordinates: origin at the center of the
// stage, +y up. The pen layer derives it from the native stage size, so
// drawing coordinates stay in native units regardless of render quality.
type Bounds struct {
	Left, Right, Bottom, Top float32
}

// Width returns the horizontal extent of the bounds.
func (b Bounds) Width() float32 { return b.Right - b.Left }

// Height returns the vertical extent of the bounds.
func (b Bounds) Height() float32 { return b.Top - b.Bottom }

// CenteredBounds returns the bounds of a stage of the given size:
// [-w/2, w/2] x [-h/2, h/2].
func CenteredBounds(width, height int) Bounds {
	w := float32(width)
	h := float32(height)
	return Bounds{Left: -w / 2, Right: w / 2, Bottom: -h / 2, Top: h / 2}
}

// Device is the GPU contract the pen layer composites through.
//
// The pen layer RECEIVES the device from its host, it does not create one
// (see Host). Implementations exist for CPU reference rendering
// (driver/soft) and wgpu HAL rendering (driver/wgpu).
//
// Bind state (framebuffer, projection, program, attribute streams) is
// sticky, mirroring the underlying graphics APIs; the pen layer's draw
// region guard is responsible for not re-issuing redundant transitions.
// Rectangle draws use an implementation-owned unit-quad corner template
// shared across all callers.
//
// Devices are NOT safe for concurrent use. All calls must come from a
// single goroutine.
type Device interface {
	// NewTexture allocates a width x height RGBA8 texture.
	NewTexture(width, height int) (TextureID, error)

	// ReleaseTexture frees a texture. Releasing InvalidID is a no-op.
	ReleaseTexture(id TextureID)

	// UploadTexture replaces the full contents of a texture with
	// premultiplied RGBA pixels (width*height*4 bytes, rows top to bottom).
	UploadTexture(id TextureID, premultiplied []byte)

	// NewFramebuffer creates a render target drawing into the given texture.
	// Several framebuffers may target the same texture.
	NewFramebuffer(target TextureID) (FramebufferID, error)

	// ReleaseFramebuffer frees a framebuffer, leaving its texture intact.
	ReleaseFramebuffer(id FramebufferID)

	// BindFramebuffer makes a framebuffer the current render target with the
	// given viewport in physical pixels.
	BindFramebuffer(id FramebufferID, viewportWidth, viewportHeight int)

	// SetProjection sets the orthographic projection mapping layer
	// coordinates to the current viewport.
	SetProjection(b Bounds)

	// Clear fills the current render target with transparent black.
	Clear()

	// NewAttribBuffer allocates a vertex attribute buffer holding capacity
	// float32 values.
	NewAttribBuffer(capacity int) (BufferID, error)

	// ReleaseBuffer frees an attribute buffer.
	ReleaseBuffer(id BufferID)

	// UploadAttribData writes data to the front of an attribute buffer.
	// len(data) may be less than the buffer capacity (partial-range upload).
	UploadAttribData(id BufferID, data []float32)

	// UseProgram makes a compiled program current.
	UseProgram(id ProgramID)

	// BindAttrib attaches an attribute buffer to one of a program's vertex
	// streams. Stride is in float32 values per vertex.
	BindAttrib(program ProgramID, attrib Attrib, buffer BufferID, stride int)

	// DrawTriangles issues one triangle-list draw of vertexCount vertices
	// from the currently bound attribute streams into the current target.
	DrawTriangles(vertexCount int)

	// DrawTexturedRect draws tex as a single rectangle covering dst (in
	// layer coordinates, mapped through the current projection) into the
	// current target, blending premultiplied source-over.
	DrawTexturedRect(program ProgramID, tex TextureID, dst Bounds)

	// ReadPixels reads the full width x height rectangle of the current
	// render target as premultiplied RGBA bytes, rows top to bottom.
	ReadPixels(width, height int) ([]byte, error)
}

// Host is the rendering host that owns the GPU context and the stage.
//
// The pen layer queries the native stage size at construction, subscribes
// to size changes, and looks up compiled programs through the host's
// shader cache. Key principle (shared with the wider gogpu stack): the
// layer receives shared GPU state from the host rather than creating its
// own.
type Host interface {
	// Device returns the host's GPU device.
	Device() Device

	// Program returns the compiled program for a draw mode and effect mask,
	// compiling and caching it on first use.
	Program(mode DrawMode, effects EffectMask) (ProgramID, error)

	// NativeSize returns the logical stage size, independent of render
	// quality.
	NativeSize() (width, height int)

	// OnNativeSizeChange registers a callback invoked whenever the native
	// stage size changes. The returned cancel function removes the
	// registration.
	OnNativeSizeChange(fn func(width, height int)) (cancel func())
}
