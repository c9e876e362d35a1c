package pen

import (
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/pen/driver"
)

// Silhouette consumes pixel snapshots of the composited layer, typically
// to answer point-in-ink hit tests on the CPU.
type Silhouette interface {
	// Update receives the layer's current pixels as premultiplied RGBA
	// bytes, rows top to bottom, at the layer's backing resolution. The
	// buffer is owned by the layer and reused on the next snapshot;
	// consumers must copy anything they keep.
	Update(premultiplied []byte, width, height int)
}

// Config configures a Layer. The zero value is valid.
type Config struct {
	// Quality scales the backing surfaces relative to the native stage
	// size. Zero means 1. Drawing coordinates are always in native units;
	// quality only changes the resolution they render at.
	Quality float64

	// Silhouette, when non-nil, receives snapshots from UpdateSilhouette.
	Silhouette Silhouette
}

// Layer is the pen compositor. It accumulates lines and dots in a vertex
// batch, stamps on a raster canvas, and reconciles both into one
// composited GPU texture on demand.
//
// All methods must be called from the goroutine that drives the host's
// device. Methods panic if called after Dispose.
type Layer struct {
	host driver.Host
	dev  driver.Device

	nativeWidth  int
	nativeHeight int
	quality      float64
	width        int // backing size: round(native * quality)
	height       int
	bounds       driver.Bounds
	centerX      float64 // native stage center, for stamp placement
	centerY      float64

	canvas *image.RGBA

	sourceTex   driver.TextureID
	exportTex   driver.TextureID
	compositeFB driver.FramebufferID
	pickFB      driver.FramebufferID

	lineProgram    driver.ProgramID
	textureProgram driver.ProgramID

	colorBuf     driver.BufferID
	thicknessBuf driver.BufferID
	pointsBuf    driver.BufferID

	batch           *lineBatch
	guard           regionGuard
	penRegion       *drawRegion
	compositeRegion *drawRegion

	state      dirtyState
	readback   []byte
	silhouette Silhouette

	cancelResize func()
	disposed     bool
}

// NewLayer creates a pen layer over the host's device, sized to the host's
// current native stage size. The layer subscribes to native size changes
// and keeps its content across them until Dispose.
func NewLayer(host driver.Host, cfg Config) (*Layer, error) {
	if host == nil {
		return nil, ErrNilHost
	}
	dev := host.Device()
	if dev == nil {
		return nil, ErrNilDevice
	}
	quality := cfg.Quality
	if quality == 0 {
		quality = 1
	}
	if quality < 0 {
		return nil, ErrInvalidQuality
	}

	l := &Layer{
		host:       host,
		dev:        dev,
		quality:    quality,
		batch:      newLineBatch(),
		silhouette: cfg.Silhouette,
	}
	l.penRegion = &drawRegion{enter: l.enterPenRegion, exit: l.flushLines}
	l.compositeRegion = &drawRegion{enter: l.enterCompositeRegion}

	var err error
	if l.lineProgram, err = host.Program(driver.DrawModeLine, driver.EffectNone); err != nil {
		return nil, fmt.Errorf("pen: line program: %w", err)
	}
	if l.textureProgram, err = host.Program(driver.DrawModeTexture, driver.EffectNone); err != nil {
		return nil, fmt.Errorf("pen: texture program: %w", err)
	}

	// Attribute buffers hold one full batch and live as long as the layer.
	if l.colorBuf, err = dev.NewAttribBuffer(len(l.batch.color)); err != nil {
		return nil, fmt.Errorf("pen: color buffer: %w", err)
	}
	if l.thicknessBuf, err = dev.NewAttribBuffer(len(l.batch.thickness)); err != nil {
		return nil, fmt.Errorf("pen: thickness buffer: %w", err)
	}
	if l.pointsBuf, err = dev.NewAttribBuffer(len(l.batch.points)); err != nil {
		return nil, fmt.Errorf("pen: points buffer: %w", err)
	}

	w, h := host.NativeSize()
	if w <= 0 || h <= 0 {
		return nil, ErrInvalidSize
	}
	if err := l.setCanvasSize(w, h); err != nil {
		return nil, err
	}
	l.state = stateClean

	l.cancelResize = host.OnNativeSizeChange(l.onNativeSizeChange)
	return l, nil
}

// Size returns the native stage size. Drawing coordinates live in this
// space regardless of render quality.
func (l *Layer) Size() (width, height int) {
	return l.nativeWidth, l.nativeHeight
}

// BackingSize returns the physical surface size: round(native * quality).
func (l *Layer) BackingSize() (width, height int) {
	return l.width, l.height
}

// Bounds returns the layer's drawable rectangle, centered on the origin
// with +y up.
func (l *Layer) Bounds() driver.Bounds { return l.bounds }

// Quality returns the current render quality.
func (l *Layer) Quality() float64 { return l.quality }

// IsRaster reports whether the layer exposes raster content. Always true:
// a pen layer is bitmap ink by nature.
func (l *Layer) IsRaster() bool { return true }

func (l *Layer) mustBeLive() {
	if l.disposed {
		panic("pen: layer is disposed")
	}
}

// enterPenRegion binds the state shared by every batched line draw: the
// composite framebuffer, the line program, and the three attribute
// streams. Runs once per region entry, not once per line.
func (l *Layer) enterPenRegion() {
	l.dev.BindFramebuffer(l.compositeFB, l.width, l.height)
	l.dev.SetProjection(l.bounds)
	l.dev.UseProgram(l.lineProgram)
	l.dev.BindAttrib(l.lineProgram, driver.AttribLineColor, l.colorBuf, colorStride)
	l.dev.BindAttrib(l.lineProgram, driver.AttribLineThicknessAndLength, l.thicknessBuf, thicknessStride)
	l.dev.BindAttrib(l.lineProgram, driver.AttribPenPoints, l.pointsBuf, pointStride)
}

// enterCompositeRegion binds the state for textured-rectangle draws into
// the composite framebuffer.
func (l *Layer) enterCompositeRegion() {
	l.dev.BindFramebuffer(l.compositeFB, l.width, l.height)
	l.dev.SetProjection(l.bounds)
	l.dev.UseProgram(l.textureProgram)
}

// flushLines uploads and draws everything batched so far, then resets the
// batch. No-op when the batch is empty. Runs as the pen region's exit
// callback and on batch overflow; by then the pen region's bind state is
// already established.
func (l *Layer) flushLines() {
	if l.batch.empty() {
		return
	}
	if l.batch.colorCursor < partialUploadLimit {
		l.dev.UploadAttribData(l.colorBuf, l.batch.color[:l.batch.colorCursor])
		l.dev.UploadAttribData(l.thicknessBuf, l.batch.thickness[:l.batch.thicknessCursor])
		l.dev.UploadAttribData(l.pointsBuf, l.batch.points[:l.batch.pointCursor])
	} else {
		l.dev.UploadAttribData(l.colorBuf, l.batch.color)
		l.dev.UploadAttribData(l.thicknessBuf, l.batch.thickness)
		l.dev.UploadAttribData(l.pointsBuf, l.batch.points)
	}
	Logger().Debug("pen: flush", "segments", l.batch.segments())
	l.dev.DrawTriangles(l.batch.vertices())
	l.batch.reset()
	l.state = l.state.markComposited()
}

// DrawLine batches a line segment from (x0, y0) to (x1, y1) in layer
// coordinates. The segment renders with round end caps of the given
// diameter; nothing reaches the GPU until the batch flushes.
//
// Diameters of exactly 1 and 3 are shifted by half a unit on both axes so
// thin strokes land crisply between pixel rows instead of straddling them.
func (l *Layer) DrawLine(attrs Attributes, x0, y0, x1, y1 float64) {
	l.mustBeLive()

	var offset float64
	if attrs.Diameter == 1 || attrs.Diameter == 3 {
		offset = 0.5
	}

	l.guard.Enter(l.penRegion)
	if l.batch.full() {
		l.flushLines()
	}
	l.batch.append(attrs,
		float32(x0+offset), float32(y0+offset),
		float32(x1+offset), float32(y1+offset))
	l.state = l.state.markComposited()
}

// DrawPoint draws a dot at (x, y). A dot is a degenerate line: coincident
// endpoints leave only the two round end caps, which overlap into a disc.
func (l *Layer) DrawPoint(attrs Attributes, x, y float64) {
	l.DrawLine(attrs, x, y, x, y)
}

// DrawStamp draws img onto the layer's raster canvas with its top-left
// corner at (x, y) in layer coordinates. The stamp is merged into the
// composited texture lazily, the next time the texture or silhouette is
// requested.
func (l *Layer) DrawStamp(img image.Image, x, y float64) {
	l.mustBeLive()

	// Layer coordinates are centered with +y up; the canvas origin is its
	// top-left corner with +y down, scaled by quality.
	dstX := (l.centerX + x) * l.quality
	dstY := (l.centerY - y) * l.quality
	src := img.Bounds()
	dstW := int(math.Round(float64(src.Dx()) * l.quality))
	dstH := int(math.Round(float64(src.Dy()) * l.quality))
	dst := image.Rect(
		int(math.Round(dstX)), int(math.Round(dstY)),
		int(math.Round(dstX))+dstW, int(math.Round(dstY))+dstH,
	)

	if l.quality == 1 {
		xdraw.Draw(l.canvas, dst, img, src.Min, xdraw.Over)
	} else {
		xdraw.ApproxBiLinear.Scale(l.canvas, dst, img, src, xdraw.Over, nil)
	}
	l.state = l.state.markRaster()
}

// Clear erases all layer content: pending lines, unmerged stamps, and the
// composited texture. Ordering is strict; a line drawn before Clear never
// survives it, so the pending batch is discarded rather than flushed.
func (l *Layer) Clear() {
	l.mustBeLive()

	l.batch.reset()
	l.guard.Exit(l.penRegion)
	l.dev.BindFramebuffer(l.compositeFB, l.width, l.height)
	l.dev.Clear()
	clear(l.canvas.Pix)
	l.guard.Reset()
	// The canvas is empty again; only the GPU clear needs to reach the
	// next silhouette snapshot.
	l.state = stateCompositedDirty
}

// mergeRaster draws the raster canvas into the composited texture and
// empties it. Lazy on purpose: many stamps can accumulate on the canvas
// and reach the GPU as a single upload and draw.
func (l *Layer) mergeRaster() {
	if l.state != stateRasterDirty {
		return
	}
	// Entering the composite region exits the pen region, flushing any
	// pending lines first. Draw order within the layer is preserved only
	// up to this coherence point, matching the persistent-ink model.
	l.guard.Enter(l.compositeRegion)
	l.dev.UploadTexture(l.sourceTex, l.canvas.Pix)
	l.dev.DrawTexturedRect(l.textureProgram, l.sourceTex, l.bounds)
	clear(l.canvas.Pix)
	l.state = l.state.afterMerge()
}

// Texture returns the composited texture handle, merging unmerged stamps
// and flushing pending lines first so the result is coherent. The
// optional size arguments of the generic skin interface are accepted and
// ignored: a pen layer always renders at its own backing resolution.
func (l *Layer) Texture(_ ...int) driver.TextureID {
	l.mustBeLive()

	if l.state == stateRasterDirty {
		l.mergeRaster()
	} else if !l.batch.empty() {
		l.guard.Exit(l.penRegion)
	}
	return l.exportTex
}

// UpdateSilhouette reads the composited layer back into the pixel snapshot
// and delivers it to the configured Silhouette consumer. No-op while the
// layer is unchanged since the last snapshot. The read-back forces a merge
// and flush first, so the snapshot always reflects every preceding draw.
func (l *Layer) UpdateSilhouette() error {
	l.mustBeLive()

	if l.state == stateClean {
		return nil
	}
	if l.state == stateRasterDirty {
		l.mergeRaster()
	}
	if !l.batch.empty() {
		l.guard.Exit(l.penRegion)
	}

	l.dev.BindFramebuffer(l.pickFB, l.width, l.height)
	l.guard.Reset()
	pixels, err := l.dev.ReadPixels(l.width, l.height)
	if err != nil {
		return fmt.Errorf("pen: silhouette read-back: %w", err)
	}
	copy(l.readback, pixels)
	if l.silhouette != nil {
		l.silhouette.Update(l.readback, l.width, l.height)
	}
	l.state = stateClean
	return nil
}

// SetRenderQuality rescales the backing surfaces to round(native *
// quality), preserving content. Setting the current quality again is an
// exact no-op: no surface is touched.
func (l *Layer) SetRenderQuality(quality float64) error {
	l.mustBeLive()

	if quality <= 0 {
		return ErrInvalidQuality
	}
	if quality == l.quality {
		return nil
	}
	l.quality = quality
	return l.setCanvasSize(l.nativeWidth, l.nativeHeight)
}

// onNativeSizeChange is the host resize callback.
func (l *Layer) onNativeSizeChange(width, height int) {
	if l.disposed {
		return
	}
	if err := l.setCanvasSize(width, height); err != nil {
		Logger().Warn("pen: resize failed",
			"width", width, "height", height, "err", err)
	}
}

// setCanvasSize reallocates every surface at round(native * quality) and
// migrates existing ink into the new composited texture. Two-phase on
// purpose: the old export texture is drawn into the new framebuffer before
// any old handle is released, since a texture cannot be sampled while it
// is also the render target.
func (l *Layer) setCanvasSize(nativeWidth, nativeHeight int) error {
	if nativeWidth <= 0 || nativeHeight <= 0 {
		return ErrInvalidSize
	}
	width := int(math.Round(float64(nativeWidth) * l.quality))
	height := int(math.Round(float64(nativeHeight) * l.quality))
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	// Everything pending renders into the old surfaces first, so the
	// migration below carries it over.
	if l.canvas != nil && l.state == stateRasterDirty {
		l.mergeRaster()
	}
	l.guard.Exit(l.penRegion)

	oldExport := l.exportTex
	oldSource := l.sourceTex
	oldComposite := l.compositeFB
	oldPick := l.pickFB

	l.nativeWidth = nativeWidth
	l.nativeHeight = nativeHeight
	l.width = width
	l.height = height
	l.bounds = driver.CenteredBounds(nativeWidth, nativeHeight)
	l.centerX = float64(nativeWidth) / 2
	l.centerY = float64(nativeHeight) / 2
	l.canvas = image.NewRGBA(image.Rect(0, 0, width, height))
	l.readback = make([]byte, width*height*4)

	var err error
	if l.sourceTex, err = l.dev.NewTexture(width, height); err != nil {
		return fmt.Errorf("pen: source texture: %w", err)
	}
	if l.exportTex, err = l.dev.NewTexture(width, height); err != nil {
		return fmt.Errorf("pen: export texture: %w", err)
	}
	if l.compositeFB, err = l.dev.NewFramebuffer(l.exportTex); err != nil {
		return fmt.Errorf("pen: composite framebuffer: %w", err)
	}
	// Secondary view of the export texture, reserved for pixel read-back.
	if l.pickFB, err = l.dev.NewFramebuffer(l.exportTex); err != nil {
		return fmt.Errorf("pen: pick framebuffer: %w", err)
	}

	l.dev.BindFramebuffer(l.compositeFB, width, height)
	l.dev.SetProjection(l.bounds)
	l.dev.Clear()
	if oldExport != driver.InvalidID {
		l.dev.DrawTexturedRect(l.textureProgram, oldExport, l.bounds)
	}

	if oldPick != driver.InvalidID {
		l.dev.ReleaseFramebuffer(oldPick)
	}
	if oldComposite != driver.InvalidID {
		l.dev.ReleaseFramebuffer(oldComposite)
	}
	if oldExport != driver.InvalidID {
		l.dev.ReleaseTexture(oldExport)
	}
	if oldSource != driver.InvalidID {
		l.dev.ReleaseTexture(oldSource)
	}

	l.guard.Reset()
	l.state = l.state.markComposited()
	Logger().Info("pen: surfaces reallocated",
		"native_width", nativeWidth, "native_height", nativeHeight,
		"width", width, "height", height, "quality", l.quality)
	return nil
}

// Dispose releases every GPU resource and detaches from the host. Any
// further use of the layer panics. Dispose itself is idempotent.
func (l *Layer) Dispose() {
	if l.disposed {
		return
	}
	if l.cancelResize != nil {
		l.cancelResize()
	}
	l.dev.ReleaseFramebuffer(l.pickFB)
	l.dev.ReleaseFramebuffer(l.compositeFB)
	l.dev.ReleaseTexture(l.exportTex)
	l.dev.ReleaseTexture(l.sourceTex)
	l.dev.ReleaseBuffer(l.pointsBuf)
	l.dev.ReleaseBuffer(l.thicknessBuf)
	l.dev.ReleaseBuffer(l.colorBuf)
	l.disposed = true
}
