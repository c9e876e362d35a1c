package pen

// dirtyState tracks how far the layer's surfaces have diverged from the
// last silhouette snapshot. A single tagged state replaces a pair of dirty
// booleans: raster-dirty structurally implies composited-dirty, so the
// illegal combination (raster dirty, composited clean) cannot be
// represented.
type dirtyState uint8

const (
	// stateClean: the silhouette snapshot matches the composited texture.
	stateClean dirtyState = iota

	// stateCompositedDirty: the GPU texture changed since the last
	// snapshot; the raster canvas is empty.
	stateCompositedDirty

	// stateRasterDirty: the raster canvas holds unmerged stamps. The
	// composited texture is necessarily stale too.
	stateRasterDirty
)

// String returns a human-readable name for the state.
func (s dirtyState) String() string {
	switch s {
	case stateClean:
		return "Clean"
	case stateCompositedDirty:
		return "CompositedDirty"
	case stateRasterDirty:
		return "RasterDirty"
	default:
		return "Unknown"
	}
}

// markComposited is the transition after GPU-side content changed (line
// flush, clear, content migration). It never lowers RasterDirty: unmerged
// stamps stay pending.
func (s dirtyState) markComposited() dirtyState {
	if s == stateRasterDirty {
		return s
	}
	return stateCompositedDirty
}

// markRaster is the transition after a stamp landed on the canvas.
func (s dirtyState) markRaster() dirtyState {
	return stateRasterDirty
}

// afterMerge lowers RasterDirty to CompositedDirty once the canvas has
// been drawn into the composited texture.
func (s dirtyState) afterMerge() dirtyState {
	if s == stateRasterDirty {
		return stateCompositedDirty
	}
	return s
}
