package pen

import "testing"

func TestDirtyStateTransitions(t *testing.T) {
	tests := []struct {
		name string
		from dirtyState
		step func(dirtyState) dirtyState
		want dirtyState
	}{
		{"clean markComposited", stateClean, dirtyState.markComposited, stateCompositedDirty},
		{"composited markComposited", stateCompositedDirty, dirtyState.markComposited, stateCompositedDirty},
		{"raster markComposited keeps raster", stateRasterDirty, dirtyState.markComposited, stateRasterDirty},
		{"clean markRaster", stateClean, dirtyState.markRaster, stateRasterDirty},
		{"composited markRaster", stateCompositedDirty, dirtyState.markRaster, stateRasterDirty},
		{"raster afterMerge", stateRasterDirty, dirtyState.afterMerge, stateCompositedDirty},
		{"clean afterMerge", stateClean, dirtyState.afterMerge, stateClean},
		{"composited afterMerge", stateCompositedDirty, dirtyState.afterMerge, stateCompositedDirty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.step(tt.from); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDirtyStateString(t *testing.T) {
	tests := []struct {
		state dirtyState
		want  string
	}{
		{stateClean, "Clean"},
		{stateCompositedDirty, "CompositedDirty"},
		{stateRasterDirty, "RasterDirty"},
		{dirtyState(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
