// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import "testing"

func TestCenteredBounds(t *testing.T) {
	b := CenteredBounds(480, 360)
	if b.Left != -240 || b.Right != 240 || b.Bottom != -180 || b.Top != 180 {
		t.Errorf("CenteredBounds(480, 360) = %+v", b)
	}
	if b.Width() != 480 {
		t.Errorf("Width = %g, want 480", b.Width())
	}
	if b.Height() != 360 {
		t.Errorf("Height = %g, want 360", b.Height())
	}
}

func TestCenteredBoundsOddSize(t *testing.T) {
	b := CenteredBounds(3, 5)
	if b.Left != -1.5 || b.Right != 1.5 || b.Bottom != -2.5 || b.Top != 2.5 {
		t.Errorf("CenteredBounds(3, 5) = %+v", b)
	}
}

func TestDrawModeString(t *testing.T) {
	tests := []struct {
		mode DrawMode
		want string
	}{
		{DrawModeLine, "Line"},
		{DrawModeTexture, "Texture"},
		{DrawMode(0), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("DrawMode(%d).String() = %q, want %q", tt.mode, got, tt.want)
		}
	}
}
