package pen

// Attributes describe how a single line, dot, or segment is drawn. Values
// are read once per draw call; mutating an Attributes value later does not
// affect ink already batched.
type Attributes struct {
	// Diameter is the stroke thickness in layer units. Must be positive.
	// Diameters of exactly 1 and 3 receive a half-pixel alignment offset
	// during drawing (see Layer.DrawLine).
	Diameter float32

	// Color is the stroke color as RGBA with straight (non-premultiplied)
	// alpha, each channel in [0, 1]. Premultiplication happens when the
	// segment is batched.
	Color [4]float32
}

// DefaultAttributes returns the default pen: diameter 1, opaque blue.
func DefaultAttributes() Attributes {
	return Attributes{
		Diameter: 1,
		Color:    [4]float32{0, 0, 1, 1},
	}
}
