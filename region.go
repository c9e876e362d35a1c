package pen

// drawRegion brackets a span of device calls that share bind state. The
// enter callback establishes that state (framebuffer, program, attribute
// streams); the exit callback finishes any pending work that depends on it
// (for the pen region, flushing batched lines).
//
// Regions are per-layer values. Two layers never share a region, so the
// guard below carries no global state.
type drawRegion struct {
	enter func()
	exit  func()
}

// regionGuard de-duplicates region transitions: entering the region that
// is already current issues no device calls at all. This is what makes a
// run of thousands of DrawLine calls bind its GPU state exactly once.
type regionGuard struct {
	current *drawRegion
}

// Enter makes r the current region. If another region is current, its exit
// callback runs first; entering the current region is a no-op.
func (g *regionGuard) Enter(r *drawRegion) {
	if g.current == r {
		return
	}
	if g.current != nil && g.current.exit != nil {
		g.current.exit()
	}
	if r.enter != nil {
		r.enter()
	}
	g.current = r
}

// Exit runs r's exit callback unconditionally and clears the current
// region if it matches r. Calling Exit for a region that is not current
// still runs its exit work; this is intentional, coherence points use it
// to force a flush regardless of guard state.
func (g *regionGuard) Exit(r *drawRegion) {
	if r.exit != nil {
		r.exit()
	}
	if g.current == r {
		g.current = nil
	}
}

// Reset forgets the current region without running exit callbacks. Used
// after device state has been changed outside any region (direct binds
// during clear, read-back, or surface reallocation), when the recorded
// region no longer reflects reality.
func (g *regionGuard) Reset() {
	g.current = nil
}
