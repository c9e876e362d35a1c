package pen

import "testing"

func TestRegionGuardDeduplicatesEnter(t *testing.T) {
	var enters, exits int
	r := &drawRegion{
		enter: func() { enters++ },
		exit:  func() { exits++ },
	}
	var g regionGuard

	for i := 0; i < 100; i++ {
		g.Enter(r)
	}
	if enters != 1 {
		t.Errorf("enters = %d, want 1", enters)
	}
	if exits != 0 {
		t.Errorf("exits = %d, want 0", exits)
	}
}

func TestRegionGuardSwitchRunsExitThenEnter(t *testing.T) {
	var order []string
	a := &drawRegion{
		enter: func() { order = append(order, "enter a") },
		exit:  func() { order = append(order, "exit a") },
	}
	b := &drawRegion{
		enter: func() { order = append(order, "enter b") },
	}
	var g regionGuard

	g.Enter(a)
	g.Enter(b)

	want := []string{"enter a", "exit a", "enter b"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRegionGuardExitAlwaysRunsCallback(t *testing.T) {
	var exits int
	r := &drawRegion{exit: func() { exits++ }}
	var g regionGuard

	// Exit without a prior Enter still runs the callback: coherence points
	// use it as an unconditional flush.
	g.Exit(r)
	if exits != 1 {
		t.Errorf("exits = %d, want 1", exits)
	}

	g.Enter(r)
	exits = 0
	g.Exit(r)
	if exits != 1 {
		t.Errorf("exits after enter = %d, want 1", exits)
	}
	// Region is no longer current; re-entering must re-run enter.
	var enters int
	r2 := &drawRegion{enter: func() { enters++ }}
	g.Enter(r2)
	if enters != 1 {
		t.Errorf("enters = %d, want 1", enters)
	}
}

func TestRegionGuardReset(t *testing.T) {
	var enters int
	r := &drawRegion{enter: func() { enters++ }}
	var g regionGuard

	g.Enter(r)
	g.Reset()
	g.Enter(r)
	if enters != 2 {
		t.Errorf("enters = %d, want 2 (reset must force re-entry)", enters)
	}
}
