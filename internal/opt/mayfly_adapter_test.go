package opt

import "testing"

func TestMinimizeRejectsBadBounds(t *testing.T) {
	m := NewMayfly(10, 5, 1)
	flat := func(x []float64) float64 { return 0 }

	if _, _, err := m.Minimize(flat, []float64{-1}, []float64{1}, 2); err == nil {
		t.Error("expected error for bounds shorter than the dimension")
	}
	if _, _, err := m.Minimize(flat, []float64{-1, -2}, []float64{1, 1}, 2); err == nil {
		t.Error("expected error for per-dimension lower bounds")
	}
	if _, _, err := m.Minimize(flat, []float64{-1, -1}, []float64{1, 2}, 2); err == nil {
		t.Error("expected error for per-dimension upper bounds")
	}
}

func TestMinimizeFindsBoxMinimum(t *testing.T) {
	m := NewMayfly(100, 20, 7)
	// Sphere function with minimum at the origin, well inside the box.
	sphere := func(x []float64) float64 {
		var s float64
		for _, v := range x {
			s += v * v
		}
		return s
	}

	pos, cost, err := m.Minimize(sphere, []float64{-2, -2}, []float64{2, 2}, 2)
	if err != nil {
		t.Fatalf("Minimize failed: %v", err)
	}
	if len(pos) != 2 {
		t.Fatalf("solution has %d dimensions, want 2", len(pos))
	}
	if cost > 0.5 {
		t.Errorf("best cost = %v, expected the swarm to get near the origin", cost)
	}
	for _, v := range pos {
		if v < -2 || v > 2 {
			t.Errorf("solution coordinate %v outside the search box", v)
		}
	}
}
