package solver

import "testing"

func TestPoly6ZeroOutsideSupport(t *testing.T) {
	h2 := float32(0.01)
	if got := Poly6(h2, h2, 1); got != 0 {
		t.Errorf("Poly6 at r2==h2 = %v, want 0", got)
	}
	if got := Poly6(h2*2, h2, 1); got != 0 {
		t.Errorf("Poly6 beyond support = %v, want 0", got)
	}
}

func TestPoly6PositiveInsideSupport(t *testing.T) {
	h2 := float32(0.01)
	if got := Poly6(0, h2, 1); got <= 0 {
		t.Errorf("Poly6 at r2=0 = %v, want > 0", got)
	}
}

func TestSpikyGradientPointsTowardNeighbor(t *testing.T) {
	delta := Vec3{X: 0.01, Y: 0, Z: 0} // pi - pj, i to the +x side of j
	h := float32(0.1)
	grad := SpikyGradient(delta, 0.01, h, 1)
	if grad.X >= 0 {
		t.Errorf("expected gradient with negative x component (pointing from i toward j; a negative λ turns it into a push away from j), got %+v", grad)
	}
}

func TestSpikyGradientZeroOutsideSupport(t *testing.T) {
	delta := Vec3{X: 0.2, Y: 0, Z: 0}
	grad := SpikyGradient(delta, 0.2, 0.1, 1)
	if grad != (Vec3{}) {
		t.Errorf("expected zero gradient outside support, got %+v", grad)
	}
}
