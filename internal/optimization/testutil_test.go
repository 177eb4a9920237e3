package optimization

import (
	"math"
	"testing"
)

// assertPointNear checks that two points agree within tol on both axes.
func assertPointNear(t *testing.T, got, want Point, tol float64) {
	t.Helper()

	if math.Abs(got.X-want.X) > tol || math.Abs(got.Y-want.Y) > tol {
		t.Fatalf("got (%v, %v), want (%v, %v) (tolerance %v)", got.X, got.Y, want.X, want.Y, tol)
	}
}

// relTol scales tol by the magnitude of v, with a floor of tol itself.
func relTol(v, tol float64) float64 {
	return tol * math.Max(1, math.Abs(v))
}
