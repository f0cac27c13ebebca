package solver

import (
	"math"
	"testing"
)

func TestBoundedMinimizeInterior(t *testing.T) {
	f := func(x []float64) float64 {
		dx := x[0] - 0.3
		dy := x[1] - 0.7
		return dx*dx + dy*dy
	}
	b := Bounds{Lower: []float64{0, 0}, Upper: []float64{1, 1}}

	x, v, err := BoundedMinimize(f, b, []float64{0.5, 0.5}, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(x[0]-0.3) > 1e-4 || math.Abs(x[1]-0.7) > 1e-4 {
		t.Errorf("got minimum at (%g, %g), want (0.3, 0.7)", x[0], x[1])
	}
	if v > 1e-8 {
		t.Errorf("got value %g, want near 0", v)
	}
}

func TestBoundedMinimizeClampsToBox(t *testing.T) {
	// Unconstrained minimum at x = -1, outside the box. The constrained
	// minimum sits on the lower bound.
	f := func(x []float64) float64 {
		d := x[0] + 1
		return d * d
	}
	b := Bounds{Lower: []float64{0}, Upper: []float64{1}}

	x, v, err := BoundedMinimize(f, b, []float64{0.5}, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if x[0] < 0 || x[0] > 1 {
		t.Fatalf("minimum %g escaped the box [0, 1]", x[0])
	}
	if math.Abs(v-1) > 1e-3 {
		t.Errorf("got value %g, want near 1 (boundary optimum)", v)
	}
}

func TestBoundedMinimizeBadBounds(t *testing.T) {
	f := func(x []float64) float64 { return x[0] }

	if _, _, err := BoundedMinimize(f, Bounds{Lower: []float64{0}, Upper: []float64{0, 1}}, []float64{0}, 10); err == nil {
		t.Error("expected error for mismatched bound dimensions")
	}
	if _, _, err := BoundedMinimize(f, Bounds{Lower: []float64{1}, Upper: []float64{0}}, []float64{0}, 10); err == nil {
		t.Error("expected error for inverted bounds")
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		v, lo, hi, want float64
	}{
		{0.5, 0, 1, 0.5},
		{0, 0, 1, 0},
		{1, 0, 1, 1},
		{1.25, 0, 1, 0.75},
		{-0.25, 0, 1, 0.25},
		{2.5, 0, 1, 0.5},
		{-1.5, 0, 1, 0.5},
		{3, 2, 4, 3},
		{5, 2, 4, 3},
		{7, 3, 3, 3},
	}
	for _, tt := range tests {
		got := fold(tt.v, tt.lo, tt.hi)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("fold(%g, %g, %g) = %g, want %g", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}
