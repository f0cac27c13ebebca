package ocv

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

// Synthetic electrode chemistry used across the package tests. Both OCV
// functions are strictly decreasing in lithiation fraction on [0, 1], so
// the full-cell curve is strictly decreasing in normalized capacity.
//
// The negative electrode carries two graphite-like plateau transitions and
// the positive electrode one. Shifting or stretching either electrode then
// leaves a distinct signature on the full-cell curve, which is what lets
// the estimator pin down all three degradation parameters from a single
// trace. Featureless curves (plain polynomials) admit a continuum of
// parameter sets with near-identical full-cell curves.
func testOcvPE(s float64) float64 {
	return 4.25 - 0.9*s - 0.25*s*s - 0.15*math.Tanh(25*(s-0.55))
}

func testOcvNE(s float64) float64 {
	return 0.75 - 0.3*s - 0.12*math.Tanh(25*(s-0.25)) - 0.1*math.Tanh(25*(s-0.65))
}

var testEndpoints = Endpoints{
	SolPeEoc: 0.1,
	SolPeEod: 0.95,
	SolNeEoc: 0.9,
	SolNeEod: 0.05,
}

// testTables samples both electrode curves on a 101-point grid. The
// endpoint lithiation fractions land exactly on table knots, so the
// interpolant reproduces them without interpolation error.
func testTables() (solPE, ocvPE, solNE, ocvNE []float64) {
	grid := floats.Span(make([]float64, 101), 0, 1)
	solPE = grid
	solNE = grid
	ocvPE = make([]float64, len(grid))
	ocvNE = make([]float64, len(grid))
	for i, s := range grid {
		ocvPE[i] = testOcvPE(s)
		ocvNE[i] = testOcvNE(s)
	}
	return solPE, ocvPE, solNE, ocvNE
}

func testPristine(t *testing.T, numPoints int) *PristineCell {
	t.Helper()
	solPE, ocvPE, solNE, ocvNE := testTables()
	pr, err := NewPristineCell("test-cell", solPE, ocvPE, solNE, ocvNE, testEndpoints, numPoints)
	if err != nil {
		t.Fatalf("building pristine cell: %v", err)
	}
	return pr
}
