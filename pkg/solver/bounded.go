package solver

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/optimize"
)

// Objective is a scalar objective over n parameters.
type Objective func(x []float64) float64

// Bounds is a per-parameter box constraint.
type Bounds struct {
	Lower []float64
	Upper []float64
}

// BoundedMinimize runs a derivative-free local minimization of f inside the
// box b, starting from x0. Bound handling folds the search space back into
// the box with a triangle-wave reflection, so the optimizer itself stays
// unconstrained while every evaluation lands inside the box.
//
// maxIter caps major iterations. The returned point always lies inside b.
func BoundedMinimize(f Objective, b Bounds, x0 []float64, maxIter int) ([]float64, float64, error) {
	n := len(x0)
	if len(b.Lower) != n || len(b.Upper) != n {
		return nil, 0, errors.Errorf("bounds dimension mismatch: got %d/%d, want %d", len(b.Lower), len(b.Upper), n)
	}
	for i := 0; i < n; i++ {
		if b.Upper[i] < b.Lower[i] {
			return nil, 0, errors.Errorf("invalid bounds for parameter %d: [%g, %g]", i, b.Lower[i], b.Upper[i])
		}
	}
	if maxIter <= 0 {
		maxIter = 200
	}

	problem := optimize.Problem{
		Func: func(u []float64) float64 {
			return f(foldAll(u, b))
		},
	}
	settings := &optimize.Settings{
		MajorIterations: maxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Iterations: 50,
		},
	}

	u0 := make([]float64, n)
	copy(u0, x0)
	result, err := optimize.Minimize(problem, u0, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, 0, errors.Wrap(err, "local minimization failed")
	}
	if result == nil || !isFinite(result.F) {
		return nil, 0, errors.New("local minimization returned a non-finite value")
	}
	return foldAll(result.X, b), result.F, nil
}

func foldAll(u []float64, b Bounds) []float64 {
	x := make([]float64, len(u))
	for i, v := range u {
		x[i] = fold(v, b.Lower[i], b.Upper[i])
	}
	return x
}

// fold reflects v into [lo, hi] as a triangle wave, keeping the wrapped
// objective continuous at the bounds.
func fold(v, lo, hi float64) float64 {
	span := hi - lo
	if span == 0 {
		return lo
	}
	if !isFinite(v) {
		return lo
	}
	t := math.Mod(v-lo, 2*span)
	if t < 0 {
		t += 2 * span
	}
	if t > span {
		t = 2*span - t
	}
	return lo + t
}
