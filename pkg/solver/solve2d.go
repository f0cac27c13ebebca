// Package solver holds the two narrow numerical primitives the OCV model is
// built on: a 2-unknown nonlinear root finder and a box-bounded local
// minimizer. Everything above this package treats both as black boxes, so
// either can be swapped without touching the physics.
package solver

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Func2 is a residual function of two unknowns returning two components.
type Func2 func(x, y float64) (f1, f2 float64)

// Options2D controls the root search.
type Options2D struct {
	// Tol is the residual max-norm below which the iterate is accepted.
	Tol float64
	// MaxEvals caps the number of residual evaluations.
	MaxEvals int
}

// DefaultOptions2D matches the tolerances the degradation solve needs.
func DefaultOptions2D() Options2D {
	return Options2D{Tol: 1e-10, MaxEvals: 2000}
}

// Solve2D finds a root of f starting from (x0, y0) using a damped Newton
// iteration with a forward-difference Jacobian. ok is false on
// non-convergence, a non-finite residual, or a stalled line search; callers
// must treat that as an expected outcome, not an error.
func Solve2D(f Func2, x0, y0 float64, opt Options2D) (x, y float64, ok bool) {
	if opt.Tol <= 0 {
		opt.Tol = 1e-10
	}
	if opt.MaxEvals <= 0 {
		opt.MaxEvals = 2000
	}

	evals := 0
	eval := func(x, y float64) (float64, float64, bool) {
		if evals >= opt.MaxEvals {
			return 0, 0, false
		}
		evals++
		f1, f2 := f(x, y)
		return f1, f2, true
	}

	x, y = x0, y0
	f1, f2, more := eval(x, y)
	if !more {
		return x, y, false
	}

	jac := mat.NewDense(2, 2, nil)
	rhs := mat.NewVecDense(2, nil)
	var step mat.VecDense

	for {
		if !isFinite(f1) || !isFinite(f2) {
			return x, y, false
		}
		res := math.Max(math.Abs(f1), math.Abs(f2))
		if res < opt.Tol {
			return x, y, true
		}

		hx := fdStep(x)
		hy := fdStep(y)
		f1x, f2x, more := eval(x+hx, y)
		if !more {
			return x, y, false
		}
		f1y, f2y, more := eval(x, y+hy)
		if !more {
			return x, y, false
		}
		jac.Set(0, 0, (f1x-f1)/hx)
		jac.Set(1, 0, (f2x-f2)/hx)
		jac.Set(0, 1, (f1y-f1)/hy)
		jac.Set(1, 1, (f2y-f2)/hy)
		rhs.SetVec(0, -f1)
		rhs.SetVec(1, -f2)

		if err := step.SolveVec(jac, rhs); err != nil {
			// Singular Jacobian at this iterate. Fall back to a small
			// steepest-descent-like nudge along the residual.
			step.SetVec(0, -f1*hx)
			step.SetVec(1, -f2*hy)
		}
		dx := step.AtVec(0)
		dy := step.AtVec(1)
		if !isFinite(dx) || !isFinite(dy) {
			return x, y, false
		}

		// Backtrack until the residual norm decreases.
		lambda := 1.0
		improved := false
		for i := 0; i < 25; i++ {
			nx := x + lambda*dx
			ny := y + lambda*dy
			n1, n2, more := eval(nx, ny)
			if !more {
				return x, y, false
			}
			if isFinite(n1) && isFinite(n2) &&
				math.Max(math.Abs(n1), math.Abs(n2)) < res {
				x, y, f1, f2 = nx, ny, n1, n2
				improved = true
				break
			}
			lambda /= 2
		}
		if !improved {
			return x, y, false
		}
	}
}

func fdStep(v float64) float64 {
	return 1e-7 * math.Max(1, math.Abs(v))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
