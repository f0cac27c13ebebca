// Package ocv implements the open-circuit-voltage model of a lithium-ion
// cell: pristine full-cell curve construction from two half-cell tables,
// the degraded-window solve for a set of degradation parameters, and the
// multistart estimator that recovers those parameters from a measured
// voltage/capacity trace.
package ocv

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/interp"
)

// HalfCellCurve wraps one electrode's (lithiation fraction, OCV) table with
// a shape-preserving monotone cubic interpolant. The interpolant introduces
// no extrema between samples, which both the boundary solve and the
// estimator's descent rely on. Queries beyond the table support extend the
// endpoint tangents linearly.
type HalfCellCurve struct {
	Sol []float64
	Ocv []float64

	SolMin float64
	SolMax float64

	fb interp.FritschButland

	// Endpoint values and tangents for linear tail extrapolation.
	loVal, loSlope float64
	hiVal, hiSlope float64
}

// NewHalfCellCurve builds the interpolant from a raw table. The table is
// sorted ascending by lithiation fraction; duplicate fractions are merged by
// averaging their OCV. Fewer than 2 unique finite points is a data error.
func NewHalfCellCurve(sol, ocv []float64) (*HalfCellCurve, error) {
	if len(sol) != len(ocv) {
		return nil, errors.Errorf("half-cell table column mismatch: %d lithiation values vs %d OCV values", len(sol), len(ocv))
	}

	type pt struct{ s, v float64 }
	pts := make([]pt, 0, len(sol))
	for i := range sol {
		if isFinite(sol[i]) && isFinite(ocv[i]) {
			pts = append(pts, pt{sol[i], ocv[i]})
		}
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].s < pts[j].s })

	// Merge duplicate lithiation fractions by averaging OCV.
	us := make([]float64, 0, len(pts))
	uv := make([]float64, 0, len(pts))
	for i := 0; i < len(pts); {
		j := i
		sum := 0.0
		for j < len(pts) && pts[j].s == pts[i].s {
			sum += pts[j].v
			j++
		}
		us = append(us, pts[i].s)
		uv = append(uv, sum/float64(j-i))
		i = j
	}

	if len(us) < 2 {
		return nil, errors.Errorf("half-cell table needs at least 2 unique lithiation points, got %d", len(us))
	}

	c := &HalfCellCurve{
		Sol:    us,
		Ocv:    uv,
		SolMin: us[0],
		SolMax: us[len(us)-1],
	}
	if err := c.fb.Fit(us, uv); err != nil {
		return nil, errors.Wrap(err, "fitting monotone cubic")
	}
	c.loVal = uv[0]
	c.hiVal = uv[len(uv)-1]
	c.loSlope = c.fb.PredictDerivative(c.SolMin)
	c.hiSlope = c.fb.PredictDerivative(c.SolMax)
	return c, nil
}

// EvalAt evaluates the curve at a single lithiation fraction. With
// extrapolation disallowed, out-of-domain queries return NaN.
func (c *HalfCellCurve) EvalAt(s float64, allowExtrapolation bool) float64 {
	switch {
	case s < c.SolMin:
		if !allowExtrapolation {
			return math.NaN()
		}
		return c.loVal + c.loSlope*(s-c.SolMin)
	case s > c.SolMax:
		if !allowExtrapolation {
			return math.NaN()
		}
		return c.hiVal + c.hiSlope*(s-c.SolMax)
	default:
		return c.fb.Predict(s)
	}
}

// Eval evaluates the curve over a batch of queries. Out-of-domain points are
// NaN-masked rather than failing the batch.
func (c *HalfCellCurve) Eval(query []float64, allowExtrapolation bool) []float64 {
	out := make([]float64, len(query))
	for i, s := range query {
		out[i] = c.EvalAt(s, allowExtrapolation)
	}
	return out
}

// InDomain reports whether s falls inside the table support.
func (c *HalfCellCurve) InDomain(s float64) bool {
	return s >= c.SolMin && s <= c.SolMax
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
