package ocv

import (
	"gonum.org/v1/gonum/floats"

	"github.com/battkit/ocvd/pkg/solver"
)

// Parameters is the 3-component degradation vector: loss of lithium
// inventory and per-electrode loss of active material. All components are
// fractions of the pristine state.
type Parameters struct {
	LLI   float64 `json:"LLI"`
	LAMPE float64 `json:"LAM_PE"`
	LAMNE float64 `json:"LAM_NE"`
}

// Admissible reports whether the parameters lie in the physically valid
// domain. LAM values of 1 or more would put a division singularity in the
// electrode mapping.
func (p Parameters) Admissible() bool {
	return p.LLI >= 0 && p.LAMPE >= 0 && p.LAMNE >= 0 && p.LAMPE < 1 && p.LAMNE < 1
}

// DegradedCurve is the degraded full-cell curve on the capacity window the
// boundary solve produced. Capacity stays in pristine-x units, so the
// window width is the remaining cell capacity.
type DegradedCurve struct {
	Params Parameters

	DeltaEoc float64
	DeltaEod float64

	XCellEoc     float64
	XCellEod     float64
	CellCapacity float64

	XPeEoc float64
	XPeEod float64
	XNeEoc float64
	XNeEod float64

	CapacityNorm []float64
	OcvCell      []float64
}

// SolveDegraded maps degradation parameters to the degraded full-cell
// curve. It solves a 2x2 nonlinear boundary system for the capacity-window
// shifts (the cell must still reach v_max at end of charge and v_min at end
// of discharge), then samples the window on numPoints grid points.
//
// ok is false for inadmissible parameters, a failed root solve, or a
// degenerate window. All of these are expected physical infeasibilities,
// never errors.
func SolveDegraded(pr *PristineCell, p Parameters, numPoints int) (*DegradedCurve, bool) {
	if !p.Admissible() || numPoints < 2 {
		return nil, false
	}

	invPE := 1 / (1 - p.LAMPE)
	invNE := 1 / (1 - p.LAMNE)

	// Electrode evaluations during the solve allow extrapolation: iterates
	// may transiently leave the table domain.
	residual := func(dEoc, dEod float64) (float64, float64) {
		f1 := pr.VMax -
			pr.OcvPEFromX(dEoc*invPE, true) +
			pr.OcvNEFromX((dEoc+p.LLI-p.LAMNE)*invNE, true)
		f2 := pr.VMin -
			pr.OcvPEFromX((dEod+1-p.LLI)*invPE, true) +
			pr.OcvNEFromX((dEod+1-p.LAMNE)*invNE, true)
		return f1, f2
	}

	dEoc, dEod, ok := solver.Solve2D(residual, 0, 0, solver.DefaultOptions2D())
	if !ok {
		return nil, false
	}

	xCellEoc := dEoc
	xCellEod := 1 - p.LLI + dEod
	if !isFinite(xCellEoc) || !isFinite(xCellEod) || xCellEod <= xCellEoc {
		// Degenerate window: these parameters forbid reaching both
		// voltage limits.
		return nil, false
	}

	d := &DegradedCurve{
		Params:       p,
		DeltaEoc:     dEoc,
		DeltaEod:     dEod,
		XCellEoc:     xCellEoc,
		XCellEod:     xCellEod,
		CellCapacity: xCellEod - xCellEoc,
		XPeEoc:       dEoc * invPE,
		XPeEod:       (dEod + 1 - p.LLI) * invPE,
		XNeEoc:       (dEoc + p.LLI - p.LAMNE) * invNE,
		XNeEod:       (dEod + 1 - p.LAMNE) * invNE,
		CapacityNorm: floats.Span(make([]float64, numPoints), xCellEoc, xCellEod),
	}

	d.OcvCell = make([]float64, numPoints)
	for i, c := range d.CapacityNorm {
		frac := (c - xCellEoc) / d.CellCapacity
		xPE := d.XPeEoc + frac*(d.XPeEod-d.XPeEoc)
		xNE := d.XNeEoc + frac*(d.XNeEod-d.XNeEoc)
		d.OcvCell[i] = pr.OcvPEFromX(xPE, true) - pr.OcvNEFromX(xNE, true)
	}

	return d, true
}
