package ocv

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Curve is a sampled curve on a shared plot axis with a validity mask for
// display. Invalid points carry NaN.
type Curve struct {
	Ocv       []float64
	MaskValid []bool
}

// MappedCurves holds pristine and (optionally) degraded curves resampled
// onto one plotting axis in pristine-x units.
type MappedCurves struct {
	PristineCell Curve
	PristinePE   Curve
	PristineNE   Curve

	// Degraded is nil when no valid degraded curve exists.
	Degraded *MappedDegraded
}

// MappedDegraded is the degraded bundle on the shared axis.
type MappedDegraded struct {
	Cell Curve
	PE   Curve
	NE   Curve
}

// BuildPlotAxis spans the pristine grid and, if present, the degraded
// window, optionally padded by 2% of the span, resampled to the pristine
// grid's point count.
func BuildPlotAxis(pristineX []float64, deg *DegradedCurve, pad bool) []float64 {
	xMin := floats.Min(pristineX)
	xMax := floats.Max(pristineX)
	if deg != nil {
		xMin = math.Min(xMin, deg.XCellEoc)
		xMax = math.Max(xMax, deg.XCellEod)
	}
	if pad {
		span := math.Max(1e-9, xMax-xMin)
		xMin -= 0.02 * span
		xMax += 0.02 * span
	}
	return floats.Span(make([]float64, len(pristineX)), xMin, xMax)
}

// MapCurvesToPlotAxis resamples the pristine curves (restricted to [0, 1])
// and the degraded curves (restricted to the degraded window) onto xPlot.
// Degraded electrode points whose mapped lithiation fraction falls outside
// the electrode's original table support are computed with extrapolation
// but masked invalid for display.
func MapCurvesToPlotAxis(pr *PristineCell, deg *DegradedCurve, xPlot []float64) MappedCurves {
	n := len(xPlot)
	out := MappedCurves{
		PristineCell: newNaNCurve(n),
		PristinePE:   newNaNCurve(n),
		PristineNE:   newNaNCurve(n),
	}

	for i, x := range xPlot {
		if x < 0 || x > 1 {
			continue
		}
		out.PristineCell.MaskValid[i] = true
		out.PristinePE.MaskValid[i] = true
		out.PristineNE.MaskValid[i] = true
		out.PristineCell.Ocv[i] = lerp(pr.XGrid, pr.OcvCell, x, false)
		out.PristinePE.Ocv[i] = lerp(pr.XGrid, pr.OcvPE, x, false)
		out.PristineNE.Ocv[i] = lerp(pr.XGrid, pr.OcvNE, x, false)
	}

	if deg == nil {
		return out
	}

	d := &MappedDegraded{
		Cell: newNaNCurve(n),
		PE:   newNaNCurve(n),
		NE:   newNaNCurve(n),
	}
	for i, x := range xPlot {
		inWindow := x >= deg.XCellEoc && x <= deg.XCellEod
		if inWindow {
			d.Cell.MaskValid[i] = true
			d.Cell.Ocv[i] = lerp(deg.CapacityNorm, deg.OcvCell, x, false)
		}

		frac := (x - deg.XCellEoc) / (deg.XCellEod - deg.XCellEoc)
		solPE := pr.SolPEFromX(deg.XPeEoc + frac*(deg.XPeEod-deg.XPeEoc))
		solNE := pr.SolNEFromX(deg.XNeEoc + frac*(deg.XNeEod-deg.XNeEoc))

		if inWindow && pr.PE.InDomain(solPE) {
			d.PE.MaskValid[i] = true
			d.PE.Ocv[i] = pr.PE.EvalAt(solPE, true)
		}
		if inWindow && pr.NE.InDomain(solNE) {
			d.NE.MaskValid[i] = true
			d.NE.Ocv[i] = pr.NE.EvalAt(solNE, true)
		}
	}
	out.Degraded = d

	return out
}

func newNaNCurve(n int) Curve {
	c := Curve{
		Ocv:       make([]float64, n),
		MaskValid: make([]bool, n),
	}
	for i := range c.Ocv {
		c.Ocv[i] = math.NaN()
	}
	return c
}

// Interpolate linearly interpolates ys over the sorted grid xs at x,
// clamping to the edge values outside the grid.
func Interpolate(xs, ys []float64, x float64) float64 {
	return lerp(xs, ys, x, false)
}

// lerp linearly interpolates ys over the sorted grid xs at x. Outside the
// grid it either clamps to the edge values or extends the edge segments.
func lerp(xs, ys []float64, x float64, extrapolate bool) float64 {
	n := len(xs)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return ys[0]
	}

	switch {
	case x <= xs[0]:
		if !extrapolate || x == xs[0] {
			return ys[0]
		}
		return ys[0] + (ys[1]-ys[0])*(x-xs[0])/(xs[1]-xs[0])
	case x >= xs[n-1]:
		if !extrapolate || x == xs[n-1] {
			return ys[n-1]
		}
		return ys[n-1] + (ys[n-1]-ys[n-2])*(x-xs[n-1])/(xs[n-1]-xs[n-2])
	}

	i := sort.SearchFloat64s(xs, x)
	if xs[i] == x {
		return ys[i]
	}
	t := (x - xs[i-1]) / (xs[i] - xs[i-1])
	return ys[i-1] + t*(ys[i]-ys[i-1])
}
