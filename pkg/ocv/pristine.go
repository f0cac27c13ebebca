package ocv

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Endpoints maps normalized cell capacity x in [0, 1] linearly into each
// electrode's lithiation window. EOC is x=0, EOD is x=1.
type Endpoints struct {
	SolPeEoc float64 `json:"sol_pe_eoc" yaml:"sol_pe_eoc"`
	SolPeEod float64 `json:"sol_pe_eod" yaml:"sol_pe_eod"`
	SolNeEoc float64 `json:"sol_ne_eoc" yaml:"sol_ne_eoc"`
	SolNeEod float64 `json:"sol_ne_eod" yaml:"sol_ne_eod"`
}

// PristineCell is the undegraded full-cell reference curve on a normalized
// capacity grid. It is immutable once built; a new one is built per
// (profile, grid size) request.
type PristineCell struct {
	ProfileID string
	PE        *HalfCellCurve
	NE        *HalfCellCurve
	Endpoints Endpoints

	XGrid   []float64
	OcvPE   []float64
	OcvNE   []float64
	OcvCell []float64

	VMax float64
	VMin float64
}

// NewPristineCell combines two half-cell tables and the endpoint mapping
// into the reference full-cell curve sampled on numPoints grid points.
// Mapped endpoints may lie slightly outside table support, so grid
// evaluation always allows extrapolation.
func NewPristineCell(profileID string, solPE, ocvPE, solNE, ocvNE []float64, ep Endpoints, numPoints int) (*PristineCell, error) {
	if numPoints < 2 {
		return nil, errors.Errorf("num_points must be at least 2, got %d", numPoints)
	}

	pe, err := NewHalfCellCurve(solPE, ocvPE)
	if err != nil {
		return nil, errors.Wrap(err, "positive electrode table")
	}
	ne, err := NewHalfCellCurve(solNE, ocvNE)
	if err != nil {
		return nil, errors.Wrap(err, "negative electrode table")
	}

	cell := &PristineCell{
		ProfileID: profileID,
		PE:        pe,
		NE:        ne,
		Endpoints: ep,
		XGrid:     floats.Span(make([]float64, numPoints), 0, 1),
	}

	cell.OcvPE = make([]float64, numPoints)
	cell.OcvNE = make([]float64, numPoints)
	cell.OcvCell = make([]float64, numPoints)
	for i, x := range cell.XGrid {
		vp := pe.EvalAt(cell.SolPEFromX(x), true)
		vn := ne.EvalAt(cell.SolNEFromX(x), true)
		cell.OcvPE[i] = vp
		cell.OcvNE[i] = vn
		cell.OcvCell[i] = vp - vn
	}
	cell.VMax = cell.OcvCell[0]
	cell.VMin = cell.OcvCell[numPoints-1]

	return cell, nil
}

// SolPEFromX maps normalized capacity into the positive electrode's
// lithiation window.
func (p *PristineCell) SolPEFromX(x float64) float64 {
	return p.Endpoints.SolPeEoc + x*(p.Endpoints.SolPeEod-p.Endpoints.SolPeEoc)
}

// SolNEFromX maps normalized capacity into the negative electrode's
// lithiation window.
func (p *PristineCell) SolNEFromX(x float64) float64 {
	return p.Endpoints.SolNeEoc + x*(p.Endpoints.SolNeEod-p.Endpoints.SolNeEoc)
}

// OcvPEFromX evaluates the positive electrode OCV at normalized capacity x.
func (p *PristineCell) OcvPEFromX(x float64, allowExtrapolation bool) float64 {
	return p.PE.EvalAt(p.SolPEFromX(x), allowExtrapolation)
}

// OcvNEFromX evaluates the negative electrode OCV at normalized capacity x.
func (p *PristineCell) OcvNEFromX(x float64, allowExtrapolation bool) float64 {
	return p.NE.EvalAt(p.SolNEFromX(x), allowExtrapolation)
}
