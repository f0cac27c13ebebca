// Package api defines the request/response types shared by the daemon and
// its clients.
package api

import (
	"github.com/battkit/ocvd/pkg/catalog"
	"github.com/battkit/ocvd/pkg/ocv"
	"github.com/battkit/ocvd/pkg/pool"
)

// HealthResponse is the /health payload.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// VersionResponse is the /version payload.
type VersionResponse struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
}

// CatalogResponse lists the available pristine profiles.
type CatalogResponse struct {
	Profiles []catalog.Profile `json:"profiles"`
}

// Theta is the degradation parameter echo used in responses.
type Theta struct {
	LLI   float64 `json:"LLI"`
	LAMPE float64 `json:"LAM_PE"`
	LAMNE float64 `json:"LAM_NE"`
}

// ThetaFromParams converts core parameters to the wire echo.
func ThetaFromParams(p ocv.Parameters) Theta {
	return Theta{LLI: p.LLI, LAMPE: p.LAMPE, LAMNE: p.LAMNE}
}

// Params converts the wire echo back to core parameters.
func (t Theta) Params() ocv.Parameters {
	return ocv.Parameters{LLI: t.LLI, LAMPE: t.LAMPE, LAMNE: t.LAMNE}
}

// CurveBundle is one curve on a shared axis. Invalid points are null on the
// wire and NaN in memory; MaskValid marks the displayable points.
type CurveBundle struct {
	X         Floats `json:"x"`
	Ocv       Floats `json:"ocv"`
	MaskValid []bool `json:"mask_valid,omitempty"`
}

// CurvesRequest is the forward-model request.
type CurvesRequest struct {
	PristineID string  `json:"pristine_id" binding:"required"`
	LLI        float64 `json:"lli"`
	LAMPE      float64 `json:"lam_pe"`
	LAMNE      float64 `json:"lam_ne"`
	// NumPoints overrides the profile's grid size; 0 means profile default.
	NumPoints int `json:"num_points,omitempty"`
	// IncludePlotDomainPadding defaults to true.
	IncludePlotDomainPadding *bool `json:"include_plot_domain_padding,omitempty"`
}

// WindowEndpoints are the solved per-electrode window bounds.
type WindowEndpoints struct {
	XPeEoc float64 `json:"x_pe_eoc"`
	XPeEod float64 `json:"x_pe_eod"`
	XNeEoc float64 `json:"x_ne_eoc"`
	XNeEod float64 `json:"x_ne_eod"`
}

// WindowResults are the solved degraded-window quantities.
type WindowResults struct {
	DeltaXEoc    float64         `json:"delta_x_eoc"`
	DeltaXEod    float64         `json:"delta_x_eod"`
	XCellEoc     float64         `json:"x_cell_eoc"`
	XCellEod     float64         `json:"x_cell_eod"`
	CellCapacity float64         `json:"cell_capacity"`
	Endpoints    WindowEndpoints `json:"endpoints"`
}

// CurveSet groups the cell and per-electrode bundles.
type CurveSet struct {
	Cell CurveBundle `json:"cell"`
	PE   CurveBundle `json:"pe"`
	NE   CurveBundle `json:"ne"`
}

// DegradedSection is the possibly-absent degraded half of a curves
// response. Valid false means the degradation solve found no window.
type DegradedSection struct {
	Valid   bool           `json:"valid"`
	Theta   *Theta         `json:"theta,omitempty"`
	Results *WindowResults `json:"results,omitempty"`
	Cell    *CurveBundle   `json:"cell,omitempty"`
	PE      *CurveBundle   `json:"pe,omitempty"`
	NE      *CurveBundle   `json:"ne,omitempty"`
}

// AxisInfo documents the shared plotting axis.
type AxisInfo struct {
	Kind string `json:"kind"`
	Note string `json:"note,omitempty"`
}

// CurvesResponse is the forward-model response.
type CurvesResponse struct {
	PristineID string          `json:"pristine_id"`
	Theta      Theta           `json:"theta_deg"`
	XAxis      AxisInfo        `json:"x_axis"`
	Pristine   CurveSet        `json:"pristine"`
	Degraded   DegradedSection `json:"degraded"`
}

// MeasuredPayload is an inline measured series.
type MeasuredPayload struct {
	Capacity []float64 `json:"capacity"`
	Ocv      []float64 `json:"ocv"`
}

// EstimateRequest is the inverse-model request. Exactly one of Measured or
// ExternalPath must be provided.
type EstimateRequest struct {
	PristineID   string           `json:"pristine_id" binding:"required"`
	Measured     *MeasuredPayload `json:"measured,omitempty"`
	ExternalPath string           `json:"external_path,omitempty"`

	NumStarts     int     `json:"num_starts,omitempty"`
	Seed          *int64  `json:"seed,omitempty"`
	NumPoints     int     `json:"num_points,omitempty"`
	GradientLimit float64 `json:"gradient_limit,omitempty"`
	MaxIter       int     `json:"maxiter,omitempty"`
}

// MeasuredEcho echoes the cleaned measured series back with provenance and
// the flat mask the fit used.
type MeasuredEcho struct {
	Kind     string `json:"kind"`
	Path     string `json:"path,omitempty"`
	Capacity Floats `json:"capacity"`
	Ocv      Floats `json:"ocv"`
	MaskFlat []bool `json:"mask_flat,omitempty"`
}

// EstimateDebug carries multistart counters.
type EstimateDebug struct {
	StartsTried     int `json:"starts_tried"`
	StartsSucceeded int `json:"starts_succeeded"`
	NumFlat         int `json:"num_flat"`
}

// EstimateResponse is the inverse-model response. Valid false carries a
// reason code instead of an estimate.
type EstimateResponse struct {
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
	PristineID string `json:"pristine_id"`

	Theta *Theta   `json:"theta_deg,omitempty"`
	RmseV *float64 `json:"rmse_v,omitempty"`

	Measured          *MeasuredEcho  `json:"measured,omitempty"`
	Predicted         *CurveBundle   `json:"predicted,omitempty"`
	PredictedPristine *CurveBundle   `json:"predicted_pristine,omitempty"`
	Debug             *EstimateDebug `json:"debug,omitempty"`
}

// PoolSaveRequest stores a degradation result.
type PoolSaveRequest struct {
	PristineID string         `json:"pristine_id" binding:"required"`
	LLI        float64        `json:"lli"`
	LAMPE      float64        `json:"lam_pe"`
	LAMNE      float64        `json:"lam_ne"`
	Label      string         `json:"label,omitempty"`
	Solver     map[string]any `json:"solver,omitempty"`
}

// PoolSaveResponse acknowledges a save.
type PoolSaveResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

// PoolListResponse lists stored records, newest first.
type PoolListResponse struct {
	Items []pool.Summary `json:"items"`
}

// PoolLoadRequest loads one stored record by id.
type PoolLoadRequest struct {
	ID string `json:"id" binding:"required"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
