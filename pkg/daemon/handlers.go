package daemon

import (
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/battkit/ocvd/pkg/api"
	"github.com/battkit/ocvd/pkg/catalog"
	"github.com/battkit/ocvd/pkg/measure"
	"github.com/battkit/ocvd/pkg/ocv"
	"github.com/battkit/ocvd/pkg/pool"
	"github.com/battkit/ocvd/pkg/version"
)

func abortError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, api.ErrorResponse{Error: err.Error()})
}

func (s *server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{OK: true})
}

func (s *server) getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, api.VersionResponse{
		Version:   version.Version,
		GitCommit: version.GitCommit,
	})
}

func (s *server) getCatalog(c *gin.Context) {
	profiles, err := s.cat.Profiles()
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	if profiles == nil {
		profiles = []catalog.Profile{}
	}
	c.JSON(http.StatusOK, api.CatalogResponse{Profiles: profiles})
}

// lookupProfile resolves a profile id, aborting the request on failure.
func (s *server) lookupProfile(c *gin.Context, id string) (catalog.Profile, bool) {
	profile, found, err := s.cat.Get(id)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return catalog.Profile{}, false
	}
	if !found {
		abortError(c, http.StatusNotFound, errors.Errorf("unknown pristine_id: %s", id))
		return catalog.Profile{}, false
	}
	return profile, true
}

func (s *server) numPoints(c *gin.Context, requested int, profile catalog.Profile) (int, bool) {
	if requested == 0 {
		return profile.NumPointsOrDefault(s.cfg.Defaults.NumPoints), true
	}
	if requested < 101 || requested > 5001 {
		abortError(c, http.StatusBadRequest, errors.Errorf("num_points must be in [101, 5001], got %d", requested))
		return 0, false
	}
	return requested, true
}

func (s *server) postCurves(c *gin.Context) {
	var req api.CurvesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	if req.LLI < 0 || req.LAMPE < 0 || req.LAMNE < 0 {
		abortError(c, http.StatusBadRequest, errors.New("lli, lam_pe and lam_ne must be non-negative"))
		return
	}

	profile, ok := s.lookupProfile(c, req.PristineID)
	if !ok {
		return
	}
	n, ok := s.numPoints(c, req.NumPoints, profile)
	if !ok {
		return
	}

	pr, err := s.cat.BuildPristine(profile, n)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}

	params := ocv.Parameters{LLI: req.LLI, LAMPE: req.LAMPE, LAMNE: req.LAMNE}
	deg, degOK := ocv.SolveDegraded(pr, params, n)
	if !degOK {
		logrus.WithFields(logrus.Fields{
			"profile": profile.ID,
			"lli":     params.LLI,
			"lam_pe":  params.LAMPE,
			"lam_ne":  params.LAMNE,
		}).Info("degradation solve found no valid window")
	}

	pad := req.IncludePlotDomainPadding == nil || *req.IncludePlotDomainPadding
	xPlot := ocv.BuildPlotAxis(pr.XGrid, deg, pad)
	mapped := ocv.MapCurvesToPlotAxis(pr, deg, xPlot)

	bundle := func(cv ocv.Curve) api.CurveBundle {
		return api.CurveBundle{X: api.Floats(xPlot), Ocv: api.Floats(cv.Ocv), MaskValid: cv.MaskValid}
	}

	resp := api.CurvesResponse{
		PristineID: profile.ID,
		Theta:      api.ThetaFromParams(params),
		XAxis: api.AxisInfo{
			Kind: "pristine_normalized_capacity_units",
			Note: "all curves share the pristine capacity axis; the range may extend beyond [0,1]",
		},
		Pristine: api.CurveSet{
			Cell: bundle(mapped.PristineCell),
			PE:   bundle(mapped.PristinePE),
			NE:   bundle(mapped.PristineNE),
		},
		Degraded: api.DegradedSection{Valid: false},
	}

	if degOK && mapped.Degraded != nil {
		theta := api.ThetaFromParams(deg.Params)
		cell := bundle(mapped.Degraded.Cell)
		pe := bundle(mapped.Degraded.PE)
		ne := bundle(mapped.Degraded.NE)
		resp.Degraded = api.DegradedSection{
			Valid:   true,
			Theta:   &theta,
			Results: windowResults(deg),
			Cell:    &cell,
			PE:      &pe,
			NE:      &ne,
		}
	}

	c.JSON(http.StatusOK, resp)
}

func windowResults(d *ocv.DegradedCurve) *api.WindowResults {
	return &api.WindowResults{
		DeltaXEoc:    d.DeltaEoc,
		DeltaXEod:    d.DeltaEod,
		XCellEoc:     d.XCellEoc,
		XCellEod:     d.XCellEod,
		CellCapacity: d.CellCapacity,
		Endpoints: api.WindowEndpoints{
			XPeEoc: d.XPeEoc,
			XPeEod: d.XPeEod,
			XNeEoc: d.XNeEoc,
			XNeEod: d.XNeEod,
		},
	}
}

func (s *server) postEstimate(c *gin.Context) {
	var req api.EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}

	profile, ok := s.lookupProfile(c, req.PristineID)
	if !ok {
		return
	}
	n, ok := s.numPoints(c, req.NumPoints, profile)
	if !ok {
		return
	}

	opt := ocv.EstimateOptions{
		NumPoints:     n,
		NumStarts:     req.NumStarts,
		Seed:          req.Seed,
		GradientLimit: req.GradientLimit,
		MaxIter:       req.MaxIter,
	}
	if opt.NumStarts == 0 {
		opt.NumStarts = s.cfg.Defaults.NumStarts
	}
	if opt.GradientLimit == 0 {
		opt.GradientLimit = s.cfg.Defaults.GradientLimit
	}
	if opt.MaxIter == 0 {
		opt.MaxIter = s.cfg.Defaults.MaxIter
	}
	if opt.NumStarts < 1 || opt.NumStarts > 5000 {
		abortError(c, http.StatusBadRequest, errors.Errorf("num_starts must be in [1, 5000], got %d", opt.NumStarts))
		return
	}
	if opt.GradientLimit <= 0 {
		abortError(c, http.StatusBadRequest, errors.Errorf("gradient_limit must be positive, got %g", opt.GradientLimit))
		return
	}
	if opt.MaxIter < 10 || opt.MaxIter > 20000 {
		abortError(c, http.StatusBadRequest, errors.Errorf("maxiter must be in [10, 20000], got %d", opt.MaxIter))
		return
	}

	series, echo, ok := s.loadMeasured(c, &req)
	if !ok {
		return
	}

	pr, err := s.cat.BuildPristine(profile, n)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}

	est, reason := ocv.EstimateDiagnostics(pr, series, opt)
	if est == nil {
		c.JSON(http.StatusOK, api.EstimateResponse{
			Valid:      false,
			Reason:     reason,
			PristineID: profile.ID,
			Measured:   echo,
		})
		return
	}

	echo.MaskFlat = est.MaskFlat
	theta := api.ThetaFromParams(est.Params)
	rmse := est.RmseV
	numFlat := 0
	for _, f := range est.MaskFlat {
		if f {
			numFlat++
		}
	}

	resp := api.EstimateResponse{
		Valid:      true,
		PristineID: profile.ID,
		Theta:      &theta,
		RmseV:      &rmse,
		Measured:   echo,
		Predicted: &api.CurveBundle{
			X:         api.Floats(series.Capacity),
			Ocv:       api.Floats(est.PredictedOcv),
			MaskValid: est.MaskFlat,
		},
		Debug: &api.EstimateDebug{
			StartsTried:     est.StartsTried,
			StartsSucceeded: est.StartsSucceeded,
			NumFlat:         numFlat,
		},
	}
	resp.PredictedPristine = predictedOnPristineGrid(pr, est.Params, n)

	c.JSON(http.StatusOK, resp)
}

// predictedOnPristineGrid re-evaluates the best-fit degraded curve on the
// pristine capacity grid, masked to the degraded window.
func predictedOnPristineGrid(pr *ocv.PristineCell, p ocv.Parameters, numPoints int) *api.CurveBundle {
	deg, ok := ocv.SolveDegraded(pr, p, numPoints)
	if !ok {
		return nil
	}

	b := api.CurveBundle{
		X:         api.Floats(pr.XGrid),
		Ocv:       make(api.Floats, len(pr.XGrid)),
		MaskValid: make([]bool, len(pr.XGrid)),
	}
	for i, x := range pr.XGrid {
		if x < deg.XCellEoc || x > deg.XCellEod {
			b.Ocv[i] = math.NaN()
			continue
		}
		b.MaskValid[i] = true
		b.Ocv[i] = ocv.Interpolate(deg.CapacityNorm, deg.OcvCell, x)
	}
	return &b
}

func (s *server) loadMeasured(c *gin.Context, req *api.EstimateRequest) (measure.Series, *api.MeasuredEcho, bool) {
	switch {
	case req.Measured != nil && req.ExternalPath != "":
		abortError(c, http.StatusBadRequest, errors.New("provide either measured or external_path, not both"))
		return measure.Series{}, nil, false

	case req.Measured != nil:
		series, err := measure.NewSeries(req.Measured.Capacity, req.Measured.Ocv)
		if err != nil {
			abortError(c, http.StatusBadRequest, err)
			return measure.Series{}, nil, false
		}
		return series, &api.MeasuredEcho{
			Kind:     "inline",
			Capacity: api.Floats(series.Capacity),
			Ocv:      api.Floats(series.Ocv),
		}, true

	case req.ExternalPath != "":
		path, err := resolveDataPath(s.cfg.DataRoot, req.ExternalPath)
		if err != nil {
			abortError(c, http.StatusBadRequest, err)
			return measure.Series{}, nil, false
		}
		series, err := measure.ReadParquet(path)
		if err != nil {
			abortError(c, http.StatusBadRequest, err)
			return measure.Series{}, nil, false
		}
		return series, &api.MeasuredEcho{
			Kind:     "parquet",
			Path:     req.ExternalPath,
			Capacity: api.Floats(series.Capacity),
			Ocv:      api.Floats(series.Ocv),
		}, true

	default:
		abortError(c, http.StatusBadRequest, errors.New("provide either measured or external_path"))
		return measure.Series{}, nil, false
	}
}

// resolveDataPath confines a client-supplied relative path to the data
// root.
func resolveDataPath(root, p string) (string, error) {
	if filepath.IsAbs(p) {
		return "", errors.Errorf("external_path must be relative to the data root, got %q", p)
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	full := filepath.Join(rootAbs, filepath.Clean(p))
	if full != rootAbs && !strings.HasPrefix(full, rootAbs+string(filepath.Separator)) {
		return "", errors.Errorf("external_path %q escapes the data root", p)
	}
	return full, nil
}

func (s *server) postPoolSave(c *gin.Context) {
	var req api.PoolSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}

	if _, ok := s.lookupProfile(c, req.PristineID); !ok {
		return
	}

	rec, err := s.store.Save(pool.Record{
		Label:      req.Label,
		PristineID: req.PristineID,
		Degradation: ocv.Parameters{
			LLI:   req.LLI,
			LAMPE: req.LAMPE,
			LAMNE: req.LAMNE,
		},
		Solver: req.Solver,
	})
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}

	logrus.Infof("saved pool record %s for profile %s", rec.ID, rec.PristineID)
	c.JSON(http.StatusCreated, api.PoolSaveResponse{OK: true, ID: rec.ID})
}

func (s *server) getPoolList(c *gin.Context) {
	items, err := s.store.List()
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, api.PoolListResponse{Items: items})
}

func (s *server) postPoolLoad(c *gin.Context) {
	var req api.PoolLoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}

	rec, err := s.store.Load(req.ID)
	if errors.Is(err, pool.ErrNotFound) {
		abortError(c, http.StatusNotFound, fmt.Errorf("no pool record: %s", req.ID))
		return
	}
	if err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
