package main

import (
	"image/color"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/battkit/ocvd/pkg/api"
)

// renderCurvesPNG draws the pristine and degraded cell curves from a
// forward-model response. NaN points split a curve into separate line
// segments so masked regions leave visible gaps.
func renderCurvesPNG(resp api.CurvesResponse, path string) error {
	p := plot.New()
	p.Title.Text = resp.PristineID
	p.X.Label.Text = "normalized capacity"
	p.Y.Label.Text = "OCV (V)"
	p.Legend.Top = true

	type plotSeries struct {
		name  string
		b     *api.CurveBundle
		color color.RGBA
		dash  []vg.Length
	}
	series := []plotSeries{
		{"pristine cell", &resp.Pristine.Cell, color.RGBA{B: 255, A: 255}, nil},
		{"pristine pe", &resp.Pristine.PE, color.RGBA{B: 160, A: 255}, []vg.Length{vg.Points(3)}},
		{"pristine ne", &resp.Pristine.NE, color.RGBA{B: 80, A: 255}, []vg.Length{vg.Points(1)}},
	}
	if resp.Degraded.Valid {
		series = append(series,
			plotSeries{"degraded cell", resp.Degraded.Cell, color.RGBA{R: 255, A: 255}, nil},
			plotSeries{"degraded pe", resp.Degraded.PE, color.RGBA{R: 160, A: 255}, []vg.Length{vg.Points(3)}},
			plotSeries{"degraded ne", resp.Degraded.NE, color.RGBA{R: 80, A: 255}, []vg.Length{vg.Points(1)}},
		)
	}

	for _, s := range series {
		if s.b == nil {
			continue
		}
		first := true
		for _, seg := range splitSegments(s.b.X, s.b.Ocv) {
			line, err := plotter.NewLine(seg)
			if err != nil {
				return errors.Wrapf(err, "building line for %s", s.name)
			}
			line.Color = s.color
			line.Dashes = s.dash
			p.Add(line)
			if first {
				p.Legend.Add(s.name, line)
				first = false
			}
		}
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving plot %q", path)
	}
	return nil
}

// splitSegments breaks (x, y) into runs of finite points.
func splitSegments(xs, ys []float64) []plotter.XYs {
	var (
		segs []plotter.XYs
		cur  plotter.XYs
	)
	flush := func() {
		if len(cur) > 1 {
			segs = append(segs, cur)
		}
		cur = nil
	}
	for i := range xs {
		if i >= len(ys) {
			break
		}
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) ||
			math.IsInf(xs[i], 0) || math.IsInf(ys[i], 0) {
			flush()
			continue
		}
		cur = append(cur, plotter.XY{X: xs[i], Y: ys[i]})
	}
	flush()
	return segs
}
