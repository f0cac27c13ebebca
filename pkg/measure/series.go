// Package measure loads and cleans measured OCV/capacity traces, either
// from inline request payloads or from external parquet files.
package measure

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Series is a cleaned measured OCV trace: finite pairs only, sorted by
// capacity, duplicate capacities merged, at least 3 points.
type Series struct {
	Capacity []float64
	Ocv      []float64
}

// NewSeries cleans a raw capacity/OCV pair list into a Series. Non-finite
// pairs are dropped; duplicate capacity values are merged by averaging
// their OCV. Fewer than 3 surviving points is a data error.
func NewSeries(capacity, ocv []float64) (Series, error) {
	if len(capacity) != len(ocv) {
		return Series{}, errors.Errorf("capacity and ocv must have the same length, got %d and %d", len(capacity), len(ocv))
	}

	type pt struct{ c, v float64 }
	pts := make([]pt, 0, len(capacity))
	for i := range capacity {
		if finite(capacity[i]) && finite(ocv[i]) {
			pts = append(pts, pt{capacity[i], ocv[i]})
		}
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].c < pts[j].c })

	s := Series{
		Capacity: make([]float64, 0, len(pts)),
		Ocv:      make([]float64, 0, len(pts)),
	}
	for i := 0; i < len(pts); {
		j := i
		sum := 0.0
		for j < len(pts) && pts[j].c == pts[i].c {
			sum += pts[j].v
			j++
		}
		s.Capacity = append(s.Capacity, pts[i].c)
		s.Ocv = append(s.Ocv, sum/float64(j-i))
		i = j
	}

	if len(s.Capacity) < 3 {
		return Series{}, errors.Errorf("measured series needs at least 3 finite points, got %d", len(s.Capacity))
	}
	return s, nil
}

// Len returns the number of measured points.
func (s Series) Len() int { return len(s.Capacity) }

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
