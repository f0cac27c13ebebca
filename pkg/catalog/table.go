package catalog

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// readTable parses a two-column (lithiation fraction, OCV) CSV table.
// A single leading header row is tolerated; any other non-numeric row is a
// data error. Table cleaning (sorting, dedup, finiteness) happens in the
// half-cell model, not here.
func readTable(path string) ([]float64, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening table %q", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "parsing table %q", path)
	}

	var sol, ocv []float64
	for i, row := range rows {
		if len(row) < 2 {
			return nil, nil, errors.Errorf("table %q row %d: need 2 columns (lithiation, ocv), got %d", path, i+1, len(row))
		}
		s, errS := strconv.ParseFloat(row[0], 64)
		v, errV := strconv.ParseFloat(row[1], 64)
		if errS != nil || errV != nil {
			if i == 0 {
				// Header row.
				continue
			}
			return nil, nil, errors.Errorf("table %q row %d: non-numeric values %q, %q", path, i+1, row[0], row[1])
		}
		sol = append(sol, s)
		ocv = append(ocv, v)
	}

	if len(sol) == 0 {
		return nil, nil, errors.Errorf("table %q contains no numeric rows", path)
	}
	return sol, ocv, nil
}
