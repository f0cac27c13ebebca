package measure

import (
	"math"
	"path/filepath"
	"testing"
)

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.parquet")

	in := Series{
		Capacity: []float64{0, 0.1, 0.2, 0.3},
		Ocv:      []float64{3.6, 3.5, 3.4, 3.2},
	}
	if err := WriteParquet(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := ReadParquet(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Len() != in.Len() {
		t.Fatalf("got %d points, want %d", out.Len(), in.Len())
	}
	for i := range in.Capacity {
		if out.Capacity[i] != in.Capacity[i] || out.Ocv[i] != in.Ocv[i] {
			t.Errorf("point %d: got (%g, %g), want (%g, %g)", i, out.Capacity[i], out.Ocv[i], in.Capacity[i], in.Ocv[i])
		}
	}
}

func TestReadParquetCleansRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dirty.parquet")

	// Unsorted with a NaN row; ReadParquet must return a cleaned series.
	in := Series{
		Capacity: []float64{0.2, 0.0, math.NaN(), 0.1},
		Ocv:      []float64{3.4, 3.6, 1.0, 3.5},
	}
	if err := WriteParquet(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := ReadParquet(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Len() != 3 {
		t.Fatalf("got %d points, want 3", out.Len())
	}
	for i := 1; i < out.Len(); i++ {
		if out.Capacity[i] <= out.Capacity[i-1] {
			t.Fatal("capacities not sorted ascending")
		}
	}
}

func TestReadParquetMissingFile(t *testing.T) {
	if _, err := ReadParquet(filepath.Join(t.TempDir(), "absent.parquet")); err == nil {
		t.Error("expected error for a missing file")
	}
}
