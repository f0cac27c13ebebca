package measure

import (
	"github.com/pkg/errors"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

type parquetRecord struct {
	Capacity float64 `parquet:"name=capacity, type=DOUBLE"`
	Ocv      float64 `parquet:"name=ocv, type=DOUBLE"`
}

// ReadParquet loads a measured series from a parquet file carrying
// capacity/ocv DOUBLE columns and cleans it through NewSeries.
func ReadParquet(path string) (Series, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return Series{}, errors.Wrapf(err, "opening measurement file %q", path)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(parquetRecord), 1)
	if err != nil {
		return Series{}, errors.Wrapf(err, "reading parquet schema of %q", path)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	rows := make([]parquetRecord, num)
	if err := pr.Read(&rows); err != nil {
		return Series{}, errors.Wrapf(err, "reading %d rows from %q", num, path)
	}

	capacity := make([]float64, num)
	ocv := make([]float64, num)
	for i, r := range rows {
		capacity[i] = r.Capacity
		ocv[i] = r.Ocv
	}
	s, err := NewSeries(capacity, ocv)
	if err != nil {
		return Series{}, errors.Wrapf(err, "cleaning measurement file %q", path)
	}
	return s, nil
}

// WriteParquet stores a series as a parquet file with capacity/ocv columns.
func WriteParquet(path string, s Series) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return errors.Wrapf(err, "creating measurement file %q", path)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(parquetRecord), 1)
	if err != nil {
		return errors.Wrapf(err, "creating parquet writer for %q", path)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range s.Capacity {
		if err := pw.Write(parquetRecord{Capacity: s.Capacity[i], Ocv: s.Ocv[i]}); err != nil {
			return errors.Wrapf(err, "writing row %d to %q", i, path)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return errors.Wrapf(err, "finalizing %q", path)
	}
	return nil
}
