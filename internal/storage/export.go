package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/san-kum/lyapsim/internal/lyapunov"
)

var csvHeader = []string{"t", "d", "ln_d", "lambda_running"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes one row per sample. lambda_running is empty until the
// first renormalization.
func WriteCSV(w io.Writer, series lyapunov.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for i := 0; i < series.Len(); i++ {
		s := series.At(i)
		lam := ""
		if s.HasRunningLambda() {
			lam = formatFloat(s.RunningLambda)
		}
		row := []string{formatFloat(s.T), formatFloat(s.Distance), formatFloat(s.LnDistance), lam}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func ReadCSV(r io.Reader) (lyapunov.Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return lyapunov.Series{}, err
	}

	var series lyapunov.Series
	if len(records) < 2 {
		return series, nil
	}

	for i, record := range records[1:] {
		var vals [3]float64
		for j := range vals {
			vals[j], err = strconv.ParseFloat(record[j], 64)
			if err != nil {
				return lyapunov.Series{}, fmt.Errorf("row %d column %s: %w", i+1, csvHeader[j], err)
			}
		}
		lam := math.NaN()
		if record[3] != "" {
			lam, err = strconv.ParseFloat(record[3], 64)
			if err != nil {
				return lyapunov.Series{}, fmt.Errorf("row %d column lambda_running: %w", i+1, err)
			}
		}
		series.Append(lyapunov.Sample{T: vals[0], Distance: vals[1], LnDistance: vals[2], RunningLambda: lam})
	}
	return series, nil
}

// nullableFloats encodes NaN and infinities as null.
type nullableFloats []float64

func (f nullableFloats) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(f))
	for i := range f {
		if !math.IsNaN(f[i]) && !math.IsInf(f[i], 0) {
			out[i] = &f[i]
		}
	}
	return json.Marshal(out)
}

type ExportData struct {
	RunMetadata
	Times         []float64      `json:"times"`
	Distances     []float64      `json:"d"`
	LnDistances   []float64      `json:"ln_d"`
	RunningLambda nullableFloats `json:"running_lambda"`
}

func WriteJSON(w io.Writer, meta RunMetadata, series lyapunov.Series) error {
	data := ExportData{
		RunMetadata:   meta,
		Times:         nonNil(series.Times),
		Distances:     nonNil(series.Distances),
		LnDistances:   nonNil(series.LnDistances),
		RunningLambda: nonNil(series.RunningLambda),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func nonNil(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
