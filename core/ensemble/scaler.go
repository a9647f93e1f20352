package ensemble

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler normalises columns to zero mean and unit variance using the
// population standard deviation. Constant columns keep a scale of 1.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitStandardScaler computes column statistics over the rows of X.
func FitStandardScaler(X [][]float64) (*StandardScaler, error) {
	if _, err := checkData(X, make([]float64, len(X))); err != nil {
		return nil, err
	}
	m := toDense(X)
	_, cols := m.Dims()
	s := &StandardScaler{Mean: make([]float64, cols), Scale: make([]float64, cols)}
	col := make([]float64, len(X))
	for j := 0; j < cols; j++ {
		mat.Col(col, j, m)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j], s.Scale[j] = mean, std
	}
	return s, nil
}

// TransformRow returns a scaled copy of row.
func (s *StandardScaler) TransformRow(row []float64) ([]float64, error) {
	if len(row) != len(s.Mean) {
		return nil, fmt.Errorf("%w: scaler expects %d features, got %d", ErrDimension, len(s.Mean), len(row))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// Transform returns scaled copies of all rows.
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		r, err := s.TransformRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

func toDense(X [][]float64) *mat.Dense {
	m := mat.NewDense(len(X), len(X[0]), nil)
	for i, row := range X {
		m.SetRow(i, row)
	}
	return m
}
