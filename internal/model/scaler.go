package model

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
)

// StandardScaler standardizes each feature to zero mean and unit variance
// using statistics fixed at fit time. A Scale of 0 marks a zero-variance
// column, whose standardized value is always 0.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitStandardScaler learns per-column population mean and standard deviation.
func FitStandardScaler(x mat.Matrix) *StandardScaler {
	_, cols := x.Dims()
	s := &StandardScaler{
		Mean:  make([]float64, cols),
		Scale: make([]float64, cols),
	}
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		if !(std > 1e-12*math.Max(1, math.Abs(mean))) {
			std = 0
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s
}

func (s *StandardScaler) Width() int {
	return len(s.Mean)
}

// Transform standardizes a single vector.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, apperr.Integrity("scaler expects %d features, got %d", len(s.Mean), len(x))
	}
	z := make([]float64, len(x))
	for i, v := range x {
		if s.Scale[i] == 0 {
			continue
		}
		z[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return z, nil
}

// TransformMatrix standardizes every row of x.
func (s *StandardScaler) TransformMatrix(x mat.Matrix) *mat.Dense {
	rows, cols := x.Dims()
	z := mat.NewDense(rows, cols, nil)
	z.Apply(func(_, j int, v float64) float64 {
		if s.Scale[j] == 0 {
			return 0
		}
		return (v - s.Mean[j]) / s.Scale[j]
	}, x)
	return z
}

// Active returns the indices of columns with non-zero variance.
func (s *StandardScaler) Active() []int {
	idx := make([]int, 0, len(s.Scale))
	for j, sc := range s.Scale {
		if sc != 0 {
			idx = append(idx, j)
		}
	}
	return idx
}
