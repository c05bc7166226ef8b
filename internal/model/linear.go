package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
)

// LinearModel is a weight vector plus bias over standardized inputs.
type LinearModel struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

func (m *LinearModel) Width() int {
	return len(m.Weights)
}

// Decision returns w·z + b.
func (m *LinearModel) Decision(z []float64) (float64, error) {
	if len(z) != len(m.Weights) {
		return 0, apperr.Integrity("model expects %d features, got %d", len(m.Weights), len(z))
	}
	return mat.Dot(mat.NewVecDense(len(z), z), mat.NewVecDense(len(m.Weights), m.Weights)) + m.Bias, nil
}

// FitLinearRegression fits ordinary least squares on standardized inputs z.
// Only the active columns are fitted; the rest have zero variance and get
// weight 0.
func FitLinearRegression(z mat.Matrix, y []float64, active []int) (*LinearModel, error) {
	rows, cols := z.Dims()
	if rows != len(y) {
		return nil, fmt.Errorf("linear regression: %d rows but %d targets", rows, len(y))
	}
	m := &LinearModel{Weights: make([]float64, cols)}
	if len(active) == 0 {
		m.Bias = stat.Mean(y, nil)
		return m, nil
	}

	design := designMatrix(z, active)
	var beta mat.VecDense
	if err := beta.SolveVec(design, mat.NewVecDense(rows, y)); err != nil {
		return nil, fmt.Errorf("linear regression: solve: %w", err)
	}
	m.Bias = beta.AtVec(0)
	for k, j := range active {
		m.Weights[j] = beta.AtVec(k + 1)
	}
	return m, nil
}

// designMatrix returns [1 | z[:, active]].
func designMatrix(z mat.Matrix, active []int) *mat.Dense {
	rows, _ := z.Dims()
	d := mat.NewDense(rows, len(active)+1, nil)
	for i := 0; i < rows; i++ {
		d.Set(i, 0, 1)
		for k, j := range active {
			d.Set(i, k+1, z.At(i, j))
		}
	}
	return d
}
