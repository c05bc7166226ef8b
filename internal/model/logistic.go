package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LogisticOptions controls the L2-penalised logistic fit. C is the inverse
// regularisation strength applied to the weights (the bias is not penalised).
type LogisticOptions struct {
	C       float64
	MaxIter int
	Tol     float64
}

func DefaultLogisticOptions() LogisticOptions {
	return LogisticOptions{C: 1.0, MaxIter: 1000, Tol: 1e-6}
}

// LogisticFit reports how the Newton iterations ended.
type LogisticFit struct {
	Iterations int
	Converged  bool
}

// FitLogisticRegression fits a binary classifier on standardized inputs by
// Newton-IRLS with step halving. Labels must be 0 or 1. A fit that stops
// before converging still returns the best weights found.
func FitLogisticRegression(z mat.Matrix, y []float64, active []int, opts LogisticOptions) (*LinearModel, LogisticFit, error) {
	rows, cols := z.Dims()
	if rows != len(y) {
		return nil, LogisticFit{}, fmt.Errorf("logistic regression: %d rows but %d labels", rows, len(y))
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return nil, LogisticFit{}, fmt.Errorf("logistic regression: label %d is %v, want 0 or 1", i, v)
		}
	}
	if opts.C <= 0 {
		opts.C = 1
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = 100
	}
	if opts.Tol <= 0 {
		opts.Tol = 1e-6
	}

	x := designMatrix(z, active)
	p := len(active) + 1
	theta := make([]float64, p)
	loss := logisticLoss(x, y, theta, opts.C)

	var fit LogisticFit
	grad := make([]float64, p)
	for fit.Iterations < opts.MaxIter {
		fit.Iterations++

		mu := sigmoidAll(x, theta)
		hess := mat.NewSymDense(p, nil)
		for k := range grad {
			grad[k] = 0
		}
		row := make([]float64, p)
		for i := 0; i < rows; i++ {
			mat.Row(row, i, x)
			r := opts.C * (mu[i] - y[i])
			s := opts.C * mu[i] * (1 - mu[i])
			for a := 0; a < p; a++ {
				grad[a] += r * row[a]
				for b := a; b < p; b++ {
					hess.SetSym(a, b, hess.At(a, b)+s*row[a]*row[b])
				}
			}
		}
		for a := 1; a < p; a++ {
			grad[a] += theta[a]
			hess.SetSym(a, a, hess.At(a, a)+1)
		}
		if floats.Norm(grad, math.Inf(1)) < opts.Tol {
			fit.Converged = true
			break
		}

		var step mat.VecDense
		if err := step.SolveVec(hess, mat.NewVecDense(p, grad)); err != nil {
			// Singular curvature (e.g. a single-class label set): keep the
			// current estimate rather than diverge.
			break
		}

		t := 1.0
		improved := false
		next := make([]float64, p)
		for h := 0; h < 40; h++ {
			for k := range next {
				next[k] = theta[k] - t*step.AtVec(k)
			}
			nl := logisticLoss(x, y, next, opts.C)
			if nl <= loss {
				theta, loss, improved = next, nl, true
				break
			}
			t /= 2
		}
		if !improved {
			fit.Converged = floats.Norm(grad, math.Inf(1)) < math.Sqrt(opts.Tol)
			break
		}
	}

	m := &LinearModel{Weights: make([]float64, cols), Bias: theta[0]}
	for k, j := range active {
		m.Weights[j] = theta[k+1]
	}
	return m, fit, nil
}

func logisticLoss(x *mat.Dense, y, theta []float64, c float64) float64 {
	rows, _ := x.Dims()
	var loss float64
	for i := 0; i < rows; i++ {
		eta := floats.Dot(x.RawRowView(i), theta)
		loss += softplus(eta) - y[i]*eta
	}
	loss *= c
	for _, w := range theta[1:] {
		loss += 0.5 * w * w
	}
	return loss
}

func sigmoidAll(x *mat.Dense, theta []float64) []float64 {
	rows, _ := x.Dims()
	mu := make([]float64, rows)
	for i := range mu {
		mu[i] = Sigmoid(floats.Dot(x.RawRowView(i), theta))
	}
	return mu
}

// Sigmoid is the logistic function, stable for large |v|.
func Sigmoid(v float64) float64 {
	if v >= 0 {
		return 1 / (1 + math.Exp(-v))
	}
	e := math.Exp(v)
	return e / (1 + e)
}

func softplus(v float64) float64 {
	if v > 0 {
		return v + math.Log1p(math.Exp(-v))
	}
	return math.Log1p(math.Exp(v))
}
