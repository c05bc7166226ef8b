// Package model implements the two-stage pipelines (standardize, then a
// linear model) behind the readiness, APR and approval scores.
package model

import (
	"math"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
)

// Transformer maps a raw feature vector into model space.
type Transformer interface {
	Transform(x []float64) ([]float64, error)
}

// Regressor produces a continuous value from a raw feature vector.
type Regressor interface {
	Predict(x []float64) (float64, error)
}

// Classifier produces [negative, positive] class probabilities.
type Classifier interface {
	PredictProbability(x []float64) ([2]float64, error)
}

type Kind string

const (
	KindRegression     Kind = "regression"
	KindClassification Kind = "classification"
)

// Range is the domain-valid output interval of a pipeline.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) Clamp(v float64) float64 {
	return math.Max(r.Min, math.Min(r.Max, v))
}

// Pipeline composes a StandardScaler with a LinearModel. It is created once
// by training and treated as immutable afterwards.
type Pipeline struct {
	Name   string          `json:"name"`
	Kind   Kind            `json:"kind"`
	Scaler *StandardScaler `json:"scaler"`
	Model  *LinearModel    `json:"model"`
	Range  Range           `json:"range"`
}

// Validate checks the pipeline is internally consistent and, when width > 0,
// that it accepts exactly width features.
func (p *Pipeline) Validate(width int) error {
	if p == nil {
		return apperr.Integrity("pipeline missing")
	}
	if p.Kind != KindRegression && p.Kind != KindClassification {
		return apperr.Integrity("pipeline %q has unknown kind %q", p.Name, p.Kind)
	}
	if p.Scaler == nil || p.Model == nil {
		return apperr.Integrity("pipeline %q is missing a stage", p.Name)
	}
	if len(p.Scaler.Mean) != len(p.Scaler.Scale) {
		return apperr.Integrity("pipeline %q scaler has %d means but %d scales", p.Name, len(p.Scaler.Mean), len(p.Scaler.Scale))
	}
	if p.Scaler.Width() != p.Model.Width() {
		return apperr.Integrity("pipeline %q scaler width %d != model width %d", p.Name, p.Scaler.Width(), p.Model.Width())
	}
	if width > 0 && p.Model.Width() != width {
		return apperr.Integrity("pipeline %q expects %d features, feature list has %d", p.Name, p.Model.Width(), width)
	}
	if !(p.Range.Min <= p.Range.Max) {
		return apperr.Integrity("pipeline %q has an empty output range", p.Name)
	}
	for _, vs := range [][]float64{{p.Model.Bias}, p.Model.Weights, p.Scaler.Mean, p.Scaler.Scale} {
		for _, v := range vs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return apperr.Integrity("pipeline %q has non-finite parameters", p.Name)
			}
		}
	}
	return nil
}

func (p *Pipeline) Width() int {
	return p.Model.Width()
}

func (p *Pipeline) Transform(x []float64) ([]float64, error) {
	return p.Scaler.Transform(x)
}

// Decision returns the raw linear output w·standardize(x) + b.
func (p *Pipeline) Decision(x []float64) (float64, error) {
	z, err := p.Scaler.Transform(x)
	if err != nil {
		return 0, err
	}
	return p.Model.Decision(z)
}

// Predict returns the regression value, or the predicted class (0 or 1)
// for a classifier.
func (p *Pipeline) Predict(x []float64) (float64, error) {
	d, err := p.Decision(x)
	if err != nil {
		return 0, err
	}
	if p.Kind == KindClassification {
		if Sigmoid(d) > 0.5 {
			return 1, nil
		}
		return 0, nil
	}
	return d, nil
}

func (p *Pipeline) PredictProbability(x []float64) ([2]float64, error) {
	if p.Kind != KindClassification {
		return [2]float64{}, apperr.Integrity("pipeline %q is not a classifier", p.Name)
	}
	d, err := p.Decision(x)
	if err != nil {
		return [2]float64{}, err
	}
	pos := Sigmoid(d)
	return [2]float64{1 - pos, pos}, nil
}

// Output is the pipeline's domain value: the clamped regression value, or the
// positive-class probability as a percentage for a classifier.
func (p *Pipeline) Output(x []float64) (float64, error) {
	if p.Kind == KindClassification {
		proba, err := p.PredictProbability(x)
		if err != nil {
			return 0, err
		}
		return p.Range.Clamp(proba[1] * 100), nil
	}
	v, err := p.Predict(x)
	if err != nil {
		return 0, err
	}
	return p.Range.Clamp(v), nil
}
