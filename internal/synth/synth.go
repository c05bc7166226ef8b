// Package synth generates the labelled applicant dataset the models are
// trained on. The formulas are a fixed stand-in for historical underwriting
// data and are the single source of truth for what the models should learn.
package synth

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/MikeSquared-Agency/Pathfinder/internal/features"
)

const (
	DefaultSamples = 5000
	DefaultSeed    = 42

	readinessNoiseSD = 25.0
	aprNoiseSD       = 0.7

	ApprovalThreshold = 620.0
)

var (
	ReadinessRange = [2]float64{300, 900}
	APRRange       = [2]float64{6.5, 30}
)

// Dataset is a generated sample set. X columns follow features.Names.
type Dataset struct {
	Features  []string
	X         *mat.Dense
	Readiness []float64
	APR       []float64
	Approved  []float64
}

func (d *Dataset) Len() int {
	return len(d.Readiness)
}

// Row returns sample i as a Profile.
func (d *Dataset) Row(i int) features.Profile {
	p := make(features.Profile, len(d.Features))
	for j, n := range d.Features {
		p[n] = d.X.At(i, j)
	}
	return p
}

// NewSource returns the seeded random source shared by generation and the
// train/test split.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// Generate draws n samples from a generator seeded with seed. Output is fully
// determined by (n, seed).
func Generate(n int, seed uint64) (*Dataset, error) {
	if n <= 0 {
		return nil, fmt.Errorf("sample count must be positive, got %d", n)
	}
	src := NewSource(seed)
	rng := rand.New(src)

	normal := func(mu, sigma, lo, hi float64) []float64 {
		d := distuv.Normal{Mu: mu, Sigma: sigma, Src: src}
		out := make([]float64, n)
		for i := range out {
			out[i] = clip(d.Rand(), lo, hi)
		}
		return out
	}
	uniform := func(lo, hi float64) []float64 {
		d := distuv.Uniform{Min: lo, Max: hi, Src: src}
		out := make([]float64, n)
		for i := range out {
			out[i] = d.Rand()
		}
		return out
	}

	// Draw order is part of the reproducibility contract.
	income := normal(70000, 25000, 18000, 250000)
	debt := normal(15000, 9000, 500, 90000)
	util := uniform(5, 95)
	savings := normal(180000, 120000, 0, 1000000)
	employment := uniform(0.5, 20)
	loans := make([]float64, n)
	for i := range loans {
		loans[i] = float64(rng.IntN(6))
	}
	history := uniform(0.5, 25)
	desired := normal(350000, 180000, 25000, 1500000)
	readinessNoise := normal(0, readinessNoiseSD, math.Inf(-1), math.Inf(1))
	aprNoise := normal(0, aprNoiseSD, math.Inf(-1), math.Inf(1))

	ds := &Dataset{
		Features:  append([]string(nil), features.Names...),
		X:         mat.NewDense(n, len(features.Names), nil),
		Readiness: make([]float64, n),
		APR:       make([]float64, n),
		Approved:  make([]float64, n),
	}
	cols := [][]float64{income, debt, util, savings, employment, loans, history, desired}
	for j, col := range cols {
		ds.X.SetCol(j, col)
	}

	for i := 0; i < n; i++ {
		a := Applicant{
			MonthlyIncome:      income[i],
			MonthlyDebtPayment: debt[i],
			CreditUtilization:  util[i],
			SavingsBalance:     savings[i],
			EmploymentYears:    employment[i],
			ExistingLoans:      loans[i],
			CreditHistoryYears: history[i],
			DesiredLoanAmount:  desired[i],
		}
		lrs := clip(a.ReadinessRaw()+readinessNoise[i], ReadinessRange[0], ReadinessRange[1])
		ds.Readiness[i] = lrs
		ds.APR[i] = clip(a.APRRaw(lrs)+aprNoise[i], APRRange[0], APRRange[1])
		if lrs > ApprovalThreshold {
			ds.Approved[i] = 1
		}
	}
	return ds, nil
}

// Applicant holds one draw of the eight attributes.
type Applicant struct {
	MonthlyIncome      float64
	MonthlyDebtPayment float64
	CreditUtilization  float64
	SavingsBalance     float64
	EmploymentYears    float64
	ExistingLoans      float64
	CreditHistoryYears float64
	DesiredLoanAmount  float64
}

// DTI is the debt-to-income ratio.
func (a Applicant) DTI() float64 {
	return a.MonthlyDebtPayment / a.MonthlyIncome
}

// ReadinessRaw is the noiseless, unclipped readiness formula.
func (a Applicant) ReadinessRaw() float64 {
	return 740 +
		a.MonthlyIncome/1500 -
		a.DTI()*300 -
		a.CreditUtilization*2.1 +
		a.SavingsBalance/12000 +
		a.EmploymentYears*4.5 -
		a.ExistingLoans*12 +
		a.CreditHistoryYears*2.4 -
		a.DesiredLoanAmount/30000
}

// APRRaw is the noiseless, unclipped APR formula given a clipped readiness.
func (a Applicant) APRRaw(lrs float64) float64 {
	return 21 -
		(lrs-300)/65 +
		a.DTI()*7 +
		a.ExistingLoans*0.5 +
		(a.DesiredLoanAmount/a.MonthlyIncome)*0.06
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
