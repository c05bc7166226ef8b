package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/MikeSquared-Agency/Pathfinder/internal/features"
)

func TestGenerate_Deterministic(t *testing.T) {
	a, err := Generate(500, 42)
	require.NoError(t, err)
	b, err := Generate(500, 42)
	require.NoError(t, err)

	assert.True(t, mat.Equal(a.X, b.X))
	assert.Equal(t, a.Readiness, b.Readiness)
	assert.Equal(t, a.APR, b.APR)
	assert.Equal(t, a.Approved, b.Approved)

	c, err := Generate(500, 7)
	require.NoError(t, err)
	assert.False(t, mat.Equal(a.X, c.X), "different seeds should differ")
}

func TestGenerate_Bounds(t *testing.T) {
	ds, err := Generate(DefaultSamples, DefaultSeed)
	require.NoError(t, err)
	require.Equal(t, DefaultSamples, ds.Len())
	assert.Equal(t, features.Names, ds.Features)

	bounds := map[string][2]float64{
		features.MonthlyIncome:      {18000, 250000},
		features.MonthlyDebtPayment: {500, 90000},
		features.CreditUtilization:  {5, 95},
		features.SavingsBalance:     {0, 1000000},
		features.EmploymentYears:    {0.5, 20},
		features.ExistingLoans:      {0, 5},
		features.CreditHistoryYears: {0.5, 25},
		features.DesiredLoanAmount:  {25000, 1500000},
	}
	for j, name := range ds.Features {
		col := mat.Col(nil, j, ds.X)
		for _, v := range col {
			require.GreaterOrEqual(t, v, bounds[name][0], name)
			require.LessOrEqual(t, v, bounds[name][1], name)
		}
	}
	for _, v := range mat.Col(nil, 5, ds.X) {
		assert.Equal(t, float64(int(v)), v, "existing loans are whole numbers")
	}

	for i := 0; i < ds.Len(); i++ {
		assert.GreaterOrEqual(t, ds.Readiness[i], 300.0)
		assert.LessOrEqual(t, ds.Readiness[i], 900.0)
		assert.GreaterOrEqual(t, ds.APR[i], 6.5)
		assert.LessOrEqual(t, ds.APR[i], 30.0)
		assert.Equal(t, ds.Readiness[i] > ApprovalThreshold, ds.Approved[i] == 1)
	}
}

func TestGenerate_Distributions(t *testing.T) {
	ds, err := Generate(DefaultSamples, DefaultSeed)
	require.NoError(t, err)

	income := mat.Col(nil, 0, ds.X)
	assert.InDelta(t, 70000, stat.Mean(income, nil), 2000)
	util := mat.Col(nil, 2, ds.X)
	assert.InDelta(t, 50, stat.Mean(util, nil), 2)

	approved := stat.Mean(ds.Approved, nil)
	assert.Greater(t, approved, 0.05)
	assert.Less(t, approved, 0.95)
}

func TestGenerate_RejectsEmpty(t *testing.T) {
	_, err := Generate(0, 42)
	assert.Error(t, err)
}

func TestApplicantFormulas(t *testing.T) {
	a := Applicant{
		MonthlyIncome:      90000,
		MonthlyDebtPayment: 12000,
		CreditUtilization:  30,
		SavingsBalance:     200000,
		EmploymentYears:    5,
		ExistingLoans:      1,
		CreditHistoryYears: 8,
		DesiredLoanAmount:  300000,
	}
	dti := 12000.0 / 90000.0
	want := 740 + 60 - dti*300 - 63 + 200000.0/12000 + 22.5 - 12 + 19.2 - 10
	assert.InDelta(t, want, a.ReadinessRaw(), 1e-9)
	assert.InDelta(t, 21-(700.0-300)/65+dti*7+0.5+(300000.0/90000)*0.06, a.APRRaw(700), 1e-9)

	more := a
	more.SavingsBalance += 120000
	assert.InDelta(t, 10, more.ReadinessRaw()-a.ReadinessRaw(), 1e-9)
}

func TestRow(t *testing.T) {
	ds, err := Generate(3, 1)
	require.NoError(t, err)
	p := ds.Row(2)
	assert.Equal(t, ds.X.At(2, 3), p[features.SavingsBalance])
	assert.Len(t, p, 8)
}
