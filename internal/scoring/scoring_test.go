package scoring

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
	"github.com/MikeSquared-Agency/Pathfinder/internal/features"
	"github.com/MikeSquared-Agency/Pathfinder/internal/model"
	"github.com/MikeSquared-Agency/Pathfinder/internal/synth"
	"github.com/MikeSquared-Agency/Pathfinder/internal/training"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	trainOnce     sync.Once
	trainedBundle *model.Bundle
	trainErr      error
)

// trained returns the default-seed bundle, fitted once per test binary.
func trained(t *testing.T) *model.Bundle {
	t.Helper()
	trainOnce.Do(func() {
		trainedBundle, trainErr = training.NewTrainer(training.DefaultConfig(), discardLogger()).Train(context.Background())
	})
	require.NoError(t, trainErr)
	return trainedBundle
}

func trainedModels(t *testing.T) *Models {
	t.Helper()
	m, err := NewModels(trained(t))
	require.NoError(t, err)
	return m
}

var scenario = features.Profile{
	features.MonthlyIncome:      90000,
	features.MonthlyDebtPayment: 12000,
	features.CreditUtilization:  30,
	features.SavingsBalance:     200000,
	features.EmploymentYears:    5,
	features.ExistingLoans:      1,
	features.CreditHistoryYears: 8,
	features.DesiredLoanAmount:  300000,
}

func TestNewModels(t *testing.T) {
	b := trained(t)
	m, err := NewModels(b)
	require.NoError(t, err)
	assert.Equal(t, features.Names, m.Features())
	assert.Equal(t, b.Metrics, m.Metrics())
}

func TestNewModels_IntegrityFailures(t *testing.T) {
	base := trained(t)
	tests := []struct {
		name   string
		mutate func(b *model.Bundle)
	}{
		{"nil approval", func(b *model.Bundle) { b.Approval = nil }},
		{"short feature list", func(b *model.Bundle) { b.Features = b.Features[:7] }},
		{"duplicate feature", func(b *model.Bundle) {
			b.Features = append([]string(nil), b.Features...)
			b.Features[1] = b.Features[0]
		}},
		{"swapped kinds", func(b *model.Bundle) { b.Readiness, b.Approval = b.Approval, b.Readiness }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := *base
			tt.mutate(&b)
			_, err := NewModels(&b)
			require.Error(t, err)
			assert.Equal(t, "integrity", apperr.Kind(err))
		})
	}

	_, err := NewModels(nil)
	assert.Equal(t, "integrity", apperr.Kind(err))
}

func TestScore_DefaultFill(t *testing.T) {
	m := trainedModels(t)
	zeros := features.Profile{}
	for _, n := range features.Names {
		zeros[n] = 0
	}

	empty, err := Score(m, features.Profile{})
	require.NoError(t, err)
	explicit, err := Score(m, zeros)
	require.NoError(t, err)
	assert.Equal(t, explicit, empty)

	// Keys outside the feature list do not change the result.
	extra, err := Score(m, features.Profile{"favouriteColour": 3})
	require.NoError(t, err)
	assert.Equal(t, empty, extra)
}

func TestScore_Ranges(t *testing.T) {
	m := trainedModels(t)
	rng := rand.New(synth.NewSource(7))
	extremes := []float64{-1e9, -1, 0, 1, 1e9}

	for i := 0; i < 500; i++ {
		p := features.Profile{}
		for _, n := range features.Names {
			if i%5 == 0 {
				p[n] = extremes[rng.IntN(len(extremes))]
			} else {
				p[n] = rng.Float64() * 400000
			}
		}
		s, err := Score(m, p)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s.LRS, 300.0)
		assert.LessOrEqual(t, s.LRS, 900.0)
		assert.GreaterOrEqual(t, s.APREstimate, 6.5)
		assert.LessOrEqual(t, s.APREstimate, 30.0)
		assert.GreaterOrEqual(t, s.ApprovalProbability, 0.0)
		assert.LessOrEqual(t, s.ApprovalProbability, 100.0)
	}
}

// referenceReadiness refits the readiness target by least squares on the raw,
// unstandardized training rows of the default dataset. With an intercept the
// fit is invariant to per-column scaling, so it must reproduce the served
// pipeline's prediction.
func referenceReadiness(t *testing.T, p features.Profile) float64 {
	t.Helper()
	cfg := training.DefaultConfig()
	ds, err := synth.Generate(cfg.Samples, cfg.Seed)
	require.NoError(t, err)
	trainIdx, _ := training.Split(ds.Len(), cfg.TestFraction, cfg.Seed)

	_, cols := ds.X.Dims()
	a := mat.NewDense(len(trainIdx), cols+1, nil)
	b := mat.NewDense(len(trainIdx), 1, nil)
	for r, i := range trainIdx {
		a.Set(r, 0, 1)
		for j := 0; j < cols; j++ {
			a.Set(r, j+1, ds.X.At(i, j))
		}
		b.Set(r, 0, ds.Readiness[i])
	}
	var beta mat.Dense
	require.NoError(t, beta.Solve(a, b))

	pred := beta.At(0, 0)
	for j, name := range ds.Features {
		pred += beta.At(j+1, 0) * p[name]
	}
	return math.Max(synth.ReadinessRange[0], math.Min(synth.ReadinessRange[1], pred))
}

func TestScore_MatchesReferenceFit(t *testing.T) {
	m := trainedModels(t)
	s, err := Score(m, scenario)
	require.NoError(t, err)

	assert.InDelta(t, referenceReadiness(t, scenario), s.LRS, 0.5)
}

func TestScore_RoundsToTwoDecimals(t *testing.T) {
	m := trainedModels(t)
	s, err := Score(m, scenario)
	require.NoError(t, err)
	for _, v := range []float64{s.LRS, s.APREstimate, s.ApprovalProbability} {
		assert.InDelta(t, v, math.Round(v*100)/100, 1e-9)
	}
}

func TestScore_ConcreteScenario(t *testing.T) {
	m := trainedModels(t)
	s, err := Score(m, scenario)
	require.NoError(t, err)

	a := synth.Applicant{
		MonthlyIncome:      90000,
		MonthlyDebtPayment: 12000,
		CreditUtilization:  30,
		SavingsBalance:     200000,
		EmploymentYears:    5,
		ExistingLoans:      1,
		CreditHistoryYears: 8,
		DesiredLoanAmount:  300000,
	}
	// Noise-free generator value is 733.37; the linear fit must land close.
	assert.InDelta(t, a.ReadinessRaw(), s.LRS, 50)
	assert.Greater(t, s.ApprovalProbability, 50.0, "a 730ish applicant is above the 620 approval line")

	raw, err := Contributions(m, scenario)
	require.NoError(t, err)
	strongest := 0
	for i, c := range raw {
		if math.Abs(c) > math.Abs(raw[strongest]) {
			strongest = i
		}
	}
	expl, err := Explain(m, scenario)
	require.NoError(t, err)
	assert.Equal(t, features.Names[strongest], expl[0].Feature)
}

func TestContributions_Additive(t *testing.T) {
	m := trainedModels(t)
	rng := rand.New(synth.NewSource(11))
	ds, err := synth.Generate(50, 99)
	require.NoError(t, err)

	for i := 0; i < ds.Len(); i++ {
		p := ds.Row(i)
		if i%2 == 0 {
			delete(p, features.Names[rng.IntN(len(features.Names))])
		}
		raw, err := Contributions(m, p)
		require.NoError(t, err)

		var sum float64
		for _, c := range raw {
			sum += c
		}
		decision, err := m.readiness.Decision(m.schema.Vector(p))
		require.NoError(t, err)
		assert.InDelta(t, decision-m.readiness.Model.Bias, sum, 1e-8)
	}
}

func TestExplain_CardinalityAndOrder(t *testing.T) {
	m := trainedModels(t)
	ds, err := synth.Generate(100, 5)
	require.NoError(t, err)

	for i := 0; i < ds.Len(); i++ {
		expl, err := Explain(m, ds.Row(i))
		require.NoError(t, err)
		require.Len(t, expl, MaxDrivers)

		for j, c := range expl {
			if j > 0 {
				assert.GreaterOrEqual(t, math.Abs(expl[j-1].ImpactPoints), math.Abs(c.ImpactPoints))
			}
			want := DirectionHelped
			if c.ImpactPoints < 0 {
				want = DirectionHurt
			}
			assert.Equal(t, want, c.Direction)
			assert.Equal(t, features.Label(c.Feature), c.Label)
			assert.Equal(t,
				fmt.Sprintf("%s %s your readiness by %.2f points.", c.Label, c.Direction, math.Abs(c.ImpactPoints)),
				c.Insight)
		}
	}
}

func TestExplain_Deterministic(t *testing.T) {
	m := trainedModels(t)
	a, err := Explain(m, scenario)
	require.NoError(t, err)
	b, err := Explain(m, scenario)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestExplain_TiesKeepFeatureOrder(t *testing.T) {
	names := []string{"a", "b", "c"}
	scaler := &model.StandardScaler{Mean: []float64{0, 0, 0}, Scale: []float64{1, 1, 1}}
	pipe := func(kind model.Kind, w ...float64) *model.Pipeline {
		return &model.Pipeline{Kind: kind, Scaler: scaler, Model: &model.LinearModel{Weights: w}, Range: model.Range{Min: -1e6, Max: 1e6}}
	}
	m, err := NewModels(&model.Bundle{
		Features:  names,
		Readiness: pipe(model.KindRegression, 1, -1, 2),
		APR:       pipe(model.KindRegression, 0, 0, 0),
		Approval:  pipe(model.KindClassification, 0, 0, 0),
	})
	require.NoError(t, err)

	expl, err := Explain(m, features.Profile{"a": 3, "b": 3, "c": 0.001})
	require.NoError(t, err)
	require.Len(t, expl, 3)
	assert.Equal(t, "a", expl[0].Feature)
	assert.Equal(t, "b", expl[1].Feature)
	assert.Equal(t, DirectionHurt, expl[1].Direction)
	assert.Equal(t, "c", expl[2].Feature)
	assert.Equal(t, "c", expl[2].Label, "unknown identifiers are their own label")
	assert.Equal(t, "c helped your readiness by 0.00 points.", expl[2].Insight)
}

func TestExplain_NegativeZeroIsHelped(t *testing.T) {
	scaler := &model.StandardScaler{Mean: []float64{0}, Scale: []float64{1}}
	pipe := func(kind model.Kind) *model.Pipeline {
		return &model.Pipeline{Kind: kind, Scaler: scaler, Model: &model.LinearModel{Weights: []float64{1}}, Range: model.Range{Min: -10, Max: 10}}
	}
	m, err := NewModels(&model.Bundle{
		Features:  []string{features.SavingsBalance},
		Readiness: pipe(model.KindRegression),
		APR:       pipe(model.KindRegression),
		Approval:  pipe(model.KindClassification),
	})
	require.NoError(t, err)

	expl, err := Explain(m, features.Profile{features.SavingsBalance: -0.001})
	require.NoError(t, err)
	assert.Equal(t, 0.0, expl[0].ImpactPoints)
	assert.False(t, math.Signbit(expl[0].ImpactPoints))
	assert.Equal(t, DirectionHelped, expl[0].Direction)
	assert.Equal(t, "Savings buffer helped your readiness by 0.00 points.", expl[0].Insight)
}

func TestSimulate_EmptyAdjustments(t *testing.T) {
	m := trainedModels(t)
	for _, adj := range []features.Profile{nil, {}} {
		sim, err := Simulate(m, scenario, adj)
		require.NoError(t, err)
		assert.Equal(t, sim.Before, sim.After)
		assert.Equal(t, Scores{}, sim.Delta)
	}
}

func TestSimulate_MatchesScore(t *testing.T) {
	m := trainedModels(t)
	adj := features.Profile{features.CreditUtilization: -20, features.ExistingLoans: -1}
	sim, err := Simulate(m, scenario, adj)
	require.NoError(t, err)

	before, err := Score(m, scenario)
	require.NoError(t, err)
	after, err := Score(m, scenario.Apply(adj))
	require.NoError(t, err)
	assert.Equal(t, before, sim.Before)
	assert.Equal(t, after, sim.After)
	assert.InDelta(t, after.LRS-before.LRS, sim.Delta.LRS, 0.011)
	assert.Greater(t, sim.Delta.LRS, 0.0, "lower utilization and fewer loans raise readiness")
	assert.Equal(t, 30.0, scenario[features.CreditUtilization], "input profile untouched")
}

func TestSimulate_SavingsMonotonic(t *testing.T) {
	m := trainedModels(t)
	rng := rand.New(synth.NewSource(2024))
	ds, err := synth.Generate(20, 3)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		base := ds.Row(i % ds.Len())
		delta := rng.Float64() * math.Pow(10, float64(rng.IntN(7)))
		sim, err := Simulate(m, base, features.Profile{features.SavingsBalance: delta})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, sim.Delta.LRS, 0.0, "savings +%.2f lowered readiness", delta)
		assert.GreaterOrEqual(t, sim.After.LRS, sim.Before.LRS)
	}
}

func TestSimulate_RejectsOverflowingAdjustment(t *testing.T) {
	m := trainedModels(t)
	huge := features.Profile{
		features.MonthlyIncome:      1.5e308,
		features.MonthlyDebtPayment: 1.5e308,
	}

	_, err := Score(m, huge)
	require.NoError(t, err, "the unadjusted profile is finite and scores")

	sim, err := Simulate(m, huge, huge)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, features.MonthlyDebtPayment, ve.Field)
	assert.Equal(t, Simulation{}, sim)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1e307, Round2(1e307))
	assert.Equal(t, -1e307, Round2(-1e307))
	assert.Equal(t, 1.23, Round2(1.2349))
	assert.Equal(t, 1.24, Round2(1.2351))
	assert.Equal(t, -1.24, Round2(-1.2351))
	assert.Equal(t, 0.0, Round2(-0.004))
	assert.False(t, math.Signbit(Round2(-0.004)))
}
