// Package training fits the readiness, APR and approval pipelines on the
// synthetic dataset and evaluates them on a held-out split.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/MikeSquared-Agency/Pathfinder/internal/model"
	"github.com/MikeSquared-Agency/Pathfinder/internal/synth"
)

// Pipeline names.
const (
	ReadinessPipeline = "lrs"
	APRPipeline       = "apr"
	ApprovalPipeline  = "approval"
)

type Config struct {
	Samples      int
	Seed         uint64
	TestFraction float64
	Logistic     model.LogisticOptions
}

func DefaultConfig() Config {
	return Config{
		Samples:      synth.DefaultSamples,
		Seed:         synth.DefaultSeed,
		TestFraction: 0.2,
		Logistic:     model.DefaultLogisticOptions(),
	}
}

// Thresholds are the minimum held-out scores a bundle needs to be served.
type Thresholds struct {
	MinReadinessR2      float64
	MinAPRR2            float64
	MinApprovalAccuracy float64
}

// Check returns an error naming every metric below its floor.
func (th Thresholds) Check(m model.Metrics) error {
	var failed []string
	if !(m.ReadinessR2 >= th.MinReadinessR2) {
		failed = append(failed, fmt.Sprintf("lrs_r2 %.4f < %.4f", m.ReadinessR2, th.MinReadinessR2))
	}
	if !(m.APRR2 >= th.MinAPRR2) {
		failed = append(failed, fmt.Sprintf("apr_r2 %.4f < %.4f", m.APRR2, th.MinAPRR2))
	}
	if !(m.ApprovalAccuracy >= th.MinApprovalAccuracy) {
		failed = append(failed, fmt.Sprintf("approval_accuracy %.4f < %.4f", m.ApprovalAccuracy, th.MinApprovalAccuracy))
	}
	if len(failed) > 0 {
		return fmt.Errorf("trained models below quality floor: %s", strings.Join(failed, "; "))
	}
	return nil
}

// DefaultThresholds are the floors applied when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{MinReadinessR2: 0.5, MinAPRR2: 0.3, MinApprovalAccuracy: 0.7}
}

type Trainer struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewTrainer(cfg Config, logger *slog.Logger) *Trainer {
	if cfg.Samples <= 0 {
		cfg.Samples = synth.DefaultSamples
	}
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		cfg.TestFraction = 0.2
	}
	return &Trainer{cfg: cfg, logger: logger, now: time.Now}
}

// Train generates the synthetic dataset and fits all three pipelines.
func (t *Trainer) Train(ctx context.Context) (*model.Bundle, error) {
	ds, err := synth.Generate(t.cfg.Samples, t.cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("generate dataset: %w", err)
	}
	return t.Fit(ctx, ds)
}

// Fit trains on ds using one seeded split shared by all three targets, so a
// given row is in the same partition for every model.
func (t *Trainer) Fit(ctx context.Context, ds *synth.Dataset) (*model.Bundle, error) {
	start := time.Now()
	trainIdx, testIdx := Split(ds.Len(), t.cfg.TestFraction, t.cfg.Seed)
	if len(trainIdx) == 0 || len(testIdx) == 0 {
		return nil, fmt.Errorf("dataset of %d rows is too small to split", ds.Len())
	}

	xTrain := rows(ds.X, trainIdx)
	xTest := rows(ds.X, testIdx)

	scaler := model.FitStandardScaler(xTrain)
	zTrain := scaler.TransformMatrix(xTrain)
	active := scaler.Active()
	if len(active) < scaler.Width() {
		t.logger.Warn("zero-variance features in training data", "active", len(active), "total", scaler.Width())
	}

	bundle := &model.Bundle{
		Features:  append([]string(nil), ds.Features...),
		TrainedAt: t.now().UTC(),
	}

	lrs, err := model.FitLinearRegression(zTrain, pick(ds.Readiness, trainIdx), active)
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", ReadinessPipeline, err)
	}
	bundle.Readiness = &model.Pipeline{
		Name:   ReadinessPipeline,
		Kind:   model.KindRegression,
		Scaler: scaler,
		Model:  lrs,
		Range:  model.Range{Min: synth.ReadinessRange[0], Max: synth.ReadinessRange[1]},
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	apr, err := model.FitLinearRegression(zTrain, pick(ds.APR, trainIdx), active)
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", APRPipeline, err)
	}
	bundle.APR = &model.Pipeline{
		Name:   APRPipeline,
		Kind:   model.KindRegression,
		Scaler: scaler,
		Model:  apr,
		Range:  model.Range{Min: synth.APRRange[0], Max: synth.APRRange[1]},
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	approval, fit, err := model.FitLogisticRegression(zTrain, pick(ds.Approved, trainIdx), active, t.cfg.Logistic)
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", ApprovalPipeline, err)
	}
	if !fit.Converged {
		t.logger.Warn("approval model did not converge", "iterations", fit.Iterations)
	}
	bundle.Approval = &model.Pipeline{
		Name:   ApprovalPipeline,
		Kind:   model.KindClassification,
		Scaler: scaler,
		Model:  approval,
		Range:  model.Range{Min: 0, Max: 100},
	}

	m, err := evaluate(bundle, xTest, pick(ds.Readiness, testIdx), pick(ds.APR, testIdx), pick(ds.Approved, testIdx))
	if err != nil {
		return nil, err
	}
	m.TrainSamples = len(trainIdx)
	m.TestSamples = len(testIdx)
	m.ApprovalIterations = fit.Iterations
	m.ApprovalConverged = fit.Converged
	bundle.Metrics = m

	t.logger.Info("model training complete",
		"samples", ds.Len(),
		"seed", t.cfg.Seed,
		"duration_ms", time.Since(start).Milliseconds(),
		"lrs_r2", m.ReadinessR2,
		"apr_r2", m.APRR2,
		"approval_accuracy", m.ApprovalAccuracy,
	)
	return bundle, nil
}

// Split returns a reproducible train/test partition of n row indices. The
// test partition has ceil(n*testFraction) rows.
func Split(n int, testFraction float64, seed uint64) (train, test []int) {
	perm := rand.New(synth.NewSource(seed)).Perm(n)
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest > n {
		nTest = n
	}
	return perm[nTest:], perm[:nTest]
}

func evaluate(b *model.Bundle, x *mat.Dense, lrs, apr, approved []float64) (model.Metrics, error) {
	n, _ := x.Dims()
	predLRS := make([]float64, n)
	predAPR := make([]float64, n)
	correct := 0
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		var err error
		if predLRS[i], err = b.Readiness.Predict(row); err != nil {
			return model.Metrics{}, err
		}
		if predAPR[i], err = b.APR.Predict(row); err != nil {
			return model.Metrics{}, err
		}
		cls, err := b.Approval.Predict(row)
		if err != nil {
			return model.Metrics{}, err
		}
		if cls == approved[i] {
			correct++
		}
	}
	return model.Metrics{
		ReadinessR2:      finite(stat.RSquaredFrom(predLRS, lrs, nil)),
		APRR2:            finite(stat.RSquaredFrom(predAPR, apr, nil)),
		ApprovalAccuracy: float64(correct) / float64(n),
	}, nil
}

// finite maps NaN/Inf (constant targets) to 0 so metrics stay serialisable.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func rows(x *mat.Dense, idx []int) *mat.Dense {
	_, cols := x.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	for i, r := range idx {
		out.SetRow(i, x.RawRowView(r))
	}
	return out
}

func pick(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, r := range idx {
		out[i] = v[r]
	}
	return out
}
