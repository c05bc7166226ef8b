package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
	"github.com/MikeSquared-Agency/Pathfinder/internal/model"
)

// sample returns the value of the named series whose labels include want.
func sample(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if v, ok := want[lp.GetName()]; ok && v != lp.GetValue() {
					continue series
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("series %s %v not found", name, want)
	return 0
}

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Observe("predict", nil)
	m.Observe("predict", nil)
	m.Observe("predict", apperr.Validation("monthlyIncome", "bad"))
	m.Observe("simulate", errors.New("boom"))

	total := "pathfinder_engine_requests_total"
	assert.Equal(t, 2.0, sample(t, reg, total, map[string]string{"operation": "predict", "outcome": "ok"}))
	assert.Equal(t, 1.0, sample(t, reg, total, map[string]string{"operation": "predict", "outcome": "error"}))
	assert.Equal(t, 1.0, sample(t, reg, "pathfinder_errors_total", map[string]string{"kind": "validation"}))
	assert.Equal(t, 1.0, sample(t, reg, "pathfinder_errors_total", map[string]string{"kind": "internal"}))
}

func TestModelQualityAndTraining(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetModelQuality(model.Metrics{ReadinessR2: 0.91, APRR2: 0.6, ApprovalAccuracy: 0.88})
	m.ObserveTraining(1500 * time.Millisecond)
	m.AssessmentStored()

	assert.Equal(t, 0.91, sample(t, reg, "pathfinder_model_quality", map[string]string{"metric": "lrs_r2"}))
	assert.Equal(t, 0.88, sample(t, reg, "pathfinder_model_quality", map[string]string{"metric": "approval_accuracy"}))
	assert.Equal(t, 1.0, sample(t, reg, "pathfinder_assessments_stored_total", nil))
	assert.Equal(t, 1.0, sample(t, reg, "pathfinder_training_duration_seconds", nil))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Observe("predict", nil)
		m.ObserveTraining(time.Second)
		m.SetModelQuality(model.Metrics{})
		m.AssessmentStored()
	})
}
