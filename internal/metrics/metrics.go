// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
	"github.com/MikeSquared-Agency/Pathfinder/internal/model"
)

const namespace = "pathfinder"

// Metrics is safe to use through a nil pointer; every method is then a no-op.
type Metrics struct {
	requests         *prometheus.CounterVec
	errors           *prometheus.CounterVec
	trainingDuration prometheus.Histogram
	modelQuality     *prometheus.GaugeVec
	assessments      prometheus.Counter
}

// New registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry(); main passes prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_requests_total",
			Help:      "Engine invocations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by kind.",
		}, []string{"kind"}),
		trainingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Wall time of a full training run.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		modelQuality: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_quality",
			Help:      "Held-out quality of the serving models.",
		}, []string{"metric"}),
		assessments: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_stored_total",
			Help:      "Assessments written to history.",
		}),
	}
}

// Observe counts one engine operation ("predict" or "simulate").
func (m *Metrics) Observe(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.errors.WithLabelValues(apperr.Kind(err)).Inc()
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveTraining(d time.Duration) {
	if m == nil {
		return
	}
	m.trainingDuration.Observe(d.Seconds())
}

// SetModelQuality publishes the metrics of the bundle now being served.
func (m *Metrics) SetModelQuality(q model.Metrics) {
	if m == nil {
		return
	}
	m.modelQuality.WithLabelValues("lrs_r2").Set(q.ReadinessR2)
	m.modelQuality.WithLabelValues("apr_r2").Set(q.APRR2)
	m.modelQuality.WithLabelValues("approval_accuracy").Set(q.ApprovalAccuracy)
}

func (m *Metrics) AssessmentStored() {
	if m == nil {
		return
	}
	m.assessments.Inc()
}
