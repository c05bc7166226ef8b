package scoring

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/MikeSquared-Agency/Pathfinder/internal/features"
	"github.com/MikeSquared-Agency/Pathfinder/internal/hermes"
	"github.com/MikeSquared-Agency/Pathfinder/internal/metrics"
)

// ModelSource hands out the models currently being served. It may block
// while the first bundle is loaded or trained.
type ModelSource interface {
	Models(ctx context.Context) (*Models, error)
}

type Prediction struct {
	Scores
	Explanation []Contribution `json:"explanation"`
	Release     string         `json:"-"`
}

// Engine runs predictions and simulations against whatever models the
// source currently serves. Events and metrics are optional (nil disables).
type Engine struct {
	source  ModelSource
	events  hermes.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewEngine(source ModelSource, events hermes.Client, m *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{source: source, events: events, metrics: m, logger: logger}
}

func (e *Engine) Predict(ctx context.Context, p features.Profile) (*Prediction, error) {
	pred, err := e.predict(ctx, p)
	e.metrics.Observe("predict", err)
	return pred, err
}

func (e *Engine) predict(ctx context.Context, p features.Profile) (*Prediction, error) {
	m, err := e.source.Models(ctx)
	if err != nil {
		return nil, err
	}
	scores, err := Score(m, p)
	if err != nil {
		return nil, err
	}
	explanation, err := Explain(m, p)
	if err != nil {
		return nil, err
	}
	return &Prediction{Scores: scores, Explanation: explanation, Release: m.Release()}, nil
}

func (e *Engine) Simulate(ctx context.Context, profile, adjustments features.Profile) (*Simulation, error) {
	m, err := e.source.Models(ctx)
	if err != nil {
		e.metrics.Observe("simulate", err)
		return nil, err
	}
	sim, err := Simulate(m, profile, adjustments)
	e.metrics.Observe("simulate", err)
	if err != nil {
		return nil, err
	}

	if e.events != nil {
		adjusted := make([]string, 0, len(adjustments))
		for k := range adjustments {
			adjusted = append(adjusted, k)
		}
		slices.Sort(adjusted)
		evt := hermes.SimulationCompletedEvent{
			Release:       m.Release(),
			Adjusted:      adjusted,
			LRSDelta:      sim.Delta.LRS,
			APRDelta:      sim.Delta.APREstimate,
			ApprovalDelta: sim.Delta.ApprovalProbability,
			Timestamp:     time.Now().UTC(),
		}
		if err := e.events.Publish(hermes.SubjectSimulationCompleted, evt); err != nil {
			e.logger.Warn("failed to publish simulation event", "error", err)
		}
	}
	return &sim, nil
}
