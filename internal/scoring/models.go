// Package scoring turns a feature profile into readiness, APR and approval
// scores, explains the readiness score and runs what-if simulations.
//
// Everything here reads an immutable *Models value; it is safe for any number
// of concurrent callers.
package scoring

import (
	"time"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
	"github.com/MikeSquared-Agency/Pathfinder/internal/features"
	"github.com/MikeSquared-Agency/Pathfinder/internal/model"
)

// Models is a validated bundle ready for serving.
type Models struct {
	schema    *features.Schema
	readiness *model.Pipeline
	apr       *model.Pipeline
	approval  *model.Pipeline
	release   string
	metrics   model.Metrics
	trainedAt time.Time
}

// NewModels checks that the bundle's feature list and all three pipelines
// agree on shape. Any disagreement is an integrity error.
func NewModels(b *model.Bundle) (*Models, error) {
	if b == nil {
		return nil, apperr.Integrity("model bundle missing")
	}
	schema, err := features.NewSchema(b.Features)
	if err != nil {
		return nil, err
	}
	checks := []struct {
		p    *model.Pipeline
		kind model.Kind
		name string
	}{
		{b.Readiness, model.KindRegression, "lrs"},
		{b.APR, model.KindRegression, "apr"},
		{b.Approval, model.KindClassification, "approval"},
	}
	for _, c := range checks {
		if c.p == nil {
			return nil, apperr.Integrity("%s pipeline missing", c.name)
		}
		if err := c.p.Validate(schema.Len()); err != nil {
			return nil, err
		}
		if c.p.Kind != c.kind {
			return nil, apperr.Integrity("%s pipeline is %s, want %s", c.name, c.p.Kind, c.kind)
		}
	}
	return &Models{
		schema:    schema,
		readiness: b.Readiness,
		apr:       b.APR,
		approval:  b.Approval,
		release:   b.Release,
		metrics:   b.Metrics,
		trainedAt: b.TrainedAt,
	}, nil
}

func (m *Models) Features() []string     { return m.schema.Names() }
func (m *Models) Release() string        { return m.release }
func (m *Models) Metrics() model.Metrics { return m.metrics }
func (m *Models) TrainedAt() time.Time   { return m.trainedAt }
