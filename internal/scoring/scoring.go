package scoring

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
	"github.com/MikeSquared-Agency/Pathfinder/internal/features"
)

// MaxDrivers is how many contributions an explanation carries.
const MaxDrivers = 6

const (
	DirectionHelped = "helped"
	DirectionHurt   = "hurt"
)

type Scores struct {
	LRS                 float64 `json:"lrs"`
	APREstimate         float64 `json:"aprEstimate"`
	ApprovalProbability float64 `json:"approvalProbability"`
}

func (s Scores) round() Scores {
	return Scores{
		LRS:                 Round2(s.LRS),
		APREstimate:         Round2(s.APREstimate),
		ApprovalProbability: Round2(s.ApprovalProbability),
	}
}

func (s Scores) minus(o Scores) Scores {
	return Scores{
		LRS:                 s.LRS - o.LRS,
		APREstimate:         s.APREstimate - o.APREstimate,
		ApprovalProbability: s.ApprovalProbability - o.ApprovalProbability,
	}
}

// Contribution is one feature's signed share of the readiness prediction.
type Contribution struct {
	Feature      string  `json:"feature"`
	Label        string  `json:"label"`
	ImpactPoints float64 `json:"impactPoints"`
	Direction    string  `json:"direction"`
	Insight      string  `json:"insight"`
}

type Simulation struct {
	Before Scores `json:"before"`
	After  Scores `json:"after"`
	Delta  Scores `json:"delta"`
}

// Round2 rounds half away from zero to 2 decimals and never returns -0.
func Round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if math.IsInf(r, 0) && !math.IsInf(v, 0) {
		// v*100 overflowed; v has no fractional digits left at this size.
		return v
	}
	if r == 0 {
		return 0
	}
	return r
}

// Score returns the clamped scores for p, rounded to 2 decimals. Features
// missing from p count as 0.
func Score(m *Models, p features.Profile) (Scores, error) {
	s, err := rawScores(m, m.schema.Vector(p))
	if err != nil {
		return Scores{}, err
	}
	return s.round(), nil
}

func rawScores(m *Models, x []float64) (Scores, error) {
	var s Scores
	var err error
	if s.LRS, err = m.readiness.Output(x); err != nil {
		return Scores{}, err
	}
	if s.APREstimate, err = m.apr.Output(x); err != nil {
		return Scores{}, err
	}
	if s.ApprovalProbability, err = m.approval.Output(x); err != nil {
		return Scores{}, err
	}
	// Finite but extreme inputs can still cancel to Inf - Inf.
	if math.IsNaN(s.LRS) || math.IsNaN(s.APREstimate) || math.IsNaN(s.ApprovalProbability) {
		return Scores{}, apperr.Validation("", "profile values are too large to score")
	}
	return s, nil
}

// Contributions returns weight_i * standardized_i for every feature of the
// readiness pipeline, in feature order and unrounded. The bias is not
// attributed, so the sum equals the unclamped prediction minus the bias.
func Contributions(m *Models, p features.Profile) ([]float64, error) {
	z, err := m.readiness.Transform(m.schema.Vector(p))
	if err != nil {
		return nil, err
	}
	w := m.readiness.Model.Weights
	out := make([]float64, len(z))
	for i := range z {
		out[i] = w[i] * z[i]
	}
	return out, nil
}

// Explain returns the strongest readiness drivers for p: contributions rounded
// to 2 decimals, ordered by descending magnitude (ties keep feature order) and
// cut to MaxDrivers.
func Explain(m *Models, p features.Profile) ([]Contribution, error) {
	raw, err := Contributions(m, p)
	if err != nil {
		return nil, err
	}
	names := m.schema.Names()
	out := make([]Contribution, len(raw))
	for i, c := range raw {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, apperr.Validation(names[i], "value is too large to explain")
		}
		points := Round2(c)
		dir := DirectionHelped
		if points < 0 {
			dir = DirectionHurt
		}
		label := features.Label(names[i])
		out[i] = Contribution{
			Feature:      names[i],
			Label:        label,
			ImpactPoints: points,
			Direction:    dir,
			Insight:      fmt.Sprintf("%s %s your readiness by %.2f points.", label, dir, math.Abs(points)),
		}
	}
	slices.SortStableFunc(out, func(a, b Contribution) int {
		return cmp.Compare(math.Abs(b.ImpactPoints), math.Abs(a.ImpactPoints))
	})
	if len(out) > MaxDrivers {
		out = out[:MaxDrivers]
	}
	return out, nil
}

// Simulate scores profile and profile+adjustments. Delta is taken on the
// unrounded scores and rounded afterwards.
func Simulate(m *Models, profile, adjustments features.Profile) (Simulation, error) {
	before, err := rawScores(m, m.schema.Vector(profile))
	if err != nil {
		return Simulation{}, err
	}
	updated := profile.Apply(adjustments)
	if err := updated.CheckFinite(); err != nil {
		return Simulation{}, err
	}
	after, err := rawScores(m, m.schema.Vector(updated))
	if err != nil {
		return Simulation{}, err
	}
	return Simulation{
		Before: before.round(),
		After:  after.round(),
		Delta:  after.minus(before).round(),
	}, nil
}
