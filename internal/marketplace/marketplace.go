// Package marketplace ranks lender offers for a requested loan.
package marketplace

import (
	"context"
	"math"
	"slices"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
	"github.com/MikeSquared-Agency/Pathfinder/internal/scoring"
	"github.com/MikeSquared-Agency/Pathfinder/internal/store"
)

type Goal string

const (
	GoalLowestTotalInterest  Goal = "lowest_total_interest"
	GoalLowestMonthlyPayment Goal = "lowest_monthly_payment"
	GoalFastestFunding       Goal = "fastest_funding"
)

const (
	DefaultAmount       = 200000
	DefaultTenureMonths = 36
	MaxTenureMonths     = 600
)

// ParseGoal maps a query value onto a Goal. Empty selects the default.
func ParseGoal(s string) (Goal, error) {
	switch Goal(s) {
	case "", GoalLowestTotalInterest, "lowest_interest":
		return GoalLowestTotalInterest, nil
	case GoalLowestMonthlyPayment, GoalFastestFunding:
		return Goal(s), nil
	}
	return "", apperr.Validation("goal", "unknown goal %q", s)
}

type Request struct {
	Goal         Goal
	Amount       float64
	TenureMonths int
}

func (r Request) Validate() error {
	if !(r.Amount > 0) || math.IsInf(r.Amount, 0) {
		return apperr.Validation("desiredAmount", "must be a positive number")
	}
	if r.TenureMonths <= 0 || r.TenureMonths > MaxTenureMonths {
		return apperr.Validation("desiredTenure", "must be between 1 and %d months", MaxTenureMonths)
	}
	return nil
}

type RankedOffer struct {
	store.Offer
	EstimatedAPR           float64 `json:"estimatedApr"`
	EstimatedEMI           float64 `json:"estimatedEmi"`
	EstimatedTotalInterest float64 `json:"estimatedTotalInterest"`
	RankingScore           float64 `json:"rankingScore"`
}

type Result struct {
	Goal          Goal          `json:"goal"`
	DesiredAmount float64       `json:"desiredAmount"`
	DesiredTenure int           `json:"desiredTenure"`
	Offers        []RankedOffer `json:"offers"`
}

// MonthlyPayment is the amortised instalment (EMI) for principal at
// annualRate percent over tenure months.
func MonthlyPayment(principal, annualRate float64, tenure int) float64 {
	r := annualRate / 1200
	if r == 0 {
		return principal / float64(tenure)
	}
	return principal * r / (1 - math.Pow(1+r, -float64(tenure)))
}

// Rank prices every offer that covers the requested amount at its mid APR and
// orders them ascending by the goal's measure. Ties keep input order.
func Rank(offers []*store.Offer, req Request) []RankedOffer {
	out := make([]RankedOffer, 0, len(offers))
	for _, o := range offers {
		if !o.Covers(req.Amount) {
			continue
		}
		apr := (o.MinAPR + o.MaxAPR) / 2
		emi := MonthlyPayment(req.Amount, apr, req.TenureMonths)
		interest := emi*float64(req.TenureMonths) - req.Amount

		var score float64
		switch req.Goal {
		case GoalLowestMonthlyPayment:
			score = emi
		case GoalFastestFunding:
			score = float64(o.FundingDays)
		default:
			score = interest
		}
		out = append(out, RankedOffer{
			Offer:                  *o,
			EstimatedAPR:           scoring.Round2(apr),
			EstimatedEMI:           scoring.Round2(emi),
			EstimatedTotalInterest: scoring.Round2(interest),
			RankingScore:           scoring.Round2(score),
		})
	}
	slices.SortStableFunc(out, func(a, b RankedOffer) int {
		switch {
		case a.RankingScore < b.RankingScore:
			return -1
		case a.RankingScore > b.RankingScore:
			return 1
		}
		return 0
	})
	return out
}

type Marketplace struct {
	store store.Store
}

func New(s store.Store) *Marketplace {
	return &Marketplace{store: s}
}

func (m *Marketplace) Rank(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	offers, err := m.store.ListOffers(ctx, store.OfferFilter{Amount: req.Amount})
	if err != nil {
		return nil, err
	}
	return &Result{
		Goal:          req.Goal,
		DesiredAmount: req.Amount,
		DesiredTenure: req.TenureMonths,
		Offers:        Rank(offers, req),
	}, nil
}
