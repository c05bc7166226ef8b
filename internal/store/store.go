// Package store persists applicant profiles, assessment history and lender
// offers.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("not found")

// DefaultHistoryLimit is how many assessments a history listing returns.
const DefaultHistoryLimit = 10

// Assessment is one stored prediction. Explanations are recomputed on demand
// and are not kept.
type Assessment struct {
	ID                  uuid.UUID          `json:"id"`
	ApplicantID         string             `json:"applicantId"`
	Release             string             `json:"release,omitempty"`
	LRS                 float64            `json:"lrs"`
	APREstimate         float64            `json:"aprEstimate"`
	ApprovalProbability float64            `json:"approvalProbability"`
	Profile             map[string]float64 `json:"profile"`
	CreatedAt           time.Time          `json:"createdAt"`
}

// FinancialProfile is an applicant's saved attributes, scored whenever a
// request does not carry its own profile.
type FinancialProfile struct {
	ApplicantID string             `json:"applicantId"`
	Values      map[string]float64 `json:"profile"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

type Offer struct {
	LenderName       string    `json:"lenderName"`
	MinAPR           float64   `json:"minApr"`
	MaxAPR           float64   `json:"maxApr"`
	MinAmount        float64   `json:"minAmount"`
	MaxAmount        float64   `json:"maxAmount"`
	MaxTenureMonths  int       `json:"maxTenureMonths"`
	FundingDays      int       `json:"fundingDays"`
	CommissionWeight float64   `json:"commissionWeight"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Validate checks the offer describes a usable product.
func (o *Offer) Validate() error {
	switch {
	case o.LenderName == "":
		return apperr.Validation("lenderName", "is required")
	case o.MinAPR < 0 || o.MinAPR > o.MaxAPR:
		return apperr.Validation("minApr", "must be between 0 and maxApr")
	case o.MinAmount <= 0 || o.MinAmount > o.MaxAmount:
		return apperr.Validation("minAmount", "must be positive and at most maxAmount")
	case o.MaxTenureMonths <= 0:
		return apperr.Validation("maxTenureMonths", "must be positive")
	case o.FundingDays < 0:
		return apperr.Validation("fundingDays", "must not be negative")
	}
	return nil
}

type OfferFilter struct {
	// Amount, when positive, keeps offers whose amount range covers it.
	Amount float64
}

// Covers reports whether o lends amount.
func (o *Offer) Covers(amount float64) bool {
	return o.MinAmount <= amount && amount <= o.MaxAmount
}

type Store interface {
	// Profiles
	GetProfile(ctx context.Context, applicantID string) (*FinancialProfile, error)
	UpsertProfile(ctx context.Context, p *FinancialProfile) error

	// Assessments
	CreateAssessment(ctx context.Context, a *Assessment) error
	ListAssessments(ctx context.Context, applicantID string, limit int) ([]*Assessment, error)

	// Offers
	UpsertOffer(ctx context.Context, o *Offer) error
	ListOffers(ctx context.Context, filter OfferFilter) ([]*Offer, error)

	Close() error
}
