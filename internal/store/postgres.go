package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS financial_profiles (
	applicant_id TEXT PRIMARY KEY,
	profile JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS assessments (
	assessment_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	applicant_id TEXT NOT NULL,
	release_id TEXT NOT NULL DEFAULT '',
	lrs DOUBLE PRECISION NOT NULL,
	apr_estimate DOUBLE PRECISION NOT NULL,
	approval_probability DOUBLE PRECISION NOT NULL,
	profile JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS assessments_applicant_idx ON assessments (applicant_id, created_at DESC);
CREATE TABLE IF NOT EXISTS loan_offers (
	lender_name TEXT PRIMARY KEY,
	min_apr DOUBLE PRECISION NOT NULL,
	max_apr DOUBLE PRECISION NOT NULL,
	min_amount DOUBLE PRECISION NOT NULL,
	max_amount DOUBLE PRECISION NOT NULL,
	max_tenure_months INTEGER NOT NULL,
	funding_days INTEGER NOT NULL,
	commission_weight DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Pool exposes the connection pool so other stores can share it.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, applicantID string) (*FinancialProfile, error) {
	p := &FinancialProfile{}
	var profileJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT applicant_id, profile, updated_at FROM financial_profiles WHERE applicant_id = $1`,
		applicantID,
	).Scan(&p.ApplicantID, &profileJSON, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(profileJSON, &p.Values); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) UpsertProfile(ctx context.Context, p *FinancialProfile) error {
	profileJSON, err := json.Marshal(p.Values)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO financial_profiles (applicant_id, profile)
		VALUES ($1, $2)
		ON CONFLICT (applicant_id) DO UPDATE SET
			profile = EXCLUDED.profile,
			updated_at = now()
		RETURNING updated_at`,
		p.ApplicantID, profileJSON,
	).Scan(&p.UpdatedAt)
}

func (s *PostgresStore) CreateAssessment(ctx context.Context, a *Assessment) error {
	profileJSON, err := json.Marshal(a.Profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO assessments (applicant_id, release_id, lrs, apr_estimate, approval_probability, profile)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING assessment_id, created_at`,
		a.ApplicantID, a.Release, a.LRS, a.APREstimate, a.ApprovalProbability, profileJSON,
	).Scan(&a.ID, &a.CreatedAt)
}

func (s *PostgresStore) ListAssessments(ctx context.Context, applicantID string, limit int) ([]*Assessment, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT assessment_id, applicant_id, release_id, lrs, apr_estimate, approval_probability, profile, created_at
		FROM assessments WHERE applicant_id = $1
		ORDER BY created_at DESC LIMIT $2`, applicantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Assessment
	for rows.Next() {
		a := &Assessment{}
		var profileJSON []byte
		if err := rows.Scan(&a.ID, &a.ApplicantID, &a.Release, &a.LRS, &a.APREstimate,
			&a.ApprovalProbability, &profileJSON, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(profileJSON, &a.Profile); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertOffer(ctx context.Context, o *Offer) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO loan_offers (lender_name, min_apr, max_apr, min_amount, max_amount,
			max_tenure_months, funding_days, commission_weight)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (lender_name) DO UPDATE SET
			min_apr = EXCLUDED.min_apr,
			max_apr = EXCLUDED.max_apr,
			min_amount = EXCLUDED.min_amount,
			max_amount = EXCLUDED.max_amount,
			max_tenure_months = EXCLUDED.max_tenure_months,
			funding_days = EXCLUDED.funding_days,
			commission_weight = EXCLUDED.commission_weight,
			updated_at = now()
		RETURNING updated_at`,
		o.LenderName, o.MinAPR, o.MaxAPR, o.MinAmount, o.MaxAmount,
		o.MaxTenureMonths, o.FundingDays, o.CommissionWeight,
	).Scan(&o.UpdatedAt)
}

func (s *PostgresStore) ListOffers(ctx context.Context, filter OfferFilter) ([]*Offer, error) {
	query := `SELECT lender_name, min_apr, max_apr, min_amount, max_amount,
		max_tenure_months, funding_days, commission_weight, updated_at
		FROM loan_offers WHERE 1=1`
	args := []interface{}{}
	if filter.Amount > 0 {
		query += " AND min_amount <= $1 AND max_amount >= $1"
		args = append(args, filter.Amount)
	}
	query += " ORDER BY lender_name"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Offer
	for rows.Next() {
		o := &Offer{}
		if err := rows.Scan(&o.LenderName, &o.MinAPR, &o.MaxAPR, &o.MinAmount, &o.MaxAmount,
			&o.MaxTenureMonths, &o.FundingDays, &o.CommissionWeight, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
