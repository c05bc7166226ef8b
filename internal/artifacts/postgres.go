package artifacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/Pathfinder/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS model_releases (
	release_id UUID PRIMARY KEY,
	trained_at TIMESTAMPTZ NOT NULL,
	lrs_r2 DOUBLE PRECISION NOT NULL,
	apr_r2 DOUBLE PRECISION NOT NULL,
	approval_accuracy DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS model_artifacts (
	release_id UUID NOT NULL REFERENCES model_releases(release_id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	payload JSONB NOT NULL,
	PRIMARY KEY (release_id, name)
);`

// PostgresStore writes each release in a single transaction, so a release
// row is only visible together with all of its artifacts.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the artifact tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create artifact schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Current(ctx context.Context) (string, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT release_id FROM model_releases
		ORDER BY created_at DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query current release: %w", err)
	}
	return id.String(), nil
}

func (s *PostgresStore) Load(ctx context.Context) (*model.Bundle, error) {
	id, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT name, payload FROM model_artifacts WHERE release_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	blobs := make(map[string][]byte)
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return nil, err
		}
		blobs[name] = payload
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return decode(blobs)
}

func (s *PostgresStore) Save(ctx context.Context, b *model.Bundle) (string, error) {
	id := uuid.New()
	blobs, err := encode(b, id.String())
	if err != nil {
		return "", err
	}
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO model_releases (release_id, trained_at, lrs_r2, apr_r2, approval_accuracy)
			VALUES ($1, $2, $3, $4, $5)`,
			id, b.TrainedAt, b.Metrics.ReadinessR2, b.Metrics.APRR2, b.Metrics.ApprovalAccuracy,
		); err != nil {
			return fmt.Errorf("insert release: %w", err)
		}
		for name, data := range blobs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO model_artifacts (release_id, name, payload)
				VALUES ($1, $2, $3)`, id, name, data); err != nil {
				return fmt.Errorf("insert %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
