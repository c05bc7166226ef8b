//go:build integration

package artifacts

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

func setupTestDB(t *testing.T) *PostgresStore {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	s := NewPostgresStore(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, "TRUNCATE model_releases CASCADE")
		pool.Close()
	})
	_, _ = pool.Exec(ctx, "TRUNCATE model_releases CASCADE")
	return s
}

func TestPostgresStore_SaveLoad(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	if _, err := s.Load(ctx); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	b := testBundle()
	id, err := s.Save(ctx, b)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Release != id {
		t.Errorf("expected release %s, got %s", id, got.Release)
	}
	assertSameBundle(t, b, got)

	cur, err := s.Current(ctx)
	if err != nil || cur != id {
		t.Errorf("Current = %q, %v; want %q", cur, err, id)
	}
}
