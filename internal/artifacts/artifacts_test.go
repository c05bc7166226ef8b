package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
	"github.com/MikeSquared-Agency/Pathfinder/internal/model"
)

func testBundle() *model.Bundle {
	scaler := &model.StandardScaler{Mean: []float64{1, 2}, Scale: []float64{0.5, 0}}
	reg := func(name string, w ...float64) *model.Pipeline {
		return &model.Pipeline{
			Name:   name,
			Kind:   model.KindRegression,
			Scaler: scaler,
			Model:  &model.LinearModel{Weights: w, Bias: 3},
			Range:  model.Range{Min: 0, Max: 10},
		}
	}
	approval := reg("approval", 0.1, 0)
	approval.Kind = model.KindClassification
	approval.Range = model.Range{Min: 0, Max: 100}
	return &model.Bundle{
		Features:  []string{"a", "b"},
		Readiness: reg("lrs", 1, 0),
		APR:       reg("apr", -1, 0),
		Approval:  approval,
		Metrics:   model.Metrics{ReadinessR2: 0.9, APRR2: 0.6, ApprovalAccuracy: 0.85, TrainSamples: 8, TestSamples: 2},
		TrainedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func assertSameBundle(t *testing.T, want, got *model.Bundle) {
	t.Helper()
	assert.Equal(t, want.Features, got.Features)
	assert.Equal(t, want.Readiness, got.Readiness)
	assert.Equal(t, want.APR, got.APR)
	assert.Equal(t, want.Approval, got.Approval)
	assert.Equal(t, want.Metrics, got.Metrics)
	assert.True(t, want.TrainedAt.Equal(got.TrainedAt))
}

func TestEncodeDecode(t *testing.T) {
	b := testBundle()
	blobs, err := encode(b, "rel-1")
	require.NoError(t, err)
	for _, name := range []string{model.BlobFeatures, model.BlobLRS, model.BlobAPR, model.BlobApproval, model.BlobMetrics} {
		assert.Contains(t, blobs, name)
	}

	got, err := decode(blobs)
	require.NoError(t, err)
	assert.Equal(t, "rel-1", got.Release)
	assertSameBundle(t, b, got)
}

func TestDecode_MissingBlob(t *testing.T) {
	blobs, err := encode(testBundle(), "rel-1")
	require.NoError(t, err)
	delete(blobs, model.BlobAPR)

	_, err = decode(blobs)
	require.Error(t, err)
	assert.Equal(t, "integrity", apperr.Kind(err))
}

func TestDecode_CorruptBlob(t *testing.T) {
	blobs, err := encode(testBundle(), "rel-1")
	require.NoError(t, err)
	blobs[model.BlobLRS] = []byte("{not json")

	_, err = decode(blobs)
	assert.Equal(t, "integrity", apperr.Kind(err))
}

func TestFileStore_Empty(t *testing.T) {
	s := NewFileStore(t.TempDir(), 2)
	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Current(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, 2)
	ctx := context.Background()

	b := testBundle()
	id, err := s.Save(ctx, b)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	cur, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, cur)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, got.Release)
	assertSameBundle(t, b, got)

	// A second store over the same directory sees the same release.
	got2, err := NewFileStore(dir, 2).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, got2.Release)
}

func TestFileStore_SaveWritesCompleteBlobs(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, 2)
	b := testBundle()

	id, err := s.Save(context.Background(), b)
	require.NoError(t, err)

	want, err := encode(b, id)
	require.NoError(t, err)
	for name, data := range want {
		got, err := os.ReadFile(filepath.Join(dir, "releases", id, name))
		require.NoError(t, err)
		assert.Equal(t, data, got, name)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "releases"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".staging-", "staging dir left behind")
	}
}

func TestWriteFileSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.json")
	require.NoError(t, writeFileSync(path, []byte(`{"a":"longer value"}`)))
	require.NoError(t, writeFileSync(path, []byte(`{}`)))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got), "rewrites truncate")

	err = writeFileSync(filepath.Join(t.TempDir(), "missing", "blob.json"), []byte(`{}`))
	assert.Error(t, err)
	require.NoError(t, syncDir(filepath.Dir(path)))
}

func TestFileStore_SavePublishesNewRelease(t *testing.T) {
	s := NewFileStore(t.TempDir(), 5)
	ctx := context.Background()

	first, err := s.Save(ctx, testBundle())
	require.NoError(t, err)

	b := testBundle()
	b.Metrics.ReadinessR2 = 0.95
	second, err := s.Save(ctx, b)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got.Release)
	assert.Equal(t, 0.95, got.Metrics.ReadinessR2)
}

func TestFileStore_PrunesOldReleases(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, 2)
	ctx := context.Background()

	var last string
	for i := 0; i < 4; i++ {
		id, err := s.Save(ctx, testBundle())
		require.NoError(t, err)
		last = id
	}

	entries, err := os.ReadDir(filepath.Join(dir, "releases"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Len(t, names, 2)
	assert.Contains(t, names, last)
}

func TestFileStore_LeftoverStagingIsIgnored(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, 2)
	ctx := context.Background()

	id, err := s.Save(ctx, testBundle())
	require.NoError(t, err)

	// An interrupted save leaves only a staging directory behind.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "releases", ".staging-123"), 0o755))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, got.Release)
}

func TestFileStore_CorruptRelease(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, 2)
	ctx := context.Background()

	id, err := s.Save(ctx, testBundle())
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "releases", id, model.BlobApproval)))

	_, err = s.Load(ctx)
	assert.Equal(t, "integrity", apperr.Kind(err))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	b := testBundle()
	id, err := s.Save(ctx, b)
	require.NoError(t, err)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, got.Release)
	assertSameBundle(t, b, got)

	// Mutating the loaded copy does not affect the stored release.
	got.Readiness.Model.Bias = 99
	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3.0, again.Readiness.Model.Bias)
}
