// Package artifacts persists trained model bundles. A bundle is published as
// a release: readers see either the previous complete release or the new
// complete release, never a partially written one.
package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
	"github.com/MikeSquared-Agency/Pathfinder/internal/model"
)

// ErrNotFound is returned by Load and Current when nothing has been published.
var ErrNotFound = errors.New("no model release published")

type Store interface {
	// Load returns the current release.
	Load(ctx context.Context) (*model.Bundle, error)
	// Save publishes b as a new release and returns its id.
	Save(ctx context.Context, b *model.Bundle) (string, error)
	// Current returns the id of the current release.
	Current(ctx context.Context) (string, error)
}

type releaseInfo struct {
	Release   string    `json:"release"`
	TrainedAt time.Time `json:"trained_at"`
}

const blobRelease = "release.json"

// encode splits a bundle into its named blobs.
func encode(b *model.Bundle, release string) (map[string][]byte, error) {
	parts := map[string]any{
		model.BlobFeatures: b.Features,
		model.BlobLRS:      b.Readiness,
		model.BlobAPR:      b.APR,
		model.BlobApproval: b.Approval,
		model.BlobMetrics:  b.Metrics,
		blobRelease:        releaseInfo{Release: release, TrainedAt: b.TrainedAt},
	}
	out := make(map[string][]byte, len(parts))
	for name, v := range parts {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		out[name] = data
	}
	return out, nil
}

// decode reassembles a bundle. A missing or unreadable blob means the stored
// release is corrupt.
func decode(blobs map[string][]byte) (*model.Bundle, error) {
	b := &model.Bundle{}
	var info releaseInfo
	targets := map[string]any{
		model.BlobFeatures: &b.Features,
		model.BlobLRS:      &b.Readiness,
		model.BlobAPR:      &b.APR,
		model.BlobApproval: &b.Approval,
		model.BlobMetrics:  &b.Metrics,
		blobRelease:        &info,
	}
	for name, dst := range targets {
		data, ok := blobs[name]
		if !ok {
			return nil, apperr.Integrity("release is missing %s", name)
		}
		if err := json.Unmarshal(data, dst); err != nil {
			return nil, apperr.Integrity("decode %s: %v", name, err)
		}
	}
	b.Release = info.Release
	b.TrainedAt = info.TrainedAt
	return b, nil
}
