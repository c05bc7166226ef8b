package api

import (
	"context"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/Pathfinder/internal/model"
	"github.com/MikeSquared-Agency/Pathfinder/internal/scoring"
	"github.com/MikeSquared-Agency/Pathfinder/internal/store"
)

// ModelRegistry is the part of the registry exposed over HTTP.
type ModelRegistry interface {
	Models(ctx context.Context) (*scoring.Models, error)
	Current() *scoring.Models
	Retrain(ctx context.Context) (*scoring.Models, error)
}

type AdminHandler struct {
	registry ModelRegistry
	store    store.Store
}

func NewAdminHandler(reg ModelRegistry, s store.Store) *AdminHandler {
	return &AdminHandler{registry: reg, store: s}
}

type ModelInfo struct {
	Release   string        `json:"release"`
	Features  []string      `json:"features"`
	Metrics   model.Metrics `json:"metrics"`
	TrainedAt time.Time     `json:"trainedAt"`
}

func modelInfo(m *scoring.Models) ModelInfo {
	return ModelInfo{
		Release:   m.Release(),
		Features:  m.Features(),
		Metrics:   m.Metrics(),
		TrainedAt: m.TrainedAt(),
	}
}

// Model describes the release being served.
// GET /api/v1/admin/model
func (h *AdminHandler) Model(w http.ResponseWriter, r *http.Request) {
	m, err := h.registry.Models(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modelInfo(m))
}

// Retrain fits, publishes and swaps in a new release.
// POST /api/v1/admin/retrain
func (h *AdminHandler) Retrain(w http.ResponseWriter, r *http.Request) {
	m, err := h.registry.Retrain(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modelInfo(m))
}

// UpsertOffer creates or replaces a lender offer, keyed by lender name.
// POST /api/v1/admin/offers
func (h *AdminHandler) UpsertOffer(w http.ResponseWriter, r *http.Request) {
	var o store.Offer
	if err := decodeJSON(w, r, &o); err != nil {
		writeError(w, err)
		return
	}
	if err := o.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.UpsertOffer(r.Context(), &o); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, o)
}
