package api

import (
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
	"github.com/MikeSquared-Agency/Pathfinder/internal/features"
	"github.com/MikeSquared-Agency/Pathfinder/internal/store"
)

type ProfileHandler struct {
	store store.Store
}

func NewProfileHandler(s store.Store) *ProfileHandler {
	return &ProfileHandler{store: s}
}

// Get returns the caller's saved financial profile.
// GET /api/v1/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetProfile(r.Context(), r.Header.Get(applicantHeader))
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "financial profile not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Put replaces the caller's saved profile. All eight attributes are required;
// other keys are ignored.
// PUT /api/v1/profile
func (h *ProfileHandler) Put(w http.ResponseWriter, r *http.Request) {
	var raw map[string]interface{}
	if err := decodeJSON(w, r, &raw); err != nil {
		writeError(w, err)
		return
	}
	if raw == nil {
		writeError(w, apperr.Validation("", "request body must be a JSON object"))
		return
	}
	parsed, err := features.ParseProfile(raw)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := parsed.CheckComplete(); err != nil {
		writeError(w, err)
		return
	}

	p := &store.FinancialProfile{
		ApplicantID: r.Header.Get(applicantHeader),
		Values:      make(map[string]float64, len(features.Names)),
	}
	for _, name := range features.Names {
		p.Values[name] = parsed[name]
	}
	if err := h.store.UpsertProfile(r.Context(), p); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}
