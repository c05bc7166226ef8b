package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
	"github.com/MikeSquared-Agency/Pathfinder/internal/store"
)

const maxHistoryLimit = 50

type AssessmentsHandler struct {
	store store.Store
}

func NewAssessmentsHandler(s store.Store) *AssessmentsHandler {
	return &AssessmentsHandler{store: s}
}

// List returns the caller's most recent assessments, newest first.
// GET /api/v1/assessments?limit=
func (h *AssessmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", store.DefaultHistoryLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	if limit < 1 || limit > maxHistoryLimit {
		writeError(w, apperr.Validation("limit", "must be between 1 and %d", maxHistoryLimit))
		return
	}

	items, err := h.store.ListAssessments(r.Context(), r.Header.Get(applicantHeader), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if items == nil {
		items = []*store.Assessment{}
	}
	writeJSON(w, http.StatusOK, items)
}
