package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
	"github.com/MikeSquared-Agency/Pathfinder/internal/features"
	"github.com/MikeSquared-Agency/Pathfinder/internal/hermes"
	"github.com/MikeSquared-Agency/Pathfinder/internal/metrics"
	"github.com/MikeSquared-Agency/Pathfinder/internal/scoring"
	"github.com/MikeSquared-Agency/Pathfinder/internal/store"
)

// Engine is the scoring surface the handlers need.
type Engine interface {
	Predict(ctx context.Context, p features.Profile) (*scoring.Prediction, error)
	Simulate(ctx context.Context, profile, adjustments features.Profile) (*scoring.Simulation, error)
}

type ScoringHandler struct {
	engine  Engine
	store   store.Store
	hermes  hermes.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewScoringHandler(e Engine, s store.Store, h hermes.Client, m *metrics.Metrics, logger *slog.Logger) *ScoringHandler {
	return &ScoringHandler{engine: e, store: s, hermes: h, metrics: m, logger: logger}
}

// Predict scores the posted profile and explains the readiness score. With an
// X-Applicant-ID header the scores are also added to the applicant's history,
// and an empty body scores the applicant's saved profile.
// POST /predict
func (h *ScoringHandler) Predict(w http.ResponseWriter, r *http.Request) {
	applicant := r.Header.Get(applicantHeader)

	var profile features.Profile
	var raw map[string]interface{}
	err := decodeJSON(w, r, &raw)
	switch {
	case errors.Is(err, errEmptyBody) && applicant != "":
		profile, err = h.savedProfile(r.Context(), applicant)
	case err != nil:
	case raw == nil:
		err = apperr.Validation("", "request body must be a JSON object")
	default:
		profile, err = features.ParseProfile(raw)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	pred, err := h.engine.Predict(r.Context(), profile)
	if err != nil {
		h.logger.Warn("prediction failed", "error", err)
		writeError(w, err)
		return
	}

	if applicant != "" {
		h.record(r.Context(), applicant, profile, pred)
	}
	writeJSON(w, http.StatusOK, pred)
}

// savedProfile loads the applicant's stored profile. A missing profile is a
// validation error.
func (h *ScoringHandler) savedProfile(ctx context.Context, applicant string) (features.Profile, error) {
	p, err := h.store.GetProfile(ctx, applicant)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Validation("profile", "please complete your financial profile first")
	}
	if err != nil {
		return nil, err
	}
	return features.Profile(p.Values), nil
}

// record stores the assessment and announces it. History is best effort: the
// prediction is still returned when it cannot be written.
func (h *ScoringHandler) record(ctx context.Context, applicant string, profile features.Profile, pred *scoring.Prediction) {
	a := &store.Assessment{
		ApplicantID:         applicant,
		Release:             pred.Release,
		LRS:                 pred.LRS,
		APREstimate:         pred.APREstimate,
		ApprovalProbability: pred.ApprovalProbability,
		Profile:             profile,
	}
	if err := h.store.CreateAssessment(ctx, a); err != nil {
		h.logger.Error("failed to store assessment", "applicant", applicant, "error", err)
		return
	}
	h.metrics.AssessmentStored()

	if h.hermes != nil {
		evt := hermes.AssessmentCompletedEvent{
			AssessmentID:        a.ID.String(),
			ApplicantID:         applicant,
			Release:             a.Release,
			LRS:                 a.LRS,
			APREstimate:         a.APREstimate,
			ApprovalProbability: a.ApprovalProbability,
			CreatedAt:           a.CreatedAt,
		}
		if err := h.hermes.Publish(hermes.SubjectAssessmentCompleted(a.ID.String()), evt); err != nil {
			h.logger.Warn("failed to publish assessment event", "error", err)
		}
	}
}

type simulateRequest struct {
	Profile     map[string]interface{} `json:"profile"`
	Adjustments map[string]interface{} `json:"adjustments"`
}

// Simulate reports before/after/delta scores for a profile and a set of
// attribute deltas. Without a profile in the body an X-Applicant-ID caller
// simulates against their saved profile.
// POST /simulate
func (h *ScoringHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	applicant := r.Header.Get(applicantHeader)

	var req simulateRequest
	if err := decodeJSON(w, r, &req); err != nil && !(errors.Is(err, errEmptyBody) && applicant != "") {
		writeError(w, err)
		return
	}

	var profile features.Profile
	var err error
	if req.Profile == nil && applicant != "" {
		profile, err = h.savedProfile(r.Context(), applicant)
	} else {
		profile, err = features.ParseProfile(req.Profile)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	adjustments, err := features.ParseProfile(req.Adjustments)
	if err != nil {
		writeError(w, err)
		return
	}

	sim, err := h.engine.Simulate(r.Context(), profile, adjustments)
	if err != nil {
		h.logger.Warn("simulation failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sim)
}
