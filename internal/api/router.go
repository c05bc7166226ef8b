package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Pathfinder/internal/config"
	"github.com/MikeSquared-Agency/Pathfinder/internal/hermes"
	"github.com/MikeSquared-Agency/Pathfinder/internal/marketplace"
	"github.com/MikeSquared-Agency/Pathfinder/internal/metrics"
	"github.com/MikeSquared-Agency/Pathfinder/internal/store"
)

const serviceName = "loanpathfinder-ml"

func NewRouter(e Engine, reg ModelRegistry, s store.Store, m *marketplace.Marketplace, h hermes.Client, mx *metrics.Metrics, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(cfg.Server.RateLimitPerMinute))
	if d := cfg.RequestTimeout(); d > 0 {
		r.Use(chiMiddleware.Timeout(d))
	}

	scores := NewScoringHandler(e, s, h, mx, logger)
	assessments := NewAssessmentsHandler(s)
	profiles := NewProfileHandler(s)
	market := NewMarketplaceHandler(m)
	admin := NewAdminHandler(reg, s)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "service": serviceName})
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		cur := reg.Current()
		if cur == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"ok": false, "reason": "models not loaded"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "release": cur.Release()})
	})
	r.Post("/predict", scores.Predict)
	r.Post("/simulate", scores.Simulate)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/predict", scores.Predict)
		r.Post("/simulate", scores.Simulate)
		r.Get("/marketplace", market.List)
		r.With(RequireApplicantID).Get("/assessments", assessments.List)
		r.Route("/profile", func(r chi.Router) {
			r.Use(RequireApplicantID)
			r.Get("/", profiles.Get)
			r.Put("/", profiles.Put)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.Server.AdminToken))
			r.Get("/model", admin.Model)
			r.Post("/retrain", admin.Retrain)
			r.Post("/offers", admin.UpsertOffer)
		})
	})

	return r
}

func NewMetricsRouter(g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return r
}
