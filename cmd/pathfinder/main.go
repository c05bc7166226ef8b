package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MikeSquared-Agency/Pathfinder/internal/api"
	"github.com/MikeSquared-Agency/Pathfinder/internal/artifacts"
	"github.com/MikeSquared-Agency/Pathfinder/internal/config"
	"github.com/MikeSquared-Agency/Pathfinder/internal/hermes"
	"github.com/MikeSquared-Agency/Pathfinder/internal/marketplace"
	"github.com/MikeSquared-Agency/Pathfinder/internal/metrics"
	"github.com/MikeSquared-Agency/Pathfinder/internal/model"
	"github.com/MikeSquared-Agency/Pathfinder/internal/registry"
	"github.com/MikeSquared-Agency/Pathfinder/internal/scoring"
	"github.com/MikeSquared-Agency/Pathfinder/internal/store"
	"github.com/MikeSquared-Agency/Pathfinder/internal/training"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Assessment history and lender offers
	var db store.Store
	var pg *store.PostgresStore
	if cfg.Database.URL != "" {
		pg, err = store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		db = pg
		logger.Info("connected to database")
	} else {
		db = store.NewMemoryStore()
		logger.Warn("no database configured, history and offers are kept in memory")
	}
	defer db.Close()

	if n, err := marketplace.SeedDefaults(ctx, db); err != nil {
		logger.Warn("failed to seed lender offers", "error", err)
	} else if n > 0 {
		logger.Info("seeded lender offers", "count", n)
	}

	// Hermes (optional)
	var hermesClient hermes.Client
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}

	artifactStore, err := newArtifactStore(ctx, cfg.Artifacts, pg)
	if err != nil {
		logger.Error("failed to open artifact store", "error", err)
		os.Exit(1)
	}

	mx := metrics.New(prometheus.DefaultRegisterer)

	trainer := training.NewTrainer(training.Config{
		Samples:      cfg.Training.Samples,
		Seed:         cfg.Training.Seed,
		TestFraction: cfg.Training.TestFraction,
		Logistic: model.LogisticOptions{
			C:       cfg.Training.LogisticC,
			MaxIter: cfg.Training.LogisticMaxIter,
			Tol:     model.DefaultLogisticOptions().Tol,
		},
	}, logger)

	reg := registry.New(artifactStore, trainer, registry.Options{
		Thresholds: training.Thresholds{
			MinReadinessR2:      cfg.Training.MinReadinessR2,
			MinAPRR2:            cfg.Training.MinAPRR2,
			MinApprovalAccuracy: cfg.Training.MinApprovalAccuracy,
		},
		RefreshInterval: cfg.RefreshInterval(),
	}, hermesClient, mx, logger)

	// Serving starts only once a release passes integrity and quality checks.
	models, err := reg.Models(ctx)
	if err != nil {
		logger.Error("failed to load models", "error", err)
		os.Exit(1)
	}
	logger.Info("models ready", "release", models.Release(), "trained_at", models.TrainedAt())

	reg.Start(ctx)
	defer reg.Stop()

	engine := scoring.NewEngine(reg, hermesClient, mx, logger)

	// API server
	router := api.NewRouter(engine, reg, db, marketplace.New(db), hermesClient, mx, cfg, logger)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: api.NewMetricsRouter(prometheus.DefaultGatherer),
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// newArtifactStore opens the configured release store. The postgres backend
// shares the history database.
func newArtifactStore(ctx context.Context, cfg config.ArtifactsConfig, pg *store.PostgresStore) (artifacts.Store, error) {
	switch cfg.Backend {
	case "", "file":
		return artifacts.NewFileStore(cfg.Dir, cfg.Keep), nil
	case "memory":
		return artifacts.NewMemoryStore(), nil
	case "postgres":
		if pg == nil {
			return nil, fmt.Errorf("artifacts backend postgres requires database.url")
		}
		s := artifacts.NewPostgresStore(pg.Pool())
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown artifacts backend %q", cfg.Backend)
	}
}
