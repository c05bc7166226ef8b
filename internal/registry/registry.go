// Package registry owns the models being served. It loads the current
// release from the artifact store, trains one when none exists, and swaps in
// new releases atomically.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
	"github.com/MikeSquared-Agency/Pathfinder/internal/artifacts"
	"github.com/MikeSquared-Agency/Pathfinder/internal/hermes"
	"github.com/MikeSquared-Agency/Pathfinder/internal/metrics"
	"github.com/MikeSquared-Agency/Pathfinder/internal/model"
	"github.com/MikeSquared-Agency/Pathfinder/internal/scoring"
	"github.com/MikeSquared-Agency/Pathfinder/internal/training"
)

// Trainer produces a fresh bundle. *training.Trainer implements it.
type Trainer interface {
	Train(ctx context.Context) (*model.Bundle, error)
}

type Options struct {
	Thresholds training.Thresholds
	// RefreshInterval is how often the store is polled for a newer release.
	// Zero disables polling.
	RefreshInterval time.Duration
}

type Registry struct {
	store   artifacts.Store
	trainer Trainer
	opts    Options
	events  hermes.Client
	metrics *metrics.Metrics
	logger  *slog.Logger

	current atomic.Pointer[scoring.Models]
	group   singleflight.Group
	trainMu sync.Mutex

	refreshCh chan struct{}
	stopOnce  sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func New(s artifacts.Store, t Trainer, opts Options, h hermes.Client, m *metrics.Metrics, logger *slog.Logger) *Registry {
	return &Registry{
		store:     s,
		trainer:   t,
		opts:      opts,
		events:    h,
		metrics:   m,
		logger:    logger,
		refreshCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Current returns the models being served, or nil before the first load.
func (r *Registry) Current() *scoring.Models {
	return r.current.Load()
}

// Models returns the served models, loading or training them on first use.
// Concurrent first callers share a single load; a caller whose ctx ends
// first gets an UnavailableError while the load carries on.
func (r *Registry) Models(ctx context.Context) (*scoring.Models, error) {
	if m := r.current.Load(); m != nil {
		return m, nil
	}
	ch := r.group.DoChan("bootstrap", func() (interface{}, error) {
		if m := r.current.Load(); m != nil {
			return m, nil
		}
		return r.loadOrTrain(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, &apperr.UnavailableError{Reason: "models are still loading", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*scoring.Models), nil
	}
}

func (r *Registry) loadOrTrain(ctx context.Context) (*scoring.Models, error) {
	b, err := r.store.Load(ctx)
	switch {
	case errors.Is(err, artifacts.ErrNotFound):
		r.logger.Info("no model release found, training")
		return r.train(ctx, "bootstrap")
	case err != nil && apperr.Kind(err) == "integrity":
		return nil, err
	case err != nil:
		return nil, &apperr.UnavailableError{Reason: "load model release", Err: err}
	}
	m, err := r.install(b)
	if err != nil {
		return nil, err
	}
	r.logger.Info("model release loaded", "release", m.Release(), "trained_at", m.TrainedAt())
	return m, nil
}

// Retrain fits a new bundle, persists it and swaps it in. The previous models
// stay in service if training, the quality check or persistence fails.
func (r *Registry) Retrain(ctx context.Context) (*scoring.Models, error) {
	return r.train(ctx, "retrain")
}

func (r *Registry) train(ctx context.Context, trigger string) (*scoring.Models, error) {
	r.trainMu.Lock()
	defer r.trainMu.Unlock()

	start := time.Now()
	b, err := r.trainer.Train(ctx)
	r.metrics.ObserveTraining(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("train models: %w", err)
	}
	if err := r.opts.Thresholds.Check(b.Metrics); err != nil {
		r.logger.Error("trained models rejected", "trigger", trigger, "error", err)
		return nil, err
	}
	// Validate before saving so a broken bundle never becomes a release.
	if _, err := scoring.NewModels(b); err != nil {
		return nil, err
	}
	id, err := r.store.Save(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("save model release: %w", err)
	}
	b.Release = id

	m, err := r.install(b)
	if err != nil {
		return nil, err
	}
	r.logger.Info("model release published", "release", id, "trigger", trigger)

	if r.events != nil {
		evt := hermes.ModelTrainedEvent{
			Release:          id,
			TrainedAt:        b.TrainedAt,
			TrainSamples:     b.Metrics.TrainSamples,
			TestSamples:      b.Metrics.TestSamples,
			ReadinessR2:      b.Metrics.ReadinessR2,
			APRR2:            b.Metrics.APRR2,
			ApprovalAccuracy: b.Metrics.ApprovalAccuracy,
			Trigger:          trigger,
		}
		if err := r.events.Publish(hermes.SubjectModelTrained, evt); err != nil {
			r.logger.Warn("failed to publish model trained event", "error", err)
		}
	}
	return m, nil
}

func (r *Registry) install(b *model.Bundle) (*scoring.Models, error) {
	m, err := scoring.NewModels(b)
	if err != nil {
		return nil, err
	}
	r.current.Store(m)
	r.metrics.SetModelQuality(m.Metrics())
	return m, nil
}

// Refresh swaps in the store's current release if it differs from the one
// being served. It does nothing before the first load.
func (r *Registry) Refresh(ctx context.Context) error {
	cur := r.current.Load()
	if cur == nil {
		return nil
	}
	id, err := r.store.Current(ctx)
	if err != nil {
		return err
	}
	if id == cur.Release() {
		return nil
	}
	b, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	m, err := r.install(b)
	if err != nil {
		return err
	}
	r.logger.Info("model release reloaded", "release", m.Release(), "previous", cur.Release())
	return nil
}

// Start runs the refresh loop. Releases are picked up on every tick and
// whenever another instance announces one on the event bus.
func (r *Registry) Start(ctx context.Context) {
	if r.events != nil {
		err := r.events.Subscribe(hermes.SubjectModelTrained, func(_ string, _ []byte) {
			select {
			case r.refreshCh <- struct{}{}:
			default:
			}
		})
		if err != nil {
			r.logger.Warn("failed to subscribe to model events", "error", err)
		}
	}
	r.wg.Add(1)
	go r.refreshLoop(ctx)
}

func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

func (r *Registry) refreshLoop(ctx context.Context) {
	defer r.wg.Done()
	var tick <-chan time.Time
	if r.opts.RefreshInterval > 0 {
		ticker := time.NewTicker(r.opts.RefreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-tick:
		case <-r.refreshCh:
		}
		if err := r.Refresh(ctx); err != nil {
			r.logger.Error("model refresh failed", "error", err)
		}
	}
}
