// Package syncer implements the background worker that hydrates the
// in-memory flag registry from the PostgreSQL store. It makes the database
// the source of truth for deployments that configure one, while keeping the
// evaluation path free of I/O.
package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/rafaeljc/verdandi/internal/observability"
	"github.com/rafaeljc/verdandi/internal/registry"
	"github.com/rafaeljc/verdandi/internal/store"
)

// Config holds the configuration for the syncer service.
type Config struct {
	// Interval is the duration between hydration cycles.
	Interval time.Duration
}

// Service orchestrates the hydration loop.
type Service struct {
	logger   *slog.Logger
	config   Config
	repo     store.FlagRepository
	registry *registry.Registry
}

// New creates a syncer.
func New(logger *slog.Logger, cfg Config, repo store.FlagRepository, reg *registry.Registry) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if repo == nil {
		panic("syncer: flag repository cannot be nil")
	}
	if reg == nil {
		panic("syncer: registry cannot be nil")
	}

	if cfg.Interval < time.Second {
		cfg.Interval = 30 * time.Second // Safe default
	}

	return &Service{
		logger:   logger,
		config:   cfg,
		repo:     repo,
		registry: reg,
	}
}

// Run starts the hydration loop. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("starting syncer service", slog.String("interval", s.config.Interval.String()))

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Hydrate once immediately so the registry is warm before traffic.
	if err := s.sync(ctx); err != nil {
		s.logger.Error("initial sync failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("syncer service stopping...")
			return nil
		case <-ticker.C:
			if err := s.sync(ctx); err != nil {
				// Log and retry on the next tick; a failed cycle leaves the
				// previous registry contents serving.
				s.logger.Error("sync cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// sync performs a single hydration cycle: read everything from the store,
// swap the registry contents in one step.
func (s *Service) sync(ctx context.Context) error {
	start := time.Now()

	flags, err := s.repo.ListAllFlags(ctx)
	if err != nil {
		observability.SyncerCyclesTotal.WithLabelValues("fail").Inc()
		return err
	}

	s.registry.Replace(flags)

	observability.SyncerCyclesTotal.WithLabelValues("success").Inc()
	observability.SyncerCycleDuration.Observe(time.Since(start).Seconds())

	s.logger.Info("sync cycle completed",
		slog.Int("flags", len(flags)),
		slog.String("duration", time.Since(start).String()),
	)
	return nil
}
