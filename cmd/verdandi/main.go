// Command verdandi runs the feature-flag service: the evaluation engine with
// its REST control plane, the observability server, and the optional
// Postgres syncer and Redis-backed assignment store.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rafaeljc/verdandi/internal/assignments"
	"github.com/rafaeljc/verdandi/internal/config"
	"github.com/rafaeljc/verdandi/internal/controlapi"
	"github.com/rafaeljc/verdandi/internal/database"
	"github.com/rafaeljc/verdandi/internal/engine"
	"github.com/rafaeljc/verdandi/internal/logger"
	"github.com/rafaeljc/verdandi/internal/observability"
	"github.com/rafaeljc/verdandi/internal/registry"
	"github.com/rafaeljc/verdandi/internal/store"
	"github.com/rafaeljc/verdandi/internal/syncer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("service failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(&cfg.App)
	slog.SetDefault(log)
	cfg.LogConfig(log)

	// Flag registry, optionally seeded with the bootstrap definitions.
	reg := registry.New(log)
	if cfg.Engine.SeedDefaults {
		if err := reg.Seed(registry.DefaultFlags()); err != nil {
			return fmt.Errorf("failed to seed default flags: %w", err)
		}
	}

	var checkers []observability.Checker

	// Optional Postgres persistence plus the hydration worker.
	var repo store.FlagRepository
	if cfg.Database.IsConfigured() {
		pool, err := database.NewPostgresPool(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		defer pool.Close()

		repo = store.NewPostgresStore(pool)
		checkers = append(checkers, database.NewHealthChecker(pool))

		if cfg.Syncer.Enabled {
			svc := syncer.New(log, syncer.Config{Interval: cfg.Syncer.Interval}, repo, reg)
			go func() {
				if err := svc.Run(ctx); err != nil {
					log.Error("syncer stopped", slog.String("error", err.Error()))
				}
			}()
		}
	}

	// Sticky assignment store.
	var sticky engine.StickyStore
	switch cfg.Engine.AssignmentBackend {
	case config.AssignmentBackendRedis:
		client, err := assignments.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		redisStore := assignments.NewRedis(client, cfg.Engine.AssignmentTTL, log)
		defer redisStore.Close()

		sticky = redisStore
		checkers = append(checkers, assignments.NewHealthChecker(client))
	default:
		memStore, err := assignments.NewMemory(cfg.Engine.AssignmentCapacity, cfg.Engine.AssignmentTTL)
		if err != nil {
			return fmt.Errorf("failed to build assignment store: %w", err)
		}
		defer memStore.Close()

		sticky = memStore
	}

	eng := engine.New(reg, sticky, log)

	// Observability server on its own port.
	obs := observability.NewServer(log, &cfg.Observability, checkers...)
	obs.Start()

	// Control plane (admin CRUD + evaluation endpoint).
	api := controlapi.NewAPIWithConfig(reg, eng, repo, cfg.Server.APIKeyHash, cfg.Server.APIKeyHash == "")
	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           api.Router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting server",
			slog.String("addr", server.Addr),
			slog.Bool("tls", cfg.Server.TLSEnabled),
		)

		var err error
		if cfg.Server.TLSEnabled {
			err = server.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Warn("observability shutdown failed", slog.String("error", err.Error()))
	}

	log.Info("service stopped")
	return nil
}
