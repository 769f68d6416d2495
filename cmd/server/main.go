package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/devansh/coview/backend/internal/cache"
	"github.com/devansh/coview/backend/internal/config"
	"github.com/devansh/coview/backend/internal/graph"
	"github.com/devansh/coview/backend/internal/logging"
	"github.com/devansh/coview/backend/internal/repository"
	"github.com/devansh/coview/backend/internal/server"
	"github.com/devansh/coview/backend/internal/service"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	graphClient, err := buildGraphClient(ctx, cfg)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	store, err := buildStore(cfg)
	if err != nil {
		logger.Error("failed to open recommendation store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing recommendation store failed", "error", err)
		}
	}()

	repo := repository.New(graphClient)
	recommendations := service.NewRecommendationService(repo, store, logger, cfg.Builder.Limit)
	builder := service.NewBuilder(repo, store, logger, service.BuilderOptions{
		PageSize: cfg.Builder.PageSize,
		Limit:    cfg.Builder.Limit,
		Workers:  cfg.Builder.Workers,
	})
	runner := service.NewBuildRunner(ctx, builder, logger)
	apiHandlers := server.NewAPIHandlers(logger, recommendations, runner)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.ReadinessProbe{Client: graphClient, Store: store},
		API:              apiHandlers,
		MetricsEnabled:   cfg.Server.MetricsEnabled,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.Server, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildGraphClient(ctx context.Context, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, graph.ErrMissingURI
	}
	return graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
		QueryTimeout:   cfg.Graph.QueryTimeout,
	})
}

func buildStore(cfg config.Config) (cache.Store, error) {
	return cache.NewBadgerStore(cache.BadgerOptions{
		Path:     cfg.Cache.Path,
		InMemory: cfg.Cache.InMemory,
	})
}
