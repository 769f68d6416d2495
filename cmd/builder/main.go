package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/devansh/coview/backend/internal/cache"
	"github.com/devansh/coview/backend/internal/config"
	"github.com/devansh/coview/backend/internal/graph"
	"github.com/devansh/coview/backend/internal/logging"
	"github.com/devansh/coview/backend/internal/repository"
	"github.com/devansh/coview/backend/internal/service"
)

// The builder binary runs one full precompute pass and exits; scheduling is
// left to cron or an equivalent. The recommendation store is single-process,
// so this must not run while a server instance has the same store path open —
// co-located deployments use the server's rebuild endpoint instead.
func main() {
	var (
		pageSize = flag.Int("page-size", 0, "Catalog page size (overrides config)")
		limit    = flag.Int("limit", 0, "Recommendations kept per (product, category) pair (overrides config)")
		workers  = flag.Int("workers", 0, "Concurrent products per page (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *pageSize > 0 {
		cfg.Builder.PageSize = *pageSize
	}
	if *limit > 0 {
		cfg.Builder.Limit = *limit
	}
	if *workers > 0 {
		cfg.Builder.Workers = *workers
	}

	logger := logging.New(cfg.Logging).With("component", "builder-cli")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Graph.URI == "" {
		logger.Error("graph URI is required")
		os.Exit(1)
	}
	graphClient, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
		QueryTimeout:   cfg.Graph.QueryTimeout,
	})
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	store, err := cache.NewBadgerStore(cache.BadgerOptions{
		Path:     cfg.Cache.Path,
		InMemory: cfg.Cache.InMemory,
	})
	if err != nil {
		logger.Error("failed to open recommendation store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing recommendation store failed", "error", err)
		}
	}()

	builder := service.NewBuilder(repository.New(graphClient), store, logger, service.BuilderOptions{
		PageSize: cfg.Builder.PageSize,
		Limit:    cfg.Builder.Limit,
		Workers:  cfg.Builder.Workers,
	})

	stats, err := builder.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("build cancelled",
				"pairsWritten", stats.PairsWritten, "products", stats.Products)
			os.Exit(130)
		}
		logger.Error("build failed", "error", err,
			"pairsWritten", stats.PairsWritten, "products", stats.Products)
		os.Exit(1)
	}
}
