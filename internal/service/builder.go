package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/devansh/coview/backend/internal/cache"
	"github.com/devansh/coview/backend/internal/domain"
	"github.com/devansh/coview/backend/internal/graph"
	"github.com/devansh/coview/backend/internal/metrics"
)

// TraversalRepository is the graph query contract the recommendation system
// consumes.
type TraversalRepository interface {
	ProductPage(ctx context.Context, offset, limit int) ([]domain.ProductID, error)
	CategoriesOf(ctx context.Context, productID domain.ProductID) ([]domain.CategoryID, error)
	CoViewed(ctx context.Context, productID domain.ProductID, categoryID domain.CategoryID, limit int) ([]domain.Entry, error)
	CoBought(ctx context.Context, productID domain.ProductID, limit int) ([]domain.Entry, error)
	LastView(ctx context.Context, limit int) ([]domain.ViewEvent, error)
}

const (
	defaultPageSize = 100
	defaultLimit    = 20
)

// Builder precomputes the who-view-also-view recommendation lists: it pages
// through the catalog, discovers each product's categories, runs the
// co-occurrence aggregation per (product, category) pair and persists each
// ranked list in the recommendation store, overwriting any prior value.
type Builder struct {
	repo     TraversalRepository
	store    cache.Store
	logger   *slog.Logger
	pageSize int
	limit    int
	workers  int
	nowFn    func() time.Time
}

// BuilderOptions tunes a Builder; zero values fall back to defaults.
type BuilderOptions struct {
	PageSize int
	Limit    int
	Workers  int
}

// NewBuilder constructs a Builder.
func NewBuilder(repo TraversalRepository, store cache.Store, logger *slog.Logger, opts BuilderOptions) *Builder {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Builder{
		repo:     repo,
		store:    store,
		logger:   logger.With("component", "builder"),
		pageSize: opts.PageSize,
		limit:    opts.Limit,
		workers:  opts.Workers,
		nowFn:    time.Now,
	}
}

// BuildStats summarizes one builder run.
type BuildStats struct {
	Pages           int
	Products        int
	ProductsSkipped int
	PairsWritten    int
	PairsSkipped    int
	// Halted is set when the graph engine became unavailable and the run
	// stopped cleanly, keeping everything written so far.
	Halted bool
}

// Run executes one full precompute pass. Catalog pages are requested as
// non-overlapping windows [offset, offset+pageSize) until an empty page
// signals exhaustion. A category-discovery failure degrades the affected
// product to zero categories; an aggregation failure skips only that
// (product, category) pair; engine unavailability halts the run cleanly with
// a nil error. Store failures and context cancellation abort the run with an
// error. Every write is a full record for one pair, so cancellation never
// leaves a half-formed entry.
func (b *Builder) Run(ctx context.Context) (BuildStats, error) {
	var stats BuildStats
	start := b.nowFn()
	b.logger.Info("starting recommendation build",
		"pageSize", b.pageSize, "limit", b.limit, "workers", b.workers)

	for offset := 0; ; offset += b.pageSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		page, err := b.repo.ProductPage(ctx, offset, b.pageSize)
		if err != nil {
			metrics.BuildFailures.WithLabelValues("page").Inc()
			if graph.IsUnavailable(err) {
				b.logger.Error("graph engine unavailable, stopping build", "offset", offset, "error", err)
				stats.Halted = true
				break
			}
			return stats, fmt.Errorf("fetch product page at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}

		stats.Pages++
		metrics.BuildPages.Inc()
		b.logger.Info("processing products", "count", len(page), "offset", offset)

		halted, err := b.processPage(ctx, page, &stats)
		if err != nil {
			return stats, err
		}
		if halted {
			stats.Halted = true
			break
		}
	}

	metrics.BuildLastRun.SetToCurrentTime()
	b.logger.Info("recommendation build finished",
		"pages", stats.Pages,
		"products", stats.Products,
		"productsSkipped", stats.ProductsSkipped,
		"pairsWritten", stats.PairsWritten,
		"pairsSkipped", stats.PairsSkipped,
		"halted", stats.Halted,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return stats, nil
}

func (b *Builder) processPage(ctx context.Context, page []domain.ProductID, stats *BuildStats) (bool, error) {
	if b.workers <= 1 || len(page) == 1 {
		for _, productID := range page {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			res := b.processProduct(ctx, productID)
			stats.absorb(res)
			if res.halted {
				return true, nil
			}
			if res.err != nil {
				return false, res.err
			}
		}
		return false, nil
	}
	return b.processPageConcurrently(ctx, page, stats)
}

// processPageConcurrently fans the page's products out to a bounded worker
// pool. Keys are unique per (product, category), so writers never race; the
// first halt or hard failure stops the intake of new products while in-flight
// work drains.
func (b *Builder) processPageConcurrently(ctx context.Context, page []domain.ProductID, stats *BuildStats) (bool, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := b.workers
	if workers > len(page) {
		workers = len(page)
	}

	productCh := make(chan domain.ProductID)
	resultCh := make(chan productResult, len(page))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for productID := range productCh {
				res := b.processProduct(runCtx, productID)
				resultCh <- res
				if res.halted || res.err != nil {
					cancel()
					return
				}
			}
		}()
	}

feed:
	for _, productID := range page {
		select {
		case productCh <- productID:
		case <-runCtx.Done():
			break feed
		}
	}
	close(productCh)
	wg.Wait()
	close(resultCh)

	var halted bool
	var firstErr error
	for res := range resultCh {
		stats.absorb(res)
		if res.halted {
			halted = true
		}
		if res.err != nil && firstErr == nil && !errors.Is(res.err, context.Canceled) {
			firstErr = res.err
		}
	}

	// External cancellation wins over errors caused by our own cancel.
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return halted, firstErr
}

type productResult struct {
	processed    bool
	skipped      bool
	pairsWritten int
	pairsSkipped int
	halted       bool
	err          error
}

func (s *BuildStats) absorb(res productResult) {
	if res.processed {
		s.Products++
	}
	if res.skipped {
		s.ProductsSkipped++
	}
	s.PairsWritten += res.pairsWritten
	s.PairsSkipped += res.pairsSkipped
}

func (b *Builder) processProduct(ctx context.Context, productID domain.ProductID) productResult {
	var res productResult
	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}

	categories, err := b.repo.CategoriesOf(ctx, productID)
	if err != nil {
		metrics.BuildFailures.WithLabelValues("categories").Inc()
		if graph.IsUnavailable(err) {
			res.halted = true
			return res
		}
		if errors.Is(err, context.Canceled) {
			res.err = err
			return res
		}
		// Degrade to zero categories: the product produces no entries this
		// run and the page moves on.
		b.logger.Warn("category discovery failed, skipping product", "productId", productID, "error", err)
		res.skipped = true
		return res
	}

	res.processed = true
	metrics.BuildProducts.Inc()

	for _, categoryID := range categories {
		entries, err := b.repo.CoViewed(ctx, productID, categoryID, b.limit)
		if err != nil {
			metrics.BuildFailures.WithLabelValues("aggregate").Inc()
			if graph.IsUnavailable(err) {
				res.halted = true
				return res
			}
			if errors.Is(err, context.Canceled) {
				res.err = err
				return res
			}
			b.logger.Warn("co-view aggregation failed, skipping pair",
				"productId", productID, "categoryId", categoryID, "error", err)
			res.pairsSkipped++
			continue
		}

		key := domain.Key{ProductID: productID, CategoryID: categoryID}
		data, err := domain.EncodeRecord(domain.Record{
			Entries:     entries,
			GeneratedAt: b.nowFn().UTC(),
		})
		if err != nil {
			res.err = err
			return res
		}
		if err := b.store.Put(ctx, key.CacheKey(), data); err != nil {
			metrics.BuildFailures.WithLabelValues("store").Inc()
			res.err = fmt.Errorf("store recommendations for %s: %w", key.CacheKey(), err)
			return res
		}
		res.pairsWritten++
		metrics.BuildPairsWritten.Inc()
	}
	return res
}
