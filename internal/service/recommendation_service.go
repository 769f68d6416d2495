package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/devansh/coview/backend/internal/cache"
	"github.com/devansh/coview/backend/internal/domain"
	"github.com/devansh/coview/backend/internal/metrics"
)

// Validation errors map to client-error responses at the API layer.
var (
	ErrProductRequired  = errors.New("product is required")
	ErrCategoryRequired = errors.New("category is required")
)

// RecommendationService answers the three read paths: who-view-also-view
// (cache-first with a live fallback), who-view-bought and last-view (always
// live, first result only).
type RecommendationService struct {
	repo   TraversalRepository
	store  cache.Store
	logger *slog.Logger
	limit  int
}

// NewRecommendationService constructs the serving facade. limit bounds the
// live fallback aggregation; zero selects the default.
func NewRecommendationService(repo TraversalRepository, store cache.Store, logger *slog.Logger, limit int) *RecommendationService {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &RecommendationService{
		repo:   repo,
		store:  store,
		logger: logger.With("component", "recommendations"),
		limit:  limit,
	}
}

// WhoViewAlsoView returns the precomputed recommendation list for the
// (product, category) pair. Both identifiers are required. A cached record is
// returned verbatim — already ordered and limited by the build that wrote
// it. On a cache miss the same aggregation runs live with the default limit;
// the result is not written back, the builder stays the only cache writer.
func (s *RecommendationService) WhoViewAlsoView(ctx context.Context, productID *domain.ProductID, categoryID *domain.CategoryID) ([]domain.Entry, error) {
	if productID == nil {
		return nil, ErrProductRequired
	}
	if categoryID == nil {
		return nil, ErrCategoryRequired
	}

	key := domain.Key{ProductID: *productID, CategoryID: *categoryID}
	raw, ok, err := s.store.Get(ctx, key.CacheKey())
	if err != nil {
		return nil, fmt.Errorf("read recommendation cache %s: %w", key.CacheKey(), err)
	}
	if ok {
		record, err := domain.DecodeRecord(raw)
		if err == nil {
			metrics.CacheHits.Inc()
			s.logger.Debug("serving cached recommendations",
				"key", key.CacheKey(), "generatedAt", record.GeneratedAt)
			return record.Entries, nil
		}
		// A corrupt record falls through to the live path rather than
		// failing the request; the next build overwrites it.
		s.logger.Error("corrupt recommendation record", "key", key.CacheKey(), "error", err)
	}

	metrics.CacheMisses.Inc()
	entries, err := s.repo.CoViewed(ctx, *productID, *categoryID, s.limit)
	if err != nil {
		return nil, fmt.Errorf("live co-view aggregation: %w", err)
	}
	return entries, nil
}

// WhoViewBoughtInput is the typed request for the who-view-bought lookup.
type WhoViewBoughtInput struct {
	ProductID *domain.ProductID
	Limit     int
}

// WhoViewBought runs the viewed-then-bought traversal live and returns the
// top-ranked candidate, or nil when the traversal matched nothing. An empty
// result is not an error.
func (s *RecommendationService) WhoViewBought(ctx context.Context, input WhoViewBoughtInput) (*domain.Entry, error) {
	if input.ProductID == nil {
		return nil, ErrProductRequired
	}
	limit := input.Limit
	if limit <= 0 {
		limit = s.limit
	}

	entries, err := s.repo.CoBought(ctx, *input.ProductID, limit)
	if err != nil {
		return nil, fmt.Errorf("co-bought lookup: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	first := entries[0]
	return &first, nil
}

// LastView returns the most recent view event across the whole graph, or nil
// when no views exist.
func (s *RecommendationService) LastView(ctx context.Context) (*domain.ViewEvent, error) {
	events, err := s.repo.LastView(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("last view lookup: %w", err)
	}
	if len(events) == 0 {
		return nil, nil
	}
	first := events[0]
	return &first, nil
}
