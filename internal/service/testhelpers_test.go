package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/devansh/coview/backend/internal/domain"
)

// fakeRepo is a scriptable TraversalRepository: a fixed catalog, per-product
// category sets, per-pair aggregation results and injectable errors at every
// stage.
type fakeRepo struct {
	mu sync.Mutex

	catalog    []domain.ProductID
	categories map[domain.ProductID][]domain.CategoryID
	coViewed   map[string][]domain.Entry
	coBought   []domain.Entry
	lastViews  []domain.ViewEvent

	pageErrs      map[int]error // by offset
	categoryErrs  map[domain.ProductID]error
	coViewedErrs  map[string]error
	coBoughtErr   error
	lastViewErr   error
	pageRequests  [][2]int
	coViewedCalls []string
}

func pairKey(p domain.ProductID, c domain.CategoryID) string {
	return fmt.Sprintf("%d/%d", p, c)
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		categories:   make(map[domain.ProductID][]domain.CategoryID),
		coViewed:     make(map[string][]domain.Entry),
		pageErrs:     make(map[int]error),
		categoryErrs: make(map[domain.ProductID]error),
		coViewedErrs: make(map[string]error),
	}
}

func (f *fakeRepo) ProductPage(ctx context.Context, offset, limit int) ([]domain.ProductID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageRequests = append(f.pageRequests, [2]int{offset, limit})
	if err := f.pageErrs[offset]; err != nil {
		return nil, err
	}
	if offset >= len(f.catalog) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.catalog) {
		end = len(f.catalog)
	}
	return append([]domain.ProductID(nil), f.catalog[offset:end]...), nil
}

func (f *fakeRepo) CategoriesOf(ctx context.Context, productID domain.ProductID) ([]domain.CategoryID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.categoryErrs[productID]; err != nil {
		return nil, err
	}
	return f.categories[productID], nil
}

func (f *fakeRepo) CoViewed(ctx context.Context, productID domain.ProductID, categoryID domain.CategoryID, limit int) ([]domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(productID, categoryID)
	f.coViewedCalls = append(f.coViewedCalls, key)
	if err := f.coViewedErrs[key]; err != nil {
		return nil, err
	}
	entries := f.coViewed[key]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return append([]domain.Entry(nil), entries...), nil
}

func (f *fakeRepo) CoBought(ctx context.Context, productID domain.ProductID, limit int) ([]domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.coBoughtErr != nil {
		return nil, f.coBoughtErr
	}
	entries := f.coBought
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return append([]domain.Entry(nil), entries...), nil
}

func (f *fakeRepo) LastView(ctx context.Context, limit int) ([]domain.ViewEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastViewErr != nil {
		return nil, f.lastViewErr
	}
	events := f.lastViews
	if len(events) > limit {
		events = events[:limit]
	}
	return append([]domain.ViewEvent(nil), events...), nil
}

func (f *fakeRepo) coViewedCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.coViewedCalls)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
