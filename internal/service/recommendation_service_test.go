package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devansh/coview/backend/internal/cache"
	"github.com/devansh/coview/backend/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func seedRecord(t *testing.T, store *cache.MemoryStore, key domain.Key, entries []domain.Entry) {
	t.Helper()
	data, err := domain.EncodeRecord(domain.Record{
		Entries:     entries,
		GeneratedAt: fixedClock(),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := store.Put(context.Background(), key.CacheKey(), data); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestWhoViewAlsoViewServesCacheVerbatim(t *testing.T) {
	repo := newFakeRepo()
	store := cache.NewMemoryStore()
	cached := []domain.Entry{
		{ProductID: 8, Count: 12},
		{ProductID: 3, Count: 5},
	}
	seedRecord(t, store, domain.Key{ProductID: 1, CategoryID: 10}, cached)

	svc := NewRecommendationService(repo, store, testLogger(), 20)
	entries, err := svc.WhoViewAlsoView(context.Background(), ptr(domain.ProductID(1)), ptr(domain.CategoryID(10)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != len(cached) {
		t.Fatalf("expected %d entries, got %d", len(cached), len(entries))
	}
	for i, entry := range entries {
		if entry != cached[i] {
			t.Fatalf("entry %d mismatch: got %+v want %+v", i, entry, cached[i])
		}
	}
	if repo.coViewedCallCount() != 0 {
		t.Fatal("cache hit must not issue a live traversal")
	}
}

func TestWhoViewAlsoViewFallsBackLiveOnMiss(t *testing.T) {
	repo := newFakeRepo()
	repo.coViewed[pairKey(1, 10)] = []domain.Entry{{ProductID: 4, Count: 2}}
	store := cache.NewMemoryStore()

	svc := NewRecommendationService(repo, store, testLogger(), 20)
	entries, err := svc.WhoViewAlsoView(context.Background(), ptr(domain.ProductID(1)), ptr(domain.CategoryID(10)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].ProductID != 4 {
		t.Fatalf("unexpected entries %v", entries)
	}
	if repo.coViewedCallCount() != 1 {
		t.Fatalf("expected exactly one live traversal, got %d", repo.coViewedCallCount())
	}
	// The serving path never writes: the builder is the sole cache writer.
	if store.Len() != 0 {
		t.Fatalf("fallback must not populate the cache, found %d keys", store.Len())
	}
}

func TestWhoViewAlsoViewValidation(t *testing.T) {
	svc := NewRecommendationService(newFakeRepo(), cache.NewMemoryStore(), testLogger(), 20)

	if _, err := svc.WhoViewAlsoView(context.Background(), nil, ptr(domain.CategoryID(10))); !errors.Is(err, ErrProductRequired) {
		t.Fatalf("expected ErrProductRequired, got %v", err)
	}
	if _, err := svc.WhoViewAlsoView(context.Background(), ptr(domain.ProductID(1)), nil); !errors.Is(err, ErrCategoryRequired) {
		t.Fatalf("expected ErrCategoryRequired, got %v", err)
	}
}

func TestWhoViewAlsoViewSurfacesStoreFailure(t *testing.T) {
	boom := errors.New("store offline")
	store := cache.NewMemoryStore().FailWith(boom)
	svc := NewRecommendationService(newFakeRepo(), store, testLogger(), 20)

	if _, err := svc.WhoViewAlsoView(context.Background(), ptr(domain.ProductID(1)), ptr(domain.CategoryID(10))); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestWhoViewAlsoViewFallsBackOnCorruptRecord(t *testing.T) {
	repo := newFakeRepo()
	repo.coViewed[pairKey(1, 10)] = []domain.Entry{{ProductID: 6, Count: 1}}
	store := cache.NewMemoryStore()
	key := domain.Key{ProductID: 1, CategoryID: 10}
	if err := store.Put(context.Background(), key.CacheKey(), []byte("{broken")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := NewRecommendationService(repo, store, testLogger(), 20)
	entries, err := svc.WhoViewAlsoView(context.Background(), ptr(domain.ProductID(1)), ptr(domain.CategoryID(10)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].ProductID != 6 {
		t.Fatalf("unexpected entries %v", entries)
	}
}

func TestWhoViewBoughtReturnsFirstResult(t *testing.T) {
	repo := newFakeRepo()
	repo.coBought = []domain.Entry{
		{ProductID: 50, Count: 8},
		{ProductID: 51, Count: 2},
	}

	svc := NewRecommendationService(repo, cache.NewMemoryStore(), testLogger(), 20)
	entry, err := svc.WhoViewBought(context.Background(), WhoViewBoughtInput{ProductID: ptr(domain.ProductID(5))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry == nil || entry.ProductID != 50 || entry.Count != 8 {
		t.Fatalf("expected first ranked entry, got %+v", entry)
	}
}

func TestWhoViewBoughtEmptyResultIsNotAnError(t *testing.T) {
	svc := NewRecommendationService(newFakeRepo(), cache.NewMemoryStore(), testLogger(), 20)
	entry, err := svc.WhoViewBought(context.Background(), WhoViewBoughtInput{ProductID: ptr(domain.ProductID(5))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected nil entry, got %+v", entry)
	}
}

func TestWhoViewBoughtValidation(t *testing.T) {
	svc := NewRecommendationService(newFakeRepo(), cache.NewMemoryStore(), testLogger(), 20)
	if _, err := svc.WhoViewBought(context.Background(), WhoViewBoughtInput{}); !errors.Is(err, ErrProductRequired) {
		t.Fatalf("expected ErrProductRequired, got %v", err)
	}
}

func TestLastViewReturnsFirstEventOrNil(t *testing.T) {
	repo := newFakeRepo()
	svc := NewRecommendationService(repo, cache.NewMemoryStore(), testLogger(), 20)

	event, err := svc.LastView(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event != nil {
		t.Fatalf("expected nil event, got %+v", event)
	}

	repo.lastViews = []domain.ViewEvent{
		{UserID: "USR-1", ProductID: 7, ViewedAt: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)},
		{UserID: "USR-2", ProductID: 8, ViewedAt: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)},
	}
	event, err = svc.LastView(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event == nil || event.UserID != "USR-1" || event.ProductID != 7 {
		t.Fatalf("expected newest view event, got %+v", event)
	}
}

func TestBuildRunnerSerializesRuns(t *testing.T) {
	repo := newFakeRepo()
	repo.catalog = []domain.ProductID{1}

	// Stall the run inside category discovery so the second Start observes
	// an in-flight build.
	blocker := make(chan struct{})
	started := make(chan struct{})
	builder := NewBuilder(&blockingRepo{fakeRepo: repo, started: started, release: blocker}, cache.NewMemoryStore(), testLogger(), BuilderOptions{})
	builder.nowFn = fixedClock
	runner := NewBuildRunner(context.Background(), builder, testLogger())

	if err := runner.Start(); err != nil {
		t.Fatalf("first start: %v", err)
	}
	<-started
	if err := runner.Start(); !errors.Is(err, ErrBuildInProgress) {
		t.Fatalf("expected ErrBuildInProgress, got %v", err)
	}
	close(blocker)

	deadline := time.After(2 * time.Second)
	for runner.Running() {
		select {
		case <-deadline:
			t.Fatal("runner did not finish")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if err := runner.Start(); err != nil {
		t.Fatalf("restart after completion: %v", err)
	}
}

// blockingRepo stalls the first CategoriesOf call until released.
type blockingRepo struct {
	*fakeRepo
	started chan struct{}
	release chan struct{}
	once    bool
}

func (b *blockingRepo) CategoriesOf(ctx context.Context, productID domain.ProductID) ([]domain.CategoryID, error) {
	if !b.once {
		b.once = true
		close(b.started)
		<-b.release
	}
	return b.fakeRepo.CategoriesOf(ctx, productID)
}
