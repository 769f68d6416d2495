package cache

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func testStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("absent key: got ok=%v err=%v", ok, err)
	}

	if err := store.Put(ctx, "k1", []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}

	// A successful Put must be immediately visible.
	value, ok, err := store.Get(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("get after put: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(value, []byte("v1")) {
		t.Fatalf("unexpected value %q", value)
	}

	// Overwrite replaces, never appends.
	if err := store.Put(ctx, "k1", []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, ok, err = store.Get(ctx, "k1")
	if err != nil || !ok || !bytes.Equal(value, []byte("v2")) {
		t.Fatalf("get after overwrite: %q ok=%v err=%v", value, ok, err)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	testStore(t, store)
}

func TestBadgerStore(t *testing.T) {
	store, err := NewBadgerStore(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	testStore(t, store)
}

func TestBadgerStoreOnDisk(t *testing.T) {
	store, err := NewBadgerStore(BadgerOptions{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	testStore(t, store)
}

func TestMemoryStoreInjectedFailure(t *testing.T) {
	boom := errors.New("store offline")
	store := NewMemoryStore().FailWith(boom)

	if err := store.Put(context.Background(), "k", nil); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if _, _, err := store.Get(context.Background(), "k"); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
}

func TestStoreHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore()
	if err := store.Put(ctx, "k", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
