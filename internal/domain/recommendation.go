package domain

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// ProductID identifies a product vertex in the behavioral graph.
type ProductID int64

// CategoryID identifies a category vertex in the behavioral graph.
type CategoryID int64

// Entry is a single ranked recommendation candidate: a product and the number
// of traversal paths that linked it to the seed product through shared viewers.
type Entry struct {
	ProductID ProductID `json:"productId"`
	Count     int64     `json:"count"`
}

// Record is the unit stored in the recommendation cache for one
// (product, category) pair: candidates ordered by descending count, at most
// the configured limit, never containing the seed product.
type Record struct {
	Entries     []Entry   `json:"entries"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Key addresses one precomputed recommendation list.
type Key struct {
	ProductID  ProductID
	CategoryID CategoryID
}

const cacheKeyFormat = "vav_p_%d_c_%d"

// CacheKey serializes the key to its canonical cache string.
func (k Key) CacheKey() string {
	return fmt.Sprintf(cacheKeyFormat, k.ProductID, k.CategoryID)
}

// ParseCacheKey is the inverse of CacheKey.
func ParseCacheKey(s string) (Key, error) {
	var k Key
	n, err := fmt.Sscanf(s, cacheKeyFormat, &k.ProductID, &k.CategoryID)
	if err != nil {
		return Key{}, fmt.Errorf("parse cache key %q: %w", s, err)
	}
	if n != 2 || s != k.CacheKey() {
		return Key{}, fmt.Errorf("parse cache key %q: malformed", s)
	}
	return k, nil
}

// EncodeRecord serializes a record for cache storage.
func EncodeRecord(rec Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode recommendation record: %w", err)
	}
	return data, nil
}

// DecodeRecord deserializes cache bytes produced by EncodeRecord.
func DecodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode recommendation record: %w", err)
	}
	return rec, nil
}

// ViewEvent is a single view edge as returned by the last-view lookup.
type ViewEvent struct {
	UserID    string    `json:"userId"`
	ProductID ProductID `json:"productId"`
	ViewedAt  time.Time `json:"viewedAt"`
}
