package cache

import "context"

// Store is the durable key-value contract the recommendation system needs:
// no TTL (entries live until overwritten by a later build), per-key atomic
// overwrite, and read-your-writes visibility — a Put that returned nil must
// be observable by an immediately following Get from any goroutine.
type Store interface {
	// Put stores value under key, overwriting any prior value.
	Put(ctx context.Context, key string, value []byte) error
	// Get returns the value for key. ok is false when the key is absent;
	// absence is not an error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Close() error
}
