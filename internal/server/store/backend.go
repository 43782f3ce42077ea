package store

import "context"

// Backend is the key-value surface a storage engine provides to the store.
// Keys are digest strings, values are encoded records. Implementations must
// be safe for concurrent use.
type Backend interface {
	// Get returns the value stored under key, or an error wrapping
	// common.ErrorNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// ForEachKey calls fn for every stored key. The order is unspecified.
	// When fn returns an error the iteration stops and the error is
	// returned. fn may read and delete keys through the backend.
	ForEachKey(ctx context.Context, fn func(key string) error) error

	// Flush makes buffered writes durable. Engines that write through
	// may treat it as a no-op.
	Flush(ctx context.Context) error

	// Compact reclaims space left behind by deleted entries.
	Compact(ctx context.Context) error

	// Close releases the engine's resources.
	Close() error
}
