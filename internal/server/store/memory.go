package store

import (
	"context"
	"sync"

	"github.com/digestry/digestry/internal/common"
)

// MemoryBackend keeps everything in a map. It backs tests and throwaway
// deployments; nothing survives a restart.
type MemoryBackend struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{m: make(map[string][]byte)}
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.m[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[key] = stored
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.m, key)
	return nil
}

// ForEachKey iterates over a snapshot of the keys, so fn may read and
// delete through the backend without deadlocking.
func (b *MemoryBackend) ForEachKey(_ context.Context, fn func(key string) error) error {
	b.mu.RLock()
	keys := make([]string, 0, len(b.m))
	for k := range b.m {
		keys = append(keys, k)
	}
	b.mu.RUnlock()

	for _, k := range keys {
		if err := fn(k); err != nil {
			return err
		}
	}
	return nil
}

func (b *MemoryBackend) Flush(context.Context) error { return nil }

func (b *MemoryBackend) Compact(context.Context) error { return nil }

func (b *MemoryBackend) Close() error { return nil }

// Len reports the number of stored records.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.m)
}
