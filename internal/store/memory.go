package store

import (
	"context"
	"sync"
)

// Memory is an in-process backend.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string][]byte)}
}

// Bucket returns the store for name.
func (m *Memory) Bucket(name string) Store {
	return &memoryBucket{m: m, name: name}
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

type memoryBucket struct {
	m    *Memory
	name string
}

func (b *memoryBucket) Get(_ context.Context, key string) ([]byte, error) {
	b.m.mu.RLock()
	defer b.m.mu.RUnlock()

	value, ok := b.m.data[b.name][key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (b *memoryBucket) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		return b.Delete(ctx, key)
	}

	b.m.mu.Lock()
	defer b.m.mu.Unlock()

	bucket, ok := b.m.data[b.name]
	if !ok {
		bucket = make(map[string][]byte)
		b.m.data[b.name] = bucket
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	bucket[key] = stored
	return nil
}

func (b *memoryBucket) Delete(_ context.Context, key string) error {
	b.m.mu.Lock()
	defer b.m.mu.Unlock()
	delete(b.m.data[b.name], key)
	return nil
}
