// Package natskvtest provides an in-memory natskv.Bucket for tests.
package natskvtest

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Strob0t/customerapi/internal/adapter/natskv"
)

type entry struct {
	value []byte
	rev   uint64
}

// MemoryBucket mimics a KV bucket's revision rules in memory.
type MemoryBucket struct {
	mu      sync.Mutex
	entries map[string]entry
	seq     uint64

	// UpdateErr, when set, fails every Update.
	UpdateErr error
}

var _ natskv.Bucket = (*MemoryBucket)(nil)

// NewMemoryBucket returns an empty bucket.
func NewMemoryBucket() *MemoryBucket {
	return &MemoryBucket{entries: make(map[string]entry)}
}

func (b *MemoryBucket) Get(_ context.Context, key string) ([]byte, uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	if !ok {
		return nil, 0, natskv.ErrKeyNotFound
	}
	return append([]byte(nil), e.value...), e.rev, nil
}

func (b *MemoryBucket) Put(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set(key, value)
	return nil
}

func (b *MemoryBucket) Create(_ context.Context, key string, value []byte) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[key]; ok {
		return 0, natskv.ErrKeyExists
	}
	return b.set(key, value), nil
}

func (b *MemoryBucket) Update(_ context.Context, key string, value []byte, last uint64) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.UpdateErr != nil {
		return 0, b.UpdateErr
	}
	if e, ok := b.entries[key]; !ok || e.rev != last {
		return 0, errors.New("wrong last sequence")
	}
	return b.set(key, value), nil
}

func (b *MemoryBucket) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
	return nil
}

func (b *MemoryBucket) Purge(ctx context.Context, key string) error {
	return b.Delete(ctx, key)
}

func (b *MemoryBucket) Keys(context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Len reports the number of stored keys, lease keys included.
func (b *MemoryBucket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

func (b *MemoryBucket) set(key string, value []byte) uint64 {
	b.seq++
	b.entries[key] = entry{value: append([]byte(nil), value...), rev: b.seq}
	return b.seq
}
