package natskv

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go/jetstream"
)

var (
	// ErrKeyNotFound is returned by Bucket.Get for a missing key.
	ErrKeyNotFound = errors.New("kv key not found")
	// ErrKeyExists is returned by Bucket.Create when the key is already set.
	ErrKeyExists = errors.New("kv key exists")
)

// Bucket is the slice of a KV bucket the cache and lease need.
type Bucket interface {
	Get(ctx context.Context, key string) (value []byte, revision uint64, err error)
	Put(ctx context.Context, key string, value []byte) error
	// Create sets key only when it holds no value.
	Create(ctx context.Context, key string, value []byte) (uint64, error)
	// Update sets key only when its current revision is last.
	Update(ctx context.Context, key string, value []byte, last uint64) (uint64, error)
	Delete(ctx context.Context, key string) error
	Purge(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

type jsBucket struct {
	kv jetstream.KeyValue
}

// FromKeyValue adapts a JetStream KV bucket.
func FromKeyValue(kv jetstream.KeyValue) Bucket {
	return jsBucket{kv: kv}
}

func (b jsBucket) Get(ctx context.Context, key string) ([]byte, uint64, error) {
	entry, err := b.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, 0, ErrKeyNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	return entry.Value(), entry.Revision(), nil
}

func (b jsBucket) Put(ctx context.Context, key string, value []byte) error {
	_, err := b.kv.Put(ctx, key, value)
	return err
}

func (b jsBucket) Create(ctx context.Context, key string, value []byte) (uint64, error) {
	rev, err := b.kv.Create(ctx, key, value)
	if errors.Is(err, jetstream.ErrKeyExists) {
		return 0, ErrKeyExists
	}
	return rev, err
}

func (b jsBucket) Update(ctx context.Context, key string, value []byte, last uint64) (uint64, error) {
	return b.kv.Update(ctx, key, value, last)
}

func (b jsBucket) Delete(ctx context.Context, key string) error {
	err := b.kv.Delete(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (b jsBucket) Purge(ctx context.Context, key string) error {
	err := b.kv.Purge(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (b jsBucket) Keys(ctx context.Context) ([]string, error) {
	lister, err := b.kv.ListKeys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = lister.Stop() }()

	var keys []string
	for key := range lister.Keys() {
		keys = append(keys, key)
	}
	return keys, nil
}
