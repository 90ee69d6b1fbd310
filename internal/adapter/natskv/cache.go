// Package natskv implements the cache port on a NATS JetStream KV bucket,
// the optional L2 tier shared across restarts of one instance.
package natskv

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Strob0t/customerapi/internal/port/cache"
)

// Cache stores entries under the namespace of a held lease. Once the lease
// is lost every call is a miss or a no-op.
type Cache struct {
	bucket Bucket
	lease  *Lease
	prefix string
}

// Ensure Cache implements cache.Cache at compile time.
var _ cache.Cache = (*Cache)(nil)

// New creates a cache confined to the lease's namespace.
func New(l *Lease) *Cache {
	return &Cache{bucket: l.bucket, lease: l, prefix: l.namespace + ".c."}
}

// Get retrieves a value from the bucket.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	if !c.lease.Held() {
		return nil, false, nil
	}
	data, _, err = c.bucket.Get(ctx, c.prefix+EncodeKey(key))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value. TTL is managed at bucket level.
func (c *Cache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if !c.lease.Held() {
		return nil
	}
	return c.bucket.Put(ctx, c.prefix+EncodeKey(key), value)
}

// Delete removes a value from the bucket.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.lease.Held() {
		return nil
	}
	return c.bucket.Delete(ctx, c.prefix+EncodeKey(key))
}

// Clear purges this namespace's entries and leaves the rest of the bucket alone.
func (c *Cache) Clear(ctx context.Context) error {
	if !c.lease.Held() {
		return nil
	}
	keys, err := c.bucket.Keys(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, key := range keys {
		if !strings.HasPrefix(key, c.prefix) {
			continue
		}
		if err := c.bucket.Purge(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EncodeKey maps a cache key onto the KV key alphabet, which has no ':'.
func EncodeKey(key string) string {
	return strings.ReplaceAll(key, ":", ".")
}
