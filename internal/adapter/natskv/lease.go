package natskv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

var (
	// ErrLeaseHeld means another instance owns the namespace.
	ErrLeaseHeld = errors.New("shared cache namespace is held by another instance")
	// ErrLeaseLost means a refresh failed and the namespace may have changed hands.
	ErrLeaseLost = errors.New("shared cache lease lost")
)

// Namespace derives the key prefix for one entity store. Instances backed
// by different stores never share entries.
func Namespace(storeIdentity string) string {
	return "store" + strconv.FormatUint(xxhash.Sum64String(storeIdentity), 16)
}

// Lease gives one instance exclusive use of a namespace in a bucket. The
// lease key expires with the bucket TTL when its holder stops refreshing.
type Lease struct {
	bucket    Bucket
	namespace string
	key       string
	owner     []byte

	mu   sync.Mutex
	rev  uint64
	held atomic.Bool

	stop context.CancelFunc
	done chan struct{}
}

// AcquireLease claims namespace for owner and, when refresh is positive,
// keeps the claim alive on that interval until Release.
func AcquireLease(ctx context.Context, b Bucket, namespace, owner string, refresh time.Duration) (*Lease, error) {
	l := &Lease{
		bucket:    b,
		namespace: namespace,
		key:       namespace + ".lease",
		owner:     []byte(owner),
		done:      make(chan struct{}),
	}

	rev, err := b.Create(ctx, l.key, l.owner)
	if errors.Is(err, ErrKeyExists) {
		holder, _, gerr := b.Get(ctx, l.key)
		if gerr != nil {
			holder = []byte("unknown")
		}
		return nil, fmt.Errorf("%w: %s by %s", ErrLeaseHeld, namespace, holder)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", l.key, err)
	}
	l.rev = rev
	l.held.Store(true)

	loopCtx, stop := context.WithCancel(context.Background())
	l.stop = stop
	if refresh > 0 {
		go l.keepAlive(loopCtx, refresh)
	} else {
		close(l.done)
	}
	return l, nil
}

// Namespace returns the claimed key prefix.
func (l *Lease) Namespace() string { return l.namespace }

// Held reports whether the lease is still owned.
func (l *Lease) Held() bool { return l.held.Load() }

// Refresh extends the lease. Any failure other than ctx ending gives the
// lease up for good.
func (l *Lease) Refresh(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held.Load() {
		return ErrLeaseLost
	}
	rev, err := l.bucket.Update(ctx, l.key, l.owner, l.rev)
	if err != nil {
		if ctx.Err() == nil {
			l.held.Store(false)
		}
		return fmt.Errorf("%w: %w", ErrLeaseLost, err)
	}
	l.rev = rev
	return nil
}

func (l *Lease) keepAlive(ctx context.Context, every time.Duration) {
	defer close(l.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Error("shared cache disabled", "namespace", l.namespace, "error", err)
				return
			}
		}
	}
}

// Release stops refreshing and deletes the lease key.
func (l *Lease) Release(ctx context.Context) error {
	l.stop()
	<-l.done

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held.Swap(false) {
		return nil
	}
	return l.bucket.Delete(ctx, l.key)
}
