package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Strob0t/customerapi/internal/adapter/jsonfile"
	cfnats "github.com/Strob0t/customerapi/internal/adapter/nats"
	"github.com/Strob0t/customerapi/internal/adapter/natskv"
	cfotel "github.com/Strob0t/customerapi/internal/adapter/otel"
	"github.com/Strob0t/customerapi/internal/adapter/ristretto"
	"github.com/Strob0t/customerapi/internal/adapter/tiered"
	"github.com/Strob0t/customerapi/internal/config"
	"github.com/Strob0t/customerapi/internal/port/cache"
	"github.com/Strob0t/customerapi/internal/resilience"
	"github.com/Strob0t/customerapi/internal/service"
)

// deps holds the infrastructure shared by the serve and reset commands.
type deps struct {
	store   *jsonfile.Store
	queue   *cfnats.Queue // nil when events are disabled
	metrics *cfotel.Metrics
	svc     *service.CustomerService
	closers []func()
}

// buildDeps opens the store and wires the optional cache and event bus.
// NATS problems disable events rather than failing startup.
func buildDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	d := &deps{}

	store, err := jsonfile.Open(ctx, cfg.Store.Path, cfg.Store.Collection)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	d.store = store
	d.onClose(func() { _ = store.Close() })

	d.metrics, err = cfotel.NewMetrics()
	if err != nil {
		d.close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	svc := service.NewCustomerService(store)
	svc.SetMetrics(d.metrics)

	if cfg.NATS.URL != "" {
		q, err := cfnats.Connect(ctx, cfg.NATS.URL, cfg.NATS.Stream)
		if err != nil {
			slog.Warn("nats unavailable, events disabled", "url", cfg.NATS.URL, "error", err)
		} else {
			d.queue = q
			d.onClose(func() {
				if err := q.Drain(); err != nil {
					slog.Warn("nats drain failed", "error", err)
				}
			})
			svc.SetEvents(q, resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
			svc.SetPublishTimeout(cfg.NATS.PublishTimeout)
		}
	}

	if cfg.Cache.Enabled {
		c, err := d.buildCache(ctx, cfg.Cache, cfg.Store)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("cache: %w", err)
		}
		svc.SetCache(c, cfg.Cache.TTL)
	}

	d.svc = svc
	return d, nil
}

func (d *deps) buildCache(ctx context.Context, cfg config.Cache, store config.Store) (cache.Cache, error) {
	l1, err := ristretto.New(cfg.MaxSizeMB << 20)
	if err != nil {
		return nil, err
	}
	d.onClose(l1.Close)

	if d.queue == nil || cfg.SharedBucket == "" {
		slog.Info("cache ready", "levels", 1, "max_size_mb", cfg.MaxSizeMB)
		return l1, nil
	}
	kv, err := d.queue.KeyValue(ctx, cfg.SharedBucket, cfg.TTL)
	if err != nil {
		slog.Warn("shared cache unavailable, using in-process cache only", "bucket", cfg.SharedBucket, "error", err)
		return l1, nil
	}
	return d.attachSharedCache(ctx, l1, natskv.FromKeyValue(kv), cfg, storeIdentity(store))
}

// attachSharedCache claims the store's namespace in the bucket and layers it
// behind l1. A namespace held by another instance fails startup.
func (d *deps) attachSharedCache(ctx context.Context, l1 cache.Cache, b natskv.Bucket, cfg config.Cache, identity string) (cache.Cache, error) {
	ns := natskv.Namespace(identity)
	lease, err := natskv.AcquireLease(ctx, b, ns, instanceName(), cfg.TTL/3)
	if err != nil {
		return nil, fmt.Errorf("shared cache %s: %w", cfg.SharedBucket, err)
	}
	d.onClose(func() {
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lease.Release(rctx); err != nil {
			slog.Warn("shared cache lease release failed", "namespace", ns, "error", err)
		}
	})

	slog.Info("cache ready", "levels", 2, "max_size_mb", cfg.MaxSizeMB, "bucket", cfg.SharedBucket, "namespace", ns)
	return tiered.New(l1, natskv.New(lease), cfg.TTL), nil
}

// storeIdentity names the backing file as seen from this host.
func storeIdentity(s config.Store) string {
	path, err := filepath.Abs(s.Path)
	if err != nil {
		path = s.Path
	}
	host, _ := os.Hostname()
	return host + ":" + path + "#" + s.Collection
}

func instanceName() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%s/%d", host, os.Getpid())
}

func (d *deps) onClose(fn func()) { d.closers = append(d.closers, fn) }

// close releases resources in reverse order of acquisition.
func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}
