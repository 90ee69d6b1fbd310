package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Strob0t/customerapi/internal/adapter/jsonfile"
	"github.com/Strob0t/customerapi/internal/adapter/natskv"
	"github.com/Strob0t/customerapi/internal/adapter/natskv/natskvtest"
	"github.com/Strob0t/customerapi/internal/adapter/ristretto"
	"github.com/Strob0t/customerapi/internal/config"
	"github.com/Strob0t/customerapi/internal/domain"
	"github.com/Strob0t/customerapi/internal/domain/customer"
	"github.com/Strob0t/customerapi/internal/service"
)

type instance struct {
	d   *deps
	l1  *ristretto.Cache
	svc *service.CustomerService
}

// startInstance wires a service over its own store and the shared bucket b.
func startInstance(t *testing.T, b natskv.Bucket, store config.Store) (*instance, error) {
	t.Helper()
	ctx := context.Background()
	cfg := config.Defaults().Cache
	cfg.SharedBucket = "customers-cache"

	s, err := jsonfile.Open(ctx, store.Path, store.Collection)
	if err != nil {
		t.Fatal(err)
	}
	d := &deps{store: s}
	d.onClose(func() { _ = s.Close() })

	l1, err := ristretto.New(cfg.MaxSizeMB << 20)
	if err != nil {
		t.Fatal(err)
	}
	d.onClose(l1.Close)

	c, err := d.attachSharedCache(ctx, l1, b, cfg, storeIdentity(store))
	if err != nil {
		d.close()
		return nil, err
	}
	d.svc = service.NewCustomerService(s)
	d.svc.SetCache(c, cfg.TTL)
	t.Cleanup(d.close)
	return &instance{d: d, l1: l1, svc: d.svc}, nil
}

func storeAt(t *testing.T) config.Store {
	return config.Store{Path: filepath.Join(t.TempDir(), "db.json"), Collection: "customers"}
}

func TestSharedCacheKeepsStoresApart(t *testing.T) {
	ctx := context.Background()
	bucket := natskvtest.NewMemoryBucket()

	a, err := startInstance(t, bucket, storeAt(t))
	if err != nil {
		t.Fatal(err)
	}
	b, err := startInstance(t, bucket, storeAt(t))
	if err != nil {
		t.Fatalf("second store on the same bucket: %v", err)
	}

	jane := &customer.Customer{FirstName: "Jane", LastName: "Doe", Address: "1 Main St", EmployeeID: 1001}
	if err := a.svc.AddNewCustomer(ctx, jane); err != nil {
		t.Fatal(err)
	}

	_, err = b.svc.GetCustomer(ctx, 1001)
	f, ok := domain.AsFault(err)
	if !ok || f.Kind != domain.FaultClient || f.Message != customer.MsgNotFound {
		t.Fatalf("other store saw the record: %v", err)
	}

	john := &customer.Customer{FirstName: "John", LastName: "Roe", Address: "9 Side St", EmployeeID: 1001}
	if err := b.svc.AddNewCustomer(ctx, john); err != nil {
		t.Fatalf("add to other store: %v", err)
	}

	// Force a's next read through the shared tier.
	if err := a.l1.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	got, err := a.svc.GetCustomer(ctx, 1001)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *jane {
		t.Errorf("stored record changed by another instance: got %+v", got)
	}
}

func TestSharedCacheRefusesSecondInstanceOnOneStore(t *testing.T) {
	bucket := natskvtest.NewMemoryBucket()
	store := storeAt(t)

	first, err := startInstance(t, bucket, store)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := startInstance(t, bucket, store); !errors.Is(err, natskv.ErrLeaseHeld) {
		t.Fatalf("expected ErrLeaseHeld, got %v", err)
	}

	first.d.close()
	if _, err := startInstance(t, bucket, store); err != nil {
		t.Fatalf("start after the first instance stopped: %v", err)
	}
}

func TestStoreIdentityFollowsPathAndCollection(t *testing.T) {
	base := config.Store{Path: "data/db.json", Collection: "customers"}
	abs, err := filepath.Abs(base.Path)
	if err != nil {
		t.Fatal(err)
	}
	if storeIdentity(base) != storeIdentity(config.Store{Path: abs, Collection: "customers"}) {
		t.Error("relative and absolute paths to one file should match")
	}
	if storeIdentity(base) == storeIdentity(config.Store{Path: base.Path, Collection: "orders"}) {
		t.Error("collections in one file should not share an identity")
	}
}
