package natskv_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Strob0t/customerapi/internal/adapter/nats"
	"github.com/Strob0t/customerapi/internal/adapter/natskv"
	"github.com/Strob0t/customerapi/internal/adapter/natskv/natskvtest"
	"github.com/Strob0t/customerapi/internal/port/cache/cachetest"
)

func TestEncodeKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"customer:1001", "customer.1001"},
		{"customer:-4", "customer.-4"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := natskv.EncodeKey(tt.in); got != tt.want {
			t.Errorf("EncodeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNamespaceIsPerStore(t *testing.T) {
	a := natskv.Namespace("host-a:/data/db.json#customers")
	b := natskv.Namespace("host-b:/data/db.json#customers")
	if a == b {
		t.Fatalf("different stores share namespace %s", a)
	}
	if again := natskv.Namespace("host-a:/data/db.json#customers"); again != a {
		t.Errorf("namespace not stable: %s vs %s", a, again)
	}
}

func acquire(t *testing.T, b natskv.Bucket, ns string) *natskv.Lease {
	t.Helper()
	l, err := natskv.AcquireLease(context.Background(), b, ns, "test", 0)
	if err != nil {
		t.Fatalf("AcquireLease: %v", err)
	}
	t.Cleanup(func() { _ = l.Release(context.Background()) })
	return l
}

func TestComplianceMemory(t *testing.T) {
	b := natskvtest.NewMemoryBucket()
	cachetest.RunComplianceTests(t, natskv.New(acquire(t, b, natskv.Namespace("compliance"))))
}

func TestLeaseIsExclusive(t *testing.T) {
	ctx := context.Background()
	b := natskvtest.NewMemoryBucket()
	ns := natskv.Namespace("one-store")

	first, err := natskv.AcquireLease(ctx, b, ns, "replica-1", 0)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	_, err = natskv.AcquireLease(ctx, b, ns, "replica-2", 0)
	if !errors.Is(err, natskv.ErrLeaseHeld) {
		t.Fatalf("expected ErrLeaseHeld, got %v", err)
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	second, err := natskv.AcquireLease(ctx, b, ns, "replica-2", 0)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	_ = second.Release(ctx)
}

func TestNamespacesDoNotOverlap(t *testing.T) {
	ctx := context.Background()
	b := natskvtest.NewMemoryBucket()
	a := natskv.New(acquire(t, b, natskv.Namespace("store-a")))
	other := natskv.New(acquire(t, b, natskv.Namespace("store-b")))

	if err := a.Set(ctx, "customer:1", []byte(`{"id":1,"name":"A"}`), 0); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := other.Get(ctx, "customer:1"); ok {
		t.Fatal("entry leaked across namespaces")
	}
	if err := other.Set(ctx, "customer:1", []byte(`{"id":1,"name":"B"}`), 0); err != nil {
		t.Fatal(err)
	}
	if err := other.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	got, ok, err := a.Get(ctx, "customer:1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got) != `{"id":1,"name":"A"}` {
		t.Errorf("entry altered by other namespace: %s", got)
	}
}

func TestLostLeaseDisablesCache(t *testing.T) {
	ctx := context.Background()
	b := natskvtest.NewMemoryBucket()
	l := acquire(t, b, natskv.Namespace("flaky"))
	c := natskv.New(l)

	if err := c.Set(ctx, "customer:7", []byte("x"), 0); err != nil {
		t.Fatal(err)
	}
	if err := l.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	b.UpdateErr = errors.New("stream unavailable")
	if err := l.Refresh(ctx); !errors.Is(err, natskv.ErrLeaseLost) {
		t.Fatalf("expected ErrLeaseLost, got %v", err)
	}
	if l.Held() {
		t.Fatal("lease still held after failed refresh")
	}
	if _, ok, _ := c.Get(ctx, "customer:7"); ok {
		t.Error("cache served an entry without the lease")
	}
	if err := c.Set(ctx, "customer:8", []byte("y"), 0); err != nil {
		t.Fatal(err)
	}
	if _, _, err := b.Get(ctx, l.Namespace()+".c.customer.8"); !errors.Is(err, natskv.ErrKeyNotFound) {
		t.Errorf("write reached the bucket without the lease: %v", err)
	}
}

func TestLeaseKeepsItselfAlive(t *testing.T) {
	ctx := context.Background()
	b := natskvtest.NewMemoryBucket()
	ns := natskv.Namespace("ticking")
	l, err := natskv.AcquireLease(ctx, b, ns, "replica-1", 5*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	_, rev, _ := b.Get(ctx, ns+".lease")

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, now, _ := b.Get(ctx, ns+".lease")
		if now > rev {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("lease was never refreshed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := l.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if b.Len() != 0 {
		t.Errorf("expected lease key removed, %d keys left", b.Len())
	}
}

func TestCompliance(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}
	ctx := context.Background()

	q, err := nats.Connect(ctx, url, "")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })

	kv, err := q.KeyValue(ctx, "customerapi-test-cache", time.Minute)
	if err != nil {
		t.Fatalf("KeyValue: %v", err)
	}
	b := natskv.FromKeyValue(kv)
	cachetest.RunComplianceTests(t, natskv.New(acquire(t, b, natskv.Namespace(t.Name()))))
}
