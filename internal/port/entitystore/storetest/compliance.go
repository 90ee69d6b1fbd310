// Package storetest provides a compliance suite for entitystore.Store implementations.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/Strob0t/customerapi/internal/domain"
	"github.com/Strob0t/customerapi/internal/port/entitystore"
)

// RunComplianceTests runs the standard suite against a freshly initialised,
// empty store produced by newStore for every subtest.
func RunComplianceTests(t *testing.T, newStore func(t *testing.T) entitystore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("AddThenGet", func(t *testing.T) {
		s := newStore(t)
		content := json.RawMessage(`{"firstName":"Jane","employeeId":1}`)
		if err := s.Add(ctx, 1, content); err != nil {
			t.Fatal(err)
		}
		rec, ok, err := s.Get(ctx, 1)
		if err != nil || !ok {
			t.Fatalf("expected record, ok=%v err=%v", ok, err)
		}
		if rec.ID != 1 || string(rec.Content) != string(content) {
			t.Fatalf("unexpected record %+v", rec)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		rec, ok, err := s.Get(ctx, 404)
		if err != nil {
			t.Fatalf("missing record must not be an error, got %v", err)
		}
		if ok || rec != nil {
			t.Fatal("expected absent")
		}
	})

	t.Run("DuplicateRejected", func(t *testing.T) {
		s := newStore(t)
		first := json.RawMessage(`{"v":1}`)
		_ = s.Add(ctx, 2, first)
		err := s.Add(ctx, 2, json.RawMessage(`{"v":2}`))
		if !errors.Is(err, domain.ErrDuplicateID) {
			t.Fatalf("expected ErrDuplicateID, got %v", err)
		}
		if f, ok := domain.AsFault(err); !ok || f.Kind != domain.FaultServer {
			t.Fatalf("expected server fault, got %v", err)
		}
		rec, _, _ := s.Get(ctx, 2)
		if string(rec.Content) != string(first) {
			t.Fatalf("duplicate insert altered record: %s", rec.Content)
		}
	})

	t.Run("DeleteAll", func(t *testing.T) {
		s := newStore(t)
		for i := int64(1); i <= 3; i++ {
			_ = s.Add(ctx, i, json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)))
		}
		if err := s.DeleteAll(ctx); err != nil {
			t.Fatal(err)
		}
		if n, _ := s.Len(ctx); n != 0 {
			t.Fatalf("expected empty store, got %d", n)
		}
	})

	t.Run("InitKeepsRecords", func(t *testing.T) {
		s := newStore(t)
		_ = s.Add(ctx, 10, json.RawMessage(`{}`))
		if err := s.Init(ctx); err != nil {
			t.Fatal(err)
		}
		if n, _ := s.Len(ctx); n != 1 {
			t.Fatalf("expected 1 record after re-Init, got %d", n)
		}
	})
}
