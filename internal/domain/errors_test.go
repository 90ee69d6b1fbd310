package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestAsFaultUnwrapsWrapped(t *testing.T) {
	f := WrapServerFault("Failed to add new entity", ErrPersistence)
	err := fmt.Errorf("add customer 7: %w", f)

	got, ok := AsFault(err)
	if !ok {
		t.Fatal("expected fault to be found through wrapping")
	}
	if got.Kind != FaultServer {
		t.Errorf("expected server kind, got %s", got.Kind)
	}
	if !errors.Is(err, ErrPersistence) {
		t.Error("expected errors.Is to reach the cause")
	}
}

func TestAsFaultPlainError(t *testing.T) {
	if _, ok := AsFault(errors.New("boom")); ok {
		t.Fatal("plain error must not classify as fault")
	}
	if _, ok := AsFault(nil); ok {
		t.Fatal("nil must not classify as fault")
	}
}

func TestFaultKindString(t *testing.T) {
	tests := []struct {
		kind FaultKind
		want string
	}{
		{FaultClient, "client"},
		{FaultServer, "server"},
		{FaultThrottled, "throttled"},
		{FaultKind(0), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("FaultKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestValidationErrorMessage(t *testing.T) {
	e := &ValidationError{Failures: []FieldFailure{
		{Field: "lastName", Message: "must have required property 'lastName'"},
		{Field: "address", Message: "must have required property 'address'"},
	}}
	want := "validation failed: lastName must have required property 'lastName' (and 1 more)"
	if e.Error() != want {
		t.Errorf("got %q, want %q", e.Error(), want)
	}
	if (&ValidationError{}).Error() != "validation failed" {
		t.Error("empty validation error should have a plain message")
	}
}
