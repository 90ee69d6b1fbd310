package ristretto

import (
	"testing"

	"github.com/Strob0t/customerapi/internal/port/cache/cachetest"
)

func TestCompliance(t *testing.T) {
	c, err := New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	cachetest.RunComplianceTests(t, c)
}

func TestNewRejectsZeroCost(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for zero max cost")
	}
}
