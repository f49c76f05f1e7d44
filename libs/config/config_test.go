package config

import (
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "70000")
	if _, err := Port("TEST_PORT", "8080"); err == nil {
		t.Fatal("expected error for out of range port")
	}
	t.Setenv("TEST_PORT", "")
	p, err := Port("TEST_PORT", "8084")
	if err != nil || p != "8084" {
		t.Fatalf("expected fallback 8084, got %q (%v)", p, err)
	}
}

func TestRequiredString(t *testing.T) {
	t.Setenv("TEST_REQUIRED", "  ")
	if _, err := RequiredString("TEST_REQUIRED"); err == nil {
		t.Fatal("expected error for blank value")
	}
}

func TestTypedReaders(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BOOL", "off")
	t.Setenv("TEST_DURATION", "90s")

	n, err := Int("TEST_INT", 1)
	if err != nil || n != 42 {
		t.Fatalf("Int: got %d (%v)", n, err)
	}
	b, err := Bool("TEST_BOOL", true)
	if err != nil || b {
		t.Fatalf("Bool: got %v (%v)", b, err)
	}
	d, err := Duration("TEST_DURATION", time.Second)
	if err != nil || d != 90*time.Second {
		t.Fatalf("Duration: got %s (%v)", d, err)
	}

	t.Setenv("TEST_INT", "-3")
	if _, err := Int("TEST_INT", 1); err == nil {
		t.Fatal("expected error for negative int")
	}
	t.Setenv("TEST_BOOL", "maybe")
	if _, err := Bool("TEST_BOOL", true); err == nil {
		t.Fatal("expected error for invalid bool")
	}
}
