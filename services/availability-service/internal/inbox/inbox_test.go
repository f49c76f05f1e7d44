package inbox

import (
	"context"
	"testing"
)

func TestMemoryRecordsOnce(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first, err := m.Record(ctx, "evt-1", "booking.cancelled.v1")
	if err != nil || !first {
		t.Fatalf("expected first record to be new, got %v (%v)", first, err)
	}
	again, err := m.Record(ctx, "evt-1", "booking.cancelled.v1")
	if err != nil || again {
		t.Fatalf("expected duplicate, got %v (%v)", again, err)
	}
	other, _ := m.Record(ctx, "evt-2", "booking.cancelled.v1")
	if !other {
		t.Fatal("expected distinct event id to be new")
	}
}
