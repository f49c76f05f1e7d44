package cache

import (
	"context"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/tzconv"
)

func testKey() SlotsKey {
	return SlotsKey{
		HostID:      "h1",
		EventTypeID: "et1",
		Date:        tzconv.Date{Year: 2026, Month: time.January, Day: 5},
		Timezone:    "Asia/Tokyo",
	}
}

func TestKeys(t *testing.T) {
	if got := slotsKey(testKey(), 3); got != "avail:slots:3:h1:et1:2026-01-05:Asia/Tokyo" {
		t.Fatalf("unexpected slots key %q", got)
	}
	if got := generationKey("h1"); got != "avail:gen:h1" {
		t.Fatalf("unexpected generation key %q", got)
	}
}

func TestMemoryGenerationInvalidates(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute, time.Hour)
	k := testKey()
	slots := []availability.Slot{{Start: "09:00", End: "09:30", StartInstant: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)}}

	gen, _ := c.Generation(ctx, k.HostID)
	if err := c.StoreSlots(ctx, k, gen, slots); err != nil {
		t.Fatalf("store: %v", err)
	}
	got, hit, _ := c.Slots(ctx, k, gen)
	if !hit || len(got) != 1 || got[0].Start != "09:00" {
		t.Fatalf("expected cached slot, hit=%v got=%+v", hit, got)
	}

	if err := c.InvalidateHost(ctx, k.HostID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	next, _ := c.Generation(ctx, k.HostID)
	if next == gen {
		t.Fatal("expected generation to change")
	}
	if _, hit, _ := c.Slots(ctx, k, next); hit {
		t.Fatal("expected miss after invalidation")
	}
}

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(20*time.Millisecond, time.Hour)

	_ = c.StoreSlots(ctx, testKey(), 0, nil)
	if _, hit, _ := c.Slots(ctx, testKey(), 0); !hit {
		t.Fatal("expected hit before expiry")
	}
	time.Sleep(60 * time.Millisecond)
	if _, hit, _ := c.Slots(ctx, testKey(), 0); hit {
		t.Fatal("expected miss after expiry")
	}
}

func TestMemoryIdempotencyFirstWins(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute, time.Hour)

	if _, ok, _ := c.Replay(ctx, "h1", "k1"); ok {
		t.Fatal("unexpected replay before remember")
	}
	_ = c.Remember(ctx, "h1", "k1", Response{Status: 201, Body: []byte(`{"id":"a"}`)})
	_ = c.Remember(ctx, "h1", "k1", Response{Status: 409, Body: []byte(`{}`)})

	resp, ok, _ := c.Replay(ctx, "h1", "k1")
	if !ok || resp.Status != 201 || string(resp.Body) != `{"id":"a"}` {
		t.Fatalf("expected first response replayed, got %+v", resp)
	}
	if _, ok, _ := c.Replay(ctx, "h2", "k1"); ok {
		t.Fatal("keys must be scoped")
	}
}
