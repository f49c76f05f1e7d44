package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/availability"
)

const memoryEntries = 4096

// Memory is the single-process cache used when no Redis is configured.
// Entries are bounded LRUs with a TTL.
type Memory struct {
	slots     *expirable.LRU[string, []availability.Slot]
	responses *expirable.LRU[string, Response]

	mu          sync.Mutex
	generations map[string]int64
}

func NewMemory(ttl, idempotencyTTL time.Duration) *Memory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if idempotencyTTL <= 0 {
		idempotencyTTL = 24 * time.Hour
	}
	return &Memory{
		slots:       expirable.NewLRU[string, []availability.Slot](memoryEntries, nil, ttl),
		responses:   expirable.NewLRU[string, Response](memoryEntries, nil, idempotencyTTL),
		generations: make(map[string]int64),
	}
}

func (c *Memory) Generation(_ context.Context, hostID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[hostID], nil
}

func (c *Memory) Slots(_ context.Context, k SlotsKey, gen int64) ([]availability.Slot, bool, error) {
	slots, ok := c.slots.Get(slotsKey(k, gen))
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(slots), true, nil
}

func (c *Memory) StoreSlots(_ context.Context, k SlotsKey, gen int64, slots []availability.Slot) error {
	c.slots.Add(slotsKey(k, gen), slices.Clone(slots))
	return nil
}

func (c *Memory) InvalidateHost(_ context.Context, hostID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[hostID]++
	return nil
}

func (c *Memory) Replay(_ context.Context, scope, key string) (Response, bool, error) {
	resp, ok := c.responses.Get(idempotencyKey(scope, key))
	return resp, ok, nil
}

func (c *Memory) Remember(_ context.Context, scope, key string, resp Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := idempotencyKey(scope, key)
	if c.responses.Contains(k) {
		return nil
	}
	c.responses.Add(k, resp)
	return nil
}
