// Package cache holds computed availability and idempotent booking responses.
//
// Availability entries are namespaced by a per-host generation counter.
// Invalidating a host bumps the counter, which orphans every entry computed
// before the bump; orphans expire through their TTL.
package cache

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/tzconv"
)

type SlotsKey struct {
	HostID      string
	EventTypeID string
	Date        tzconv.Date
	Timezone    string
}

func (k SlotsKey) String() string {
	return strings.Join([]string{k.HostID, k.EventTypeID, k.Date.String(), k.Timezone}, ":")
}

type Availability interface {
	// Generation is read before computing so a concurrent invalidation is
	// never overwritten by a stale result.
	Generation(ctx context.Context, hostID string) (int64, error)
	Slots(ctx context.Context, k SlotsKey, gen int64) ([]availability.Slot, bool, error)
	StoreSlots(ctx context.Context, k SlotsKey, gen int64, slots []availability.Slot) error
	InvalidateHost(ctx context.Context, hostID string) error
}

// Response is a stored HTTP response replayed for a repeated Idempotency-Key.
type Response struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type Idempotency interface {
	Replay(ctx context.Context, scope, key string) (Response, bool, error)
	// Remember stores resp unless a response is already stored for the key.
	Remember(ctx context.Context, scope, key string, resp Response) error
}
