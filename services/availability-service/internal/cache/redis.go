package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/availability"
	"github.com/redis/go-redis/v9"
)

type Redis struct {
	rdb            redis.Cmdable
	ttl            time.Duration
	idempotencyTTL time.Duration
}

func NewRedis(rdb redis.Cmdable, ttl, idempotencyTTL time.Duration) *Redis {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if idempotencyTTL <= 0 {
		idempotencyTTL = 24 * time.Hour
	}
	return &Redis{rdb: rdb, ttl: ttl, idempotencyTTL: idempotencyTTL}
}

func generationKey(hostID string) string {
	return "avail:gen:" + hostID
}

func slotsKey(k SlotsKey, gen int64) string {
	return "avail:slots:" + strconv.FormatInt(gen, 10) + ":" + k.String()
}

func idempotencyKey(scope, key string) string {
	return "idem:" + scope + ":" + key
}

func (c *Redis) Generation(ctx context.Context, hostID string) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey(hostID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *Redis) Slots(ctx context.Context, k SlotsKey, gen int64) ([]availability.Slot, bool, error) {
	raw, err := c.rdb.Get(ctx, slotsKey(k, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var slots []availability.Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, false, err
	}
	return slots, true, nil
}

func (c *Redis) StoreSlots(ctx context.Context, k SlotsKey, gen int64, slots []availability.Slot) error {
	if slots == nil {
		slots = []availability.Slot{}
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, slotsKey(k, gen), raw, c.ttl).Err()
}

func (c *Redis) InvalidateHost(ctx context.Context, hostID string) error {
	return c.rdb.Incr(ctx, generationKey(hostID)).Err()
}

func (c *Redis) Replay(ctx context.Context, scope, key string) (Response, bool, error) {
	raw, err := c.rdb.Get(ctx, idempotencyKey(scope, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Response{}, false, nil
	}
	if err != nil {
		return Response{}, false, err
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, false, err
	}
	return resp, true, nil
}

func (c *Redis) Remember(ctx context.Context, scope, key string, resp Response) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.rdb.SetNX(ctx, idempotencyKey(scope, key), raw, c.idempotencyTTL).Err()
}

// ReadyCheck pings the server.
func ReadyCheck(rdb redis.Cmdable) func(context.Context) error {
	return func(ctx context.Context) error {
		if rdb == nil {
			return errors.New("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
}
