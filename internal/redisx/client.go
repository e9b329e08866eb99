package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-order-dispatch/internal/orders"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Cache groups the dispatcher's redis usage: dedup markers, intake
// idempotency and the order status cache.
type Cache struct {
	rdb redis.Cmdable
}

func NewCache(rdb redis.Cmdable) *Cache { return &Cache{rdb: rdb} }

// Seen marks id as processed for service. It returns true when the marker
// already existed, i.e. the caller must skip the item. Use it only where a
// failed item is never retried (webhook updates are always answered 200).
func (c *Cache) Seen(ctx context.Context, service, id string) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, service, id), 1, TTLDedup).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Processed reports whether MarkProcessed was called for id. Retried work
// checks first and marks only after it succeeded.
func (c *Cache) Processed(ctx context.Context, service, id string) (bool, error) {
	n, err := c.rdb.Exists(ctx, fmt.Sprintf(KeyDedup, service, id)).Result()
	return n > 0, err
}

func (c *Cache) MarkProcessed(ctx context.Context, service, id string) error {
	return c.rdb.Set(ctx, fmt.Sprintf(KeyDedup, service, id), 1, TTLDedup).Err()
}

// IdempotentOrder returns the order id stored under an Idempotency-Key.
func (c *Cache) IdempotentOrder(ctx context.Context, key string) (int64, bool, error) {
	v, err := c.rdb.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("idempotency key %q: %w", key, err)
	}
	return id, true, nil
}

func (c *Cache) RememberOrder(ctx context.Context, key string, orderID int64) error {
	return c.rdb.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, key), orderID, TTLIdempotency).Err()
}

// order_status:{id} adalah hash {v: StatusView JSON, ts: updated_at dalam mikrodetik}.
// Penulisan hanya berlaku kalau ts tidak lebih lama dari yang tersimpan.
var setNewerStatus = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'ts')
if cur and tonumber(cur) > tonumber(ARGV[2]) then
	return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'ts', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

func (c *Cache) OrderStatus(ctx context.Context, orderID int64) (*orders.StatusView, bool, error) {
	b, err := c.rdb.HGet(ctx, fmt.Sprintf(KeyOrderStatus, orderID), "v").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var v orders.StatusView
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false, err
	}
	return &v, true, nil
}

// SetOrderStatus stores v unless the cache already holds a newer status for
// the order. It reports whether v was written.
func (c *Cache) SetOrderStatus(ctx context.Context, v orders.StatusView) (bool, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	key := fmt.Sprintf(KeyOrderStatus, v.OrderID)
	n, err := setNewerStatus.Run(ctx, c.rdb, []string{key},
		b, v.UpdatedAt.UnixMicro(), TTLStatusCache.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
