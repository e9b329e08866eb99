package redisx

import "time"

const (
	// Idempotency create order: idem:order:create:{Idempotency-Key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s"

	// Cache status order: order_status:{order_id} -> hash {v: orders.StatusView JSON, ts}
	KeyOrderStatus = "order_status:%d"

	// Dedup: dedup:{service}:{id}; id = update_id (webhook) atau event_id (tracker)
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
