package orders

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated  = "OrderCreated"
	EventOrderClaimed  = "OrderClaimed"
	EventOrderReleased = "OrderReleased"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "dispatch-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type OrderCreatedPayload struct {
	OrderID     int64   `json:"order_id"`
	Kind        JobKind `json:"job_kind"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Published   bool    `json:"published"`
}

type OrderClaimedPayload struct {
	OrderID   int64     `json:"order_id"`
	WorkerID  int64     `json:"worker_id"`
	Handle    string    `json:"handle,omitempty"`
	ClaimedAt time.Time `json:"claimed_at"`
}

type OrderReleasedPayload struct {
	OrderID  int64 `json:"order_id"`
	WorkerID int64 `json:"worker_id"`
}

// StatusView adalah bentuk cache status order (dibaca GET /orders/{id}).
type StatusView struct {
	OrderID    int64     `json:"order_id"`
	Status     Status    `json:"status"`
	ClaimantID *int64    `json:"claimant_id,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ViewOf is the cached status of o.
func ViewOf(o *Order) StatusView {
	return StatusView{OrderID: o.ID, Status: o.Status, ClaimantID: o.ClaimantID, UpdatedAt: o.UpdatedAt}
}

func NewEnvelope(eventType, producer, traceID string, orderID int64, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       b,
	}, nil
}

// Publisher sends envelopes to the event bus (kafka or amqp).
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, env Envelope) error
}

// Emit wraps payload into an envelope and publishes it on the topic of
// eventType. A nil Publisher drops the event.
func Emit(ctx context.Context, p Publisher, eventType, producer, traceID string, orderID int64, payload any) error {
	if p == nil {
		return nil
	}
	env, err := NewEnvelope(eventType, producer, traceID, orderID, payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, TopicFor(eventType), PartitionKey(orderID), env)
}
