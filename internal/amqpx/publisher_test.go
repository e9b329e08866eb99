package amqpx

import (
	"encoding/json"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ariefcatur/go-order-dispatch/internal/orders"
)

func TestPublishing(t *testing.T) {
	env, err := orders.NewEnvelope(orders.EventOrderCreated, "dispatch-api", "", 3, orders.OrderCreatedPayload{OrderID: 3})
	if err != nil {
		t.Fatal(err)
	}
	msg, err := publishing(orders.PartitionKey(3), env)
	if err != nil {
		t.Fatalf("publishing: %v", err)
	}
	if msg.DeliveryMode != amqp.Persistent || msg.ContentType != "application/json" {
		t.Fatalf("got mode %d type %q", msg.DeliveryMode, msg.ContentType)
	}
	if msg.MessageId != env.EventID || msg.Type != orders.EventOrderCreated || msg.CorrelationId != "3" {
		t.Fatalf("got %+v", msg)
	}
	var got orders.Envelope
	if err := json.Unmarshal(msg.Body, &got); err != nil || got.EventID != env.EventID {
		t.Fatalf("body = %s, %v", msg.Body, err)
	}
}

func TestPingWithoutConnection(t *testing.T) {
	if err := (&Publisher{}).Ping(); err == nil {
		t.Fatal("Ping on an unconnected publisher must fail")
	}
}
