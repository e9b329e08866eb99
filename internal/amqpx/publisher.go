// Package amqpx publishes order events to a RabbitMQ topic exchange.
package amqpx

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ariefcatur/go-order-dispatch/internal/orders"
)

const Exchange = "dispatch_events"

type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	mu   sync.Mutex
}

var _ orders.Publisher = (*Publisher)(nil)

// Dial connects and declares the durable topic exchange. Consumers bind
// their own queues with routing keys such as "dispatch.order.*".
func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch}, nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func (p *Publisher) Ping() error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("amqp: connection is closed")
	}
	return nil
}

// Publish sends env with the topic as routing key.
func (p *Publisher) Publish(ctx context.Context, topic string, key []byte, env orders.Envelope) error {
	msg, err := publishing(key, env)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, Exchange, topic, false, false, msg)
}

func publishing(key []byte, env orders.Envelope) (amqp.Publishing, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now().UTC(),
		ContentType:   "application/json",
		MessageId:     env.EventID,
		Type:          env.EventType,
		CorrelationId: string(key),
		AppId:         env.Producer,
		Body:          body,
	}, nil
}
