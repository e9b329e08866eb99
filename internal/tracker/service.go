// Package tracker consumes order events and maintains the order status
// cache read by GET /orders/{id}.
package tracker

import (
	"context"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-order-dispatch/internal/kafka"
	"github.com/ariefcatur/go-order-dispatch/internal/orders"
)

// Cache is the part of redisx.Cache the tracker needs.
type Cache interface {
	Processed(ctx context.Context, service, id string) (bool, error)
	MarkProcessed(ctx context.Context, service, id string) error
	SetOrderStatus(ctx context.Context, v orders.StatusView) (bool, error)
}

type Service struct {
	Cache       Cache
	ServiceName string
	Logger      *slog.Logger
}

// HandleOrderEvent: dipasang sebagai handler consumer.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		// pesan rusak tidak akan pernah sukses; commit saja
		s.Logger.Warn("drop undecodable message", "topic", m.Topic, "offset", m.Offset, "error", err)
		return nil
	}

	view, ok, err := statusOf(env)
	if err != nil {
		s.Logger.Warn("drop bad payload", "event_id", env.EventID, "event_type", env.EventType, "error", err)
		return nil
	}
	if !ok {
		return nil
	} // ignore

	// 2) dedup via Redis (pakai event_id); marker baru dipasang setelah sukses
	done, err := s.Cache.Processed(ctx, s.ServiceName, env.EventID)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	// 3) event dari topic berbeda bisa datang tidak berurutan; cache menolak yang lebih lama
	if _, err := s.Cache.SetOrderStatus(ctx, view); err != nil {
		return err
	}
	if err := s.Cache.MarkProcessed(ctx, s.ServiceName, env.EventID); err != nil {
		// status sudah tertulis; redelivery hanya menulis ulang nilai yang sama
		s.Logger.Warn("mark event processed failed", "event_id", env.EventID, "error", err)
	}
	return nil
}

// statusOf maps an event to the status it leaves the order in.
func statusOf(env orders.Envelope) (orders.StatusView, bool, error) {
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return orders.StatusView{}, false, err
		}
		return orders.StatusView{OrderID: p.OrderID, Status: orders.StatusOpen, UpdatedAt: env.OccurredAt}, true, nil

	case orders.EventOrderClaimed:
		p, err := kafkax.UnwrapPayload[orders.OrderClaimedPayload](env.Payload)
		if err != nil {
			return orders.StatusView{}, false, err
		}
		w := p.WorkerID
		return orders.StatusView{OrderID: p.OrderID, Status: orders.StatusClaimed, ClaimantID: &w, UpdatedAt: env.OccurredAt}, true, nil

	case orders.EventOrderReleased:
		p, err := kafkax.UnwrapPayload[orders.OrderReleasedPayload](env.Payload)
		if err != nil {
			return orders.StatusView{}, false, err
		}
		return orders.StatusView{OrderID: p.OrderID, Status: orders.StatusOpen, UpdatedAt: env.OccurredAt}, true, nil
	}
	return orders.StatusView{}, false, nil
}
