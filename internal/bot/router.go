// Package bot routes inbound chat events to the order store, the worker
// registry and the notifier. The router keeps no state between events.
package bot

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ariefcatur/go-order-dispatch/internal/gateway"
	"github.com/ariefcatur/go-order-dispatch/internal/metrics"
	"github.com/ariefcatur/go-order-dispatch/internal/notifier"
	"github.com/ariefcatur/go-order-dispatch/internal/orders"
	"github.com/ariefcatur/go-order-dispatch/internal/workers"
)

const (
	CommandBindChannel = "bind_drivers_channel"
	CommandHelp        = "help"
	CommandStart       = "start"
)

var tracer = otel.Tracer("dispatch/bot")

// StatusCache is the order status cache read by GET /orders/{id}. Writes
// older than the cached entry are ignored by the implementation.
type StatusCache interface {
	SetOrderStatus(ctx context.Context, v orders.StatusView) (bool, error)
}

type Router struct {
	Orders   orders.Store
	Workers  workers.Registry
	Notifier *notifier.Notifier
	Events   orders.Publisher // optional
	Statuses StatusCache      // optional
	Service  string
	Logger   *slog.Logger
}

func NewRouter(o orders.Store, w workers.Registry, n *notifier.Notifier, events orders.Publisher, service string, logger *slog.Logger) *Router {
	return &Router{
		Orders:   o,
		Workers:  w,
		Notifier: n,
		Events:   events,
		Service:  service,
		Logger:   logger.With("component", "bot-router"),
	}
}

// Handle processes one event. Gateway failures after a committed store
// change are logged and do not fail the event; store failures are returned.
func (r *Router) Handle(ctx context.Context, ev gateway.Event) error {
	ctx, span := tracer.Start(ctx, "bot.Handle", trace.WithAttributes(attribute.String("event.kind", ev.Kind())))
	defer span.End()
	metrics.InboundEventsTotal.WithLabelValues(ev.Kind()).Inc()

	var err error
	switch e := ev.(type) {
	case gateway.Command:
		err = r.handleCommand(ctx, e)
	case gateway.ContactShared:
		err = r.handleContact(ctx, e)
	case gateway.ButtonPressed:
		err = r.handleButton(ctx, e)
	case gateway.Ignored:
		if e.InteractionID != "" {
			err = r.Notifier.GW.Acknowledge(ctx, e.InteractionID, "", false)
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "event failed")
	}
	return err
}

func (r *Router) handleCommand(ctx context.Context, e gateway.Command) error {
	switch e.Name {
	case CommandBindChannel:
		// hanya dari channel itu sendiri
		if !e.Chat.IsBroadcast() {
			return nil
		}
		if err := r.Orders.SetChannelBinding(ctx, e.Chat.ID); err != nil {
			return err
		}
		r.Logger.Info("drivers channel bound", "chat_id", e.Chat.ID)
		r.warn(r.Notifier.ConfirmBinding(ctx, e.Chat.ID), "confirm binding", "chat_id", e.Chat.ID)
		return nil

	case CommandHelp:
		return r.Notifier.Help(ctx, e.Chat.ID)

	case CommandStart:
		if e.Actor == nil {
			return nil
		}
		w, err := r.Workers.Upsert(ctx, identity(*e.Actor))
		if err != nil {
			return err
		}
		hasPhone := w.Phone != nil && *w.Phone != ""
		return r.Notifier.NotifyRegistration(ctx, e.Actor.ID, hasPhone)
	}
	return nil
}

func (r *Router) handleContact(ctx context.Context, e gateway.ContactShared) error {
	// kontak orang lain diabaikan
	if e.OwnerID != e.Actor.ID || e.Phone == "" {
		return nil
	}
	in := identity(e.Actor)
	in.Phone = &e.Phone
	if _, err := r.Workers.Upsert(ctx, in); err != nil {
		return err
	}
	r.warn(r.Notifier.ConfirmPhone(ctx, e.Actor.ID), "confirm phone", "worker_id", e.Actor.ID)
	return nil
}

// identity maps the actor to an upsert; empty fields are left untouched.
func identity(a gateway.Actor) workers.Input {
	return workers.Input{
		ID:        a.ID,
		Handle:    optional(a.Handle),
		FirstName: optional(a.FirstName),
		LastName:  optional(a.LastName),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *Router) warn(err error, msg string, args ...any) {
	if err == nil {
		return
	}
	r.Logger.Warn(msg+" failed", append(args, "error", err)...)
}

func (r *Router) emit(ctx context.Context, eventType string, orderID int64, payload any) {
	var traceID string
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}
	err := orders.Emit(ctx, r.Events, eventType, r.Service, traceID, orderID, payload)
	r.warn(err, "publish "+eventType, "order_id", orderID)
}

// cacheStatus refreshes the status cache after a committed transition.
func (r *Router) cacheStatus(ctx context.Context, o *orders.Order) {
	if r.Statuses == nil {
		return
	}
	_, err := r.Statuses.SetOrderStatus(ctx, orders.ViewOf(o))
	r.warn(err, "cache order status", "order_id", o.ID)
}
