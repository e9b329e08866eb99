package bot

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-order-dispatch/internal/gateway"
	"github.com/ariefcatur/go-order-dispatch/internal/metrics"
	"github.com/ariefcatur/go-order-dispatch/internal/notifier"
	"github.com/ariefcatur/go-order-dispatch/internal/orders"
)

// ack is the answer shown on the pressed button. Zero value = silent.
type ack struct {
	text   string
	urgent bool
}

// handleButton answers the interaction exactly once, whatever the outcome.
func (r *Router) handleButton(ctx context.Context, e gateway.ButtonPressed) error {
	var (
		reply ack
		err   error
	)
	switch e.Action {
	case gateway.ActionClaim:
		reply, err = r.claim(ctx, e)
	case gateway.ActionRelease:
		reply, err = r.release(ctx, e)
	}
	r.warn(r.Notifier.GW.Acknowledge(ctx, e.InteractionID, reply.text, reply.urgent),
		"acknowledge", "interaction_id", e.InteractionID)
	return err
}

func (r *Router) claim(ctx context.Context, e gateway.ButtonPressed) (ack, error) {
	if e.OrderID == 0 {
		return ack{}, nil
	}

	phone, hasPhone, err := r.Workers.GetPhone(ctx, e.Actor.ID)
	if err != nil {
		// klaim tetap jalan tanpa nomor
		r.warn(err, "lookup worker phone", "worker_id", e.Actor.ID)
	}
	c := orders.Claimant{WorkerID: e.Actor.ID, Handle: optional(e.Actor.Handle)}
	if hasPhone {
		c.Phone = &phone
	}

	o, err := r.Orders.TryClaim(ctx, e.OrderID, c)
	switch {
	case errors.Is(err, orders.ErrClaimConflict):
		metrics.ClaimsTotal.WithLabelValues("conflict").Inc()
		return ack{text: notifier.AckTaken, urgent: true}, nil
	case errors.Is(err, orders.ErrNotFound):
		metrics.ClaimsTotal.WithLabelValues("not_found").Inc()
		return ack{text: notifier.AckNotFound, urgent: true}, nil
	case err != nil:
		metrics.ClaimsTotal.WithLabelValues("error").Inc()
		return ack{}, err
	}
	metrics.ClaimsTotal.WithLabelValues("won").Inc()
	r.Logger.Info("order claimed", "order_id", o.ID, "worker_id", e.Actor.ID)
	r.cacheStatus(ctx, o)

	// Order sudah CLAIMED di store; kegagalan notifikasi hanya dicatat.
	r.warn(r.Notifier.MarkClaimed(ctx, o), "mark claimed", "order_id", o.ID)

	in := identity(e.Actor)
	in.Phone = c.Phone
	_, uerr := r.Workers.Upsert(ctx, in)
	r.warn(uerr, "upsert claimant", "worker_id", e.Actor.ID)

	r.warn(r.Notifier.NotifyWorkerOfClaim(ctx, o, e.Actor.ID), "notify claimant", "order_id", o.ID)

	claimedAt := time.Now().UTC()
	if o.ClaimedAt != nil {
		claimedAt = *o.ClaimedAt
	}
	r.emit(ctx, orders.EventOrderClaimed, o.ID, orders.OrderClaimedPayload{
		OrderID: o.ID, WorkerID: e.Actor.ID, Handle: e.Actor.Handle, ClaimedAt: claimedAt,
	})
	return ack{text: notifier.AckClaimed}, nil
}

func (r *Router) release(ctx context.Context, e gateway.ButtonPressed) (ack, error) {
	if e.OrderID == 0 {
		return ack{}, nil
	}

	o, err := r.Orders.Release(ctx, e.OrderID, e.Actor.ID)
	switch {
	case errors.Is(err, orders.ErrNotAuthorized):
		metrics.ReleasesTotal.WithLabelValues("not_authorized").Inc()
		return ack{}, nil
	case errors.Is(err, orders.ErrNotClaimed):
		metrics.ReleasesTotal.WithLabelValues("not_claimed").Inc()
		return ack{}, nil
	case errors.Is(err, orders.ErrNotFound):
		metrics.ReleasesTotal.WithLabelValues("not_found").Inc()
		return ack{}, nil
	case err != nil:
		metrics.ReleasesTotal.WithLabelValues("error").Inc()
		return ack{}, err
	}
	metrics.ReleasesTotal.WithLabelValues("released").Inc()
	r.Logger.Info("order released", "order_id", o.ID, "worker_id", e.Actor.ID)
	r.cacheStatus(ctx, o)

	r.warn(r.Notifier.MarkReleased(ctx, o), "mark released", "order_id", o.ID)
	r.emit(ctx, orders.EventOrderReleased, o.ID, orders.OrderReleasedPayload{OrderID: o.ID, WorkerID: e.Actor.ID})
	return ack{text: notifier.AckReleased}, nil
}
