package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("dispatch/orders")

// TryClaim: satu UPDATE bersyarat (status OPEN dan belum ada claimant).
// Tidak ada read-then-write; kalau predikat gagal, tidak ada baris yang berubah.
func (r *Repo) TryClaim(ctx context.Context, id int64, c Claimant) (*Order, error) {
	ctx, span := tracer.Start(ctx, "orders.TryClaim", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.Int64("worker.id", c.WorkerID),
	))
	defer span.End()

	o, err := r.queryOrder(ctx, func(withPhone bool) (string, []any) {
		set := `status = 'CLAIMED', claimant_id = $2, claimant_handle = $3, claimed_at = NOW(), updated_at = NOW()`
		args := []any{id, c.WorkerID, c.Handle}
		if withPhone {
			set += `, claimant_phone = $4`
			args = append(args, c.Phone)
		}
		return `UPDATE orders SET ` + set + `
			WHERE id = $1 AND status = 'OPEN' AND claimant_id IS NULL
			RETURNING ` + orderCols(withPhone), args
	})
	if errors.Is(err, pgx.ErrNoRows) {
		if _, gerr := r.GetOrder(ctx, id); gerr != nil {
			return nil, gerr
		}
		span.SetAttributes(attribute.Bool("claim.conflict", true))
		return nil, ErrClaimConflict
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "claim failed")
		return nil, fmt.Errorf("orders: claim %d: %w", id, err)
	}
	return o, nil
}

// Release mengembalikan order ke OPEN, hanya oleh claimant yang tercatat.
func (r *Repo) Release(ctx context.Context, id, workerID int64) (*Order, error) {
	ctx, span := tracer.Start(ctx, "orders.Release", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.Int64("worker.id", workerID),
	))
	defer span.End()

	o, err := r.queryOrder(ctx, func(withPhone bool) (string, []any) {
		set := `status = 'OPEN', claimant_id = NULL, claimant_handle = NULL, claimed_at = NULL, updated_at = NOW()`
		if withPhone {
			set += `, claimant_phone = NULL`
		}
		return `UPDATE orders SET ` + set + `
			WHERE id = $1 AND status = 'CLAIMED' AND claimant_id = $2
			RETURNING ` + orderCols(withPhone), []any{id, workerID}
	})
	if errors.Is(err, pgx.ErrNoRows) {
		cur, gerr := r.GetOrder(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		if !CanTransition(cur.Status, StatusOpen) {
			return nil, ErrNotClaimed
		}
		return nil, ErrNotAuthorized
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "release failed")
		return nil, fmt.Errorf("orders: release %d: %w", id, err)
	}
	return o, nil
}
