package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-order-dispatch/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ DB postgres.DBTX }

const orderColsBase = `id, job_kind, city, origin, destination, comment, distance_km, price_estimate,
	requester_phone, status, claimant_id, claimant_handle, claimed_at,
	broadcast_chat_id, broadcast_message_id, created_at, updated_at`

// claimant_phone bisa belum ada di skema lama, jadi selalu di urutan terakhir.
func orderCols(withPhone bool) string {
	if withPhone {
		return orderColsBase + ", claimant_phone"
	}
	return orderColsBase
}

func scanOrder(row pgx.Row, withPhone bool) (*Order, error) {
	var (
		o            Order
		kind, status string
	)
	dest := []any{
		&o.ID, &kind, &o.City, &o.Origin, &o.Destination, &o.Comment, &o.DistanceKm, &o.PriceEstimate,
		&o.RequesterPhone, &status, &o.ClaimantID, &o.ClaimantHandle, &o.ClaimedAt,
		&o.BroadcastChatID, &o.BroadcastMessageID, &o.CreatedAt, &o.UpdatedAt,
	}
	if withPhone {
		dest = append(dest, &o.ClaimantPhone)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	o.Kind = JobKind(kind)
	o.Status = Status(status)
	return &o, nil
}

// queryOrder runs the statement built for the full schema and, when the
// claimant_phone column is missing, runs the same statement once more
// without it. The WHERE clause is identical in both attempts.
func (r *Repo) queryOrder(ctx context.Context, build func(withPhone bool) (string, []any)) (*Order, error) {
	sql, args := build(true)
	o, err := scanOrder(r.DB.QueryRow(ctx, sql, args...), true)
	if postgres.IsUndefinedColumn(err, "claimant_phone") {
		sql, args = build(false)
		o, err = scanOrder(r.DB.QueryRow(ctx, sql, args...), false)
	}
	return o, err
}

func (r *Repo) CreateOrder(ctx context.Context, in OrderInput) (*Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	row := r.DB.QueryRow(ctx, `
		INSERT INTO orders(job_kind, city, origin, destination, comment, distance_km, price_estimate, requester_phone, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'OPEN')
		RETURNING `+orderCols(false),
		string(in.Kind), in.City, in.Origin, in.Destination, in.Comment, in.DistanceKm, in.PriceEstimate, in.RequesterPhone,
	)
	o, err := scanOrder(row, false)
	if err != nil {
		return nil, fmt.Errorf("orders: create: %w", err)
	}
	return o, nil
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (*Order, error) {
	o, err := r.queryOrder(ctx, func(withPhone bool) (string, []any) {
		return `SELECT ` + orderCols(withPhone) + ` FROM orders WHERE id = $1`, []any{id}
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("orders: get %d: %w", id, err)
	}
	return o, nil
}

// AttachBroadcastRef hanya mengisi ref sekali; panggilan berikutnya no-op.
func (r *Repo) AttachBroadcastRef(ctx context.Context, id, chatID int64, messageID int) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET broadcast_chat_id = $2, broadcast_message_id = $3, updated_at = NOW()
		WHERE id = $1 AND broadcast_message_id IS NULL`, id, chatID, messageID)
	if err != nil {
		return fmt.Errorf("orders: attach broadcast ref %d: %w", id, err)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	var one int
	err = r.DB.QueryRow(ctx, `SELECT 1 FROM orders WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Repo) GetChannelBinding(ctx context.Context) (int64, bool, error) {
	var v string
	err := r.DB.QueryRow(ctx, `SELECT value FROM bot_settings WHERE key = $1`, SettingDriversChannel).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("orders: get channel binding: %w", err)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("orders: bad channel binding %q: %w", v, err)
	}
	return id, true, nil
}

func (r *Repo) SetChannelBinding(ctx context.Context, chatID int64) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO bot_settings(key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		SettingDriversChannel, strconv.FormatInt(chatID, 10))
	if err != nil {
		return fmt.Errorf("orders: set channel binding: %w", err)
	}
	return nil
}

func (r *Repo) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.DB.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[Status]int{StatusOpen: 0, StatusClaimed: 0}
	for rows.Next() {
		var (
			s string
			n int
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[Status(s)] = n
	}
	return out, rows.Err()
}
