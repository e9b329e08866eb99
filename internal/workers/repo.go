package workers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-order-dispatch/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ DB postgres.DBTX }

// Upsert: COALESCE supaya field yang tidak dikirim tidak menghapus nilai lama
// (terutama phone).
func (r *Repo) Upsert(ctx context.Context, in Input) (*Worker, error) {
	var w Worker
	err := r.DB.QueryRow(ctx, `
		INSERT INTO workers(worker_id, handle, first_name, last_name, phone)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (worker_id) DO UPDATE SET
			handle     = COALESCE(EXCLUDED.handle, workers.handle),
			first_name = COALESCE(EXCLUDED.first_name, workers.first_name),
			last_name  = COALESCE(EXCLUDED.last_name, workers.last_name),
			phone      = COALESCE(EXCLUDED.phone, workers.phone),
			updated_at = NOW()
		RETURNING worker_id, handle, first_name, last_name, phone, created_at, updated_at`,
		in.ID, in.Handle, in.FirstName, in.LastName, in.Phone,
	).Scan(&w.ID, &w.Handle, &w.FirstName, &w.LastName, &w.Phone, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("workers: upsert %d: %w", in.ID, err)
	}
	return &w, nil
}

func (r *Repo) GetPhone(ctx context.Context, id int64) (string, bool, error) {
	var phone *string
	err := r.DB.QueryRow(ctx, `SELECT phone FROM workers WHERE worker_id = $1`, id).Scan(&phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("workers: get phone %d: %w", id, err)
	}
	if phone == nil || *phone == "" {
		return "", false, nil
	}
	return *phone, true, nil
}
