// Package workers keeps the identity and contact details of chat users who
// take orders.
package workers

import (
	"context"
	"time"
)

type Worker struct {
	ID        int64     `json:"worker_id"`
	Handle    *string   `json:"handle,omitempty"`
	FirstName *string   `json:"first_name,omitempty"`
	LastName  *string   `json:"last_name,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input carries the fields of one upsert. Nil fields are left untouched.
type Input struct {
	ID        int64
	Handle    *string
	FirstName *string
	LastName  *string
	Phone     *string
}

type Registry interface {
	Upsert(ctx context.Context, in Input) (*Worker, error)
	GetPhone(ctx context.Context, id int64) (phone string, ok bool, err error)
}

var (
	_ Registry = (*Repo)(nil)
	_ Registry = (*MemoryRegistry)(nil)
)
