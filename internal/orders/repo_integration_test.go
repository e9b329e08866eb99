//go:build integration

package orders_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-order-dispatch/internal/orders"
	"github.com/ariefcatur/go-order-dispatch/internal/postgres"
)

// setupPool starts a Postgres container and returns a migrated pool.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("dispatch_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	pool, err := postgres.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := postgres.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func TestRepoConcurrentClaims(t *testing.T) {
	pool := setupPool(t)
	repo := &orders.Repo{DB: pool}
	ctx := context.Background()

	o, err := repo.CreateOrder(ctx, orders.OrderInput{Kind: orders.KindRide, Origin: "A", Destination: "B"})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	var wins, conflicts atomic.Int32
	var g errgroup.Group
	for i := 1; i <= 8; i++ {
		wid := int64(i)
		g.Go(func() error {
			_, err := repo.TryClaim(ctx, o.ID, orders.Claimant{WorkerID: wid})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, orders.ErrClaimConflict):
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("TryClaim: %v", err)
	}
	if wins.Load() != 1 || conflicts.Load() != 7 {
		t.Fatalf("wins=%d conflicts=%d, want 1 and 7", wins.Load(), conflicts.Load())
	}
}

func TestRepoClaimWithoutPhoneColumn(t *testing.T) {
	pool := setupPool(t)
	repo := &orders.Repo{DB: pool}
	ctx := context.Background()

	if _, err := pool.Exec(ctx, `ALTER TABLE orders DROP COLUMN claimant_phone`); err != nil {
		t.Fatalf("drop column: %v", err)
	}
	o, err := repo.CreateOrder(ctx, orders.OrderInput{Kind: orders.KindDelivery, Origin: "A", Destination: "B"})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	phone := "555"
	got, err := repo.TryClaim(ctx, o.ID, orders.Claimant{WorkerID: 1, Phone: &phone})
	if err != nil {
		t.Fatalf("TryClaim on degraded schema: %v", err)
	}
	if !got.ClaimedBy(1) || got.ClaimantPhone != nil {
		t.Fatalf("order = %+v, want claimed by 1 without phone", got)
	}
	if _, err := repo.TryClaim(ctx, o.ID, orders.Claimant{WorkerID: 2}); !errors.Is(err, orders.ErrClaimConflict) {
		t.Fatalf("second claim: got %v, want ErrClaimConflict", err)
	}
	if _, err := repo.Release(ctx, o.ID, 1); err != nil {
		t.Fatalf("Release on degraded schema: %v", err)
	}
}

func TestRepoAttachAndBinding(t *testing.T) {
	pool := setupPool(t)
	repo := &orders.Repo{DB: pool}
	ctx := context.Background()

	o, err := repo.CreateOrder(ctx, orders.OrderInput{Kind: orders.KindRide, Origin: "A", Destination: "B"})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if err := repo.AttachBroadcastRef(ctx, o.ID, -100, 5); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := repo.AttachBroadcastRef(ctx, o.ID, -100, 6); err != nil {
		t.Fatalf("second attach: %v", err)
	}
	got, err := repo.GetOrder(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if *got.BroadcastMessageID != 5 {
		t.Fatalf("message id = %d, want 5", *got.BroadcastMessageID)
	}

	if err := repo.SetChannelBinding(ctx, -1001); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := repo.SetChannelBinding(ctx, -1002); err != nil {
		t.Fatalf("rebind: %v", err)
	}
	ch, ok, err := repo.GetChannelBinding(ctx)
	if err != nil || !ok || ch != -1002 {
		t.Fatalf("binding = %d,%v,%v, want -1002", ch, ok, err)
	}
}
