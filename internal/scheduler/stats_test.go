package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ariefcatur/go-order-dispatch/internal/metrics"
	"github.com/ariefcatur/go-order-dispatch/internal/orders"
)

type failingCounter struct{}

func (failingCounter) CountByStatus(context.Context) (map[orders.Status]int, error) {
	return nil, errors.New("db down")
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	store := orders.NewMemoryStore()
	for i := 0; i < 3; i++ {
		if _, err := store.CreateOrder(ctx, orders.OrderInput{Kind: orders.KindRide, Origin: "A", Destination: "B"}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.TryClaim(ctx, 2, orders.Claimant{WorkerID: 1}); err != nil {
		t.Fatal(err)
	}

	job := &StatsJob{Orders: store, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	if err := job.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := testutil.ToFloat64(metrics.Orders.WithLabelValues("OPEN")); got != 2 {
		t.Fatalf("OPEN = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.Orders.WithLabelValues("CLAIMED")); got != 1 {
		t.Fatalf("CLAIMED = %v, want 1", got)
	}

	if err := (&StatsJob{Orders: failingCounter{}}).Refresh(ctx); err == nil {
		t.Fatal("got nil, want store error")
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	job := &StatsJob{Orders: orders.NewMemoryStore(), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	if err := Start(context.Background(), "every minute", job, job.Logger); err == nil {
		t.Fatal("bad schedule accepted")
	}
}

func TestStartStopsWithContext(t *testing.T) {
	job := &StatsJob{Orders: orders.NewMemoryStore(), Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Start(ctx, "@every 1h", job, job.Logger) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
