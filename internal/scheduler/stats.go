// Package scheduler runs the periodic jobs of the API process.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ariefcatur/go-order-dispatch/internal/metrics"
	"github.com/ariefcatur/go-order-dispatch/internal/orders"
)

// Counter is the part of orders.Store the stats job reads.
type Counter interface {
	CountByStatus(ctx context.Context) (map[orders.Status]int, error)
}

// StatsJob refreshes the dispatch_orders gauge.
type StatsJob struct {
	Orders Counter
	Logger *slog.Logger
}

// Run implements cron.Job.
func (j *StatsJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := j.Refresh(ctx); err != nil {
		j.Logger.Error("refresh order stats failed", "error", err)
	}
}

func (j *StatsJob) Refresh(ctx context.Context) error {
	counts, err := j.Orders.CountByStatus(ctx)
	if err != nil {
		return err
	}
	// status tanpa order tetap di-set 0
	for _, s := range []orders.Status{orders.StatusOpen, orders.StatusClaimed} {
		metrics.Orders.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
	return nil
}

// Start runs the job on a cron schedule (5-field or @every) and blocks
// until ctx is done.
func Start(ctx context.Context, schedule string, job *StatsJob, logger *slog.Logger) error {
	logger = logger.With("component", "stats-scheduler")
	c := cron.New()
	if _, err := c.AddJob(schedule, cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(job)); err != nil {
		return err
	}
	job.Run() // isi gauge sekali di awal
	c.Start()
	logger.Info("stats scheduler started", "schedule", schedule)
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("stats scheduler stopped")
	return nil
}
