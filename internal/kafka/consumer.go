package kafka

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler harus return nil hanya jika proses sukses & boleh commit offset.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
	logger  *slog.Logger
}

// NewConsumer membaca beberapa topic sekaligus dalam satu consumer group.
func NewConsumer(brokers []string, group string, topics []string, workers int, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, logger: logger.With("component", "kafka-consumer", "group", group)}
}

// Start blocks until ctx is cancelled or the reader fails.
//
// kafka-go commits the highest offset per partition, so committing a later
// message would also commit an earlier failed one. Each partition is
// therefore handled in order by a single worker, and a failing message is
// retried until it succeeds or ctx ends; nothing past it is committed.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup

	// workers
	for i := range jobs {
		jobs[i] = make(chan kafka.Message, 128)
		wg.Add(1)
		go func(id int, in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				if err := handleWithRetry(ctx, m, h, retryBase, retryMax, c.logger.With("worker", id)); err != nil {
					// shutdown: offset stays uncommitted, redelivered to the next owner
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					c.logger.Error("commit failed", "worker", id, "topic", m.Topic, "offset", m.Offset, "error", err)
				}
			}
		}(i, jobs[i])
	}
	stop := func() {
		for _, ch := range jobs {
			close(ch)
		}
		wg.Wait()
	}

	// dispatcher loop
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			// kecilkan noise saat shutdown
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case jobs[workerFor(m.Topic, m.Partition, c.workers)] <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

const (
	retryBase = 200 * time.Millisecond
	retryMax  = 10 * time.Second
)

// workerFor pins a topic partition to one worker.
func workerFor(topic string, partition, n int) int {
	f := fnv.New32a()
	_, _ = f.Write([]byte(topic))
	return int((f.Sum32() + uint32(partition)) % uint32(n))
}

// handleWithRetry runs h until it succeeds, doubling the pause between
// attempts up to maxWait. It only gives up when ctx is done.
func handleWithRetry(ctx context.Context, m kafka.Message, h Handler, base, maxWait time.Duration, logger *slog.Logger) error {
	wait := base
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			return nil
		}
		logger.Error("handle message failed", "topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "attempt", attempt, "error", err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if wait *= 2; wait > maxWait {
			wait = maxWait
		}
	}
}
