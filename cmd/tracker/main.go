package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-order-dispatch/internal/config"
	kafkax "github.com/ariefcatur/go-order-dispatch/internal/kafka"
	"github.com/ariefcatur/go-order-dispatch/internal/orders"
	"github.com/ariefcatur/go-order-dispatch/internal/redisx"
	"github.com/ariefcatur/go-order-dispatch/internal/tracker"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &tracker.Service{
		Cache:       redisx.NewCache(rdb),
		ServiceName: cfg.ServiceName + "-tracker",
		Logger:      logger.With("component", "tracker"),
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.TrackerGroup, orders.AllTopics, cfg.TrackerWorkers, logger)
	logger.Info("tracker consumer started", "group", cfg.TrackerGroup, "topics", orders.AllTopics, "workers", cfg.TrackerWorkers)
	if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
		logger.Error("consumer exit", "error", err)
		os.Exit(1)
	}
	logger.Info("tracker stopped")
}
