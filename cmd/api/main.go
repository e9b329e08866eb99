package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-order-dispatch/internal/amqpx"
	"github.com/ariefcatur/go-order-dispatch/internal/bot"
	"github.com/ariefcatur/go-order-dispatch/internal/config"
	"github.com/ariefcatur/go-order-dispatch/internal/httpx"
	kafkax "github.com/ariefcatur/go-order-dispatch/internal/kafka"
	"github.com/ariefcatur/go-order-dispatch/internal/notifier"
	"github.com/ariefcatur/go-order-dispatch/internal/orders"
	"github.com/ariefcatur/go-order-dispatch/internal/postgres"
	"github.com/ariefcatur/go-order-dispatch/internal/redisx"
	"github.com/ariefcatur/go-order-dispatch/internal/scheduler"
	"github.com/ariefcatur/go-order-dispatch/internal/telegram"
	"github.com/ariefcatur/go-order-dispatch/internal/tracing"
	"github.com/ariefcatur/go-order-dispatch/internal/workers"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.TracingEnabled {
		shutdown, err := tracing.InitTracer(cfg.ServiceName, os.Stdout)
		if err != nil {
			return err
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	// Stores
	var (
		store    orders.Store
		registry workers.Registry
		checks   []httpx.HealthCheck
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		store, registry = orders.NewMemoryStore(), workers.NewMemoryRegistry()
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		store, registry = &orders.Repo{DB: db}, &workers.Repo{DB: db}
		checks = append(checks, db.Ping)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	cache := redisx.NewCache(rdb)
	checks = append(checks, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

	// Event sink
	var (
		events   orders.Publisher
		producer *kafkax.Producer
	)
	switch cfg.EventSink {
	case config.SinkKafka:
		producer = kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger)
		producer.Start(context.Background())
		events = producer
	case config.SinkAMQP:
		pub, err := amqpx.Dial(cfg.AMQPURL)
		if err != nil {
			return err
		}
		defer pub.Close()
		events = pub
		checks = append(checks, func(context.Context) error { return pub.Ping() })
	}

	// Telegram
	tg, err := telegram.New(cfg.TelegramToken, cfg.TelegramEndpoint, cfg.TelegramRateLimit, logger)
	if err != nil {
		return err
	}
	n := notifier.New(tg, cfg.PublicSiteURL)
	router := bot.NewRouter(store, registry, n, events, cfg.ServiceName, logger)
	router.Statuses = cache
	if cfg.TelegramWebhookSecret == "" {
		logger.Warn("TG_WEBHOOK_SECRET is empty, webhook updates will be rejected")
	}

	// HTTP
	mux := httpx.NewRouter(checks...)
	(&httpx.OrdersHandler{
		Store:    store,
		Notifier: n,
		Cache:    cache,
		Events:   events,
		Service:  cfg.ServiceName,
		Logger:   logger.With("component", "orders-http"),
	}).Register(mux)
	(&httpx.WebhookHandler{
		Events:    router,
		Dedup:     cache,
		Registrar: tg,
		Secret:    cfg.TelegramWebhookSecret,
		PublicURL: cfg.PublicSiteURL,
		Logger:    logger.With("component", "webhook"),
	}).Register(mux)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return scheduler.Start(gctx, cfg.StatsSchedule, &scheduler.StatsJob{Orders: store, Logger: logger}, logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		sctx, scancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer scancel()
		return srv.Shutdown(sctx)
	})
	err = g.Wait()

	// server sudah berhenti; tutup inbox -> flush & close writer
	if producer != nil {
		producer.Close()
		producer.WaitClosed()
	}
	return err
}
