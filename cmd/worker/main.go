package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/arunvm123/gigbooking/cache"
	cacheredis "github.com/arunvm123/gigbooking/cache/redis"
	"github.com/arunvm123/gigbooking/clock"
	"github.com/arunvm123/gigbooking/config"
	"github.com/arunvm123/gigbooking/logger"
	"github.com/arunvm123/gigbooking/repository/postgres"
	"github.com/arunvm123/gigbooking/service"
	bookingkafka "github.com/arunvm123/gigbooking/service/kafka"
	"github.com/arunvm123/gigbooking/worker"
)

func main() {
	// Load configuration (fallback to env variables if config file not found)
	cfg, err := config.Initialise("config.yaml", false)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatal("Failed to initialise logger:", err)
	}
	defer lg.Sync()

	db, err := postgres.Open(&cfg.Database)
	if err != nil {
		lg.Fatal("failed to connect to database", zap.Error(err))
	}

	// Graceful shutdown context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The worker keeps running without Redis; reads simply miss.
	var backend cache.Cache
	if client, err := cacheredis.NewClient(ctx, cfg.Redis); err != nil {
		lg.Warn("redis unavailable, cache disabled", zap.Error(err))
	} else {
		redisCache := cacheredis.NewRedisCache(client, cfg.Redis, lg)
		defer redisCache.Close()
		backend = redisCache
	}
	coordinator := cache.NewCoordinator(backend, cfg.Cache.TTL(), lg)

	publisher := bookingkafka.NewLifecyclePublisher(bookingkafka.NewWriter(cfg.Kafka))
	defer publisher.Close()

	clk := clock.NewSystem()
	events := postgres.NewEventRepository(db)
	bookings := postgres.NewBookingRepository(db)
	ledger := service.NewCapacityLedger(events, clk, lg)
	orchestrator := service.NewBookingOrchestrator(events, bookings, ledger, coordinator, publisher, clk, lg)

	// Setup Kafka consumer. The processor commits offsets itself once a
	// result is handled.
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.PaymentResultsTopic,
		GroupID: cfg.Kafka.ConsumerGroup,
	})
	defer consumer.Close()

	processor := worker.NewPaymentProcessor(orchestrator, consumer, cfg.Worker.MaxWorkers, lg)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		lg.Info("received shutdown signal, stopping worker")
		cancel()
	}()

	if err := processor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		lg.Fatal("worker error", zap.Error(err))
	}

	lg.Info("worker stopped gracefully")
}
