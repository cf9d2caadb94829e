package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arunvm123/gigbooking/cache"
	cacheredis "github.com/arunvm123/gigbooking/cache/redis"
	"github.com/arunvm123/gigbooking/clock"
	"github.com/arunvm123/gigbooking/config"
	"github.com/arunvm123/gigbooking/logger"
	"github.com/arunvm123/gigbooking/repository/postgres"
	"github.com/arunvm123/gigbooking/service"
	bookingkafka "github.com/arunvm123/gigbooking/service/kafka"
)

func main() {
	// Try to load from config.yaml first, fallback to environment variables
	cfg, err := config.Initialise("config.yaml", false)
	if err != nil {
		log.Printf("Config file not found or invalid, using environment variables: %v", err)
		cfg, err = config.Initialise("", true)
		if err != nil {
			log.Fatal("Failed to load configuration:", err)
		}
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatal("Failed to initialise logger:", err)
	}
	defer lg.Sync()

	if cfg.Log.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.Open(&cfg.Database)
	if err != nil {
		lg.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := postgres.Migrate(db); err != nil {
		lg.Fatal("failed to migrate database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	health := NewHealthHandler("gigbooking").
		Add("database", func(ctx context.Context) error { return postgres.Ping(ctx, db) }, true)

	// Redis is optional: without it every read misses and rate limiting is off.
	var (
		backend cache.Cache
		limiter cache.RateLimiter
	)
	if client, err := cacheredis.NewClient(ctx, cfg.Redis); err != nil {
		lg.Warn("redis unavailable, cache and rate limiting disabled", zap.Error(err))
	} else {
		redisCache := cacheredis.NewRedisCache(client, cfg.Redis, lg)
		defer redisCache.Close()
		backend = redisCache
		limiter = cacheredis.NewRateLimiter(client)
		health.Add("cache", redisCache.Ping, false)
	}
	coordinator := cache.NewCoordinator(backend, cfg.Cache.TTL(), lg)

	publisher := bookingkafka.NewLifecyclePublisher(bookingkafka.NewWriter(cfg.Kafka))
	defer publisher.Close()

	clk := clock.NewSystem()
	events := postgres.NewEventRepository(db)
	bookings := postgres.NewBookingRepository(db)
	users := postgres.NewUserRepository(db)

	ledger := service.NewCapacityLedger(events, clk, lg)
	orchestrator := service.NewBookingOrchestrator(events, bookings, ledger, coordinator, publisher, clk, lg)
	eventService := service.NewEventService(events, coordinator, clk, lg)

	jwtService := NewJWTService(cfg.JWTSecret, cfg.JWTTTL())

	router := SetupRouter(cfg, routerDeps{
		auth:     NewAuthHandler(users, jwtService, lg),
		events:   NewEventHandler(eventService),
		bookings: NewBookingHandler(orchestrator),
		health:   health,
		jwt:      jwtService,
		limiter:  limiter,
		logger:   lg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("starting gigbooking API", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("server shutdown failed", zap.Error(err))
	}
}
