package main

import (
	"context"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/slotengine/libs/auth"
	"github.com/md-rashed-zaman/slotengine/libs/db"
	"github.com/md-rashed-zaman/slotengine/libs/grpcx"
	"github.com/md-rashed-zaman/slotengine/libs/httpx"
	"github.com/md-rashed-zaman/slotengine/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotengine/libs/otel"
	"github.com/md-rashed-zaman/slotengine/libs/runtime"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/cache"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/consumer"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/inbox"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/storage"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/tzconv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.Service, cfg.LogLevel)

	ctx, stop := runtime.SignalContext(context.Background())
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var (
		store    storage.Store
		recorder inbox.Recorder
		checks   []runtime.ReadyCheck
	)
	outboxRepo := outbox.NewRepository()
	switch cfg.StorageDriver {
	case "memory":
		logger.Warn("using in-memory storage; data is lost on restart")
		store = storage.NewMemory()
		recorder = inbox.NewMemory()
	default:
		pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()

		pg := storage.NewPostgres(pool, outboxRepo)
		if cfg.AutoMigrate {
			if err := pg.Migrate(ctx); err != nil {
				logger.Error("schema migration failed", "err", err)
				panic(err)
			}
		}
		store = pg
		recorder = inbox.NewRepository(pool)
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})

		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go publisher.Run(ctx)
	}

	var (
		availCache  cache.Availability
		idempotency cache.Idempotency
		limiter     httpx.Limiter
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		rc := cache.NewRedis(rdb, cfg.CacheTTL, cfg.IdempotencyTTL)
		availCache, idempotency = rc, rc
		limiter = httpx.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, "rl:"+cfg.Service)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: cache.ReadyCheck(rdb)})
	} else {
		mc := cache.NewMemory(cfg.CacheTTL, cfg.IdempotencyTTL)
		availCache, idempotency = mc, mc
		limiter = httpx.NewMemoryRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	}

	eng := engine.New(store, engine.Options{
		Zones:                tzconv.NewZones(),
		Cache:                availCache,
		StorageTimeout:       cfg.StorageTimeout,
		EnforceAvailableSlot: cfg.EnforceAvailableSlot,
		Logger:               logger,
	})

	if len(cfg.KafkaBrokers) > 0 {
		cancellations := consumer.New(logger, recorder, consumer.Config{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
			Topic:   cfg.CancelledTopic,
		}, consumer.CancellationHandler(eng, logger))
		go cancellations.Run(ctx)
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
	} else {
		logger.Warn("kafka not configured; cancellation events are not consumed")
	}

	grpcSrv := grpcx.NewServer(logger)
	if err := grpcSrv.Start(ctx, ":"+cfg.GRPCPort); err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	grpcSrv.SetServing(cfg.Service, true)

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.New(eng, idempotency, logger).Register(mux, handlers.Routes{
		Public: []httpx.Middleware{httpx.RateLimit(limiter, logger, cfg.RateLimitFailOpen)},
		Host:   []httpx.Middleware{auth.Require(cfg.JWTSecret, auth.RoleHost)},
	})

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(func(r *http.Request, v any) {
			logger.Error("handler panic", "panic", v, "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()))
		}),
		httpx.WithAccessLog(logger, "/healthz", "/readyz"),
		httpx.WithBodyLimit(int64(cfg.BodyLimitBytes)),
		httpx.WithTimeout(cfg.RequestTimeout),
	)
	handler = otelhttp.NewHandler(handler, "availability")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	grpcSrv.SetServing(cfg.Service, false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
