package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotengine/libs/config"
	"github.com/md-rashed-zaman/slotengine/libs/kafkax"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/outbox"
)

type serviceConfig struct {
	Service  string
	Port     string
	GRPCPort string
	LogLevel string

	StorageDriver  string
	DatabaseURL    string
	AutoMigrate    bool
	StorageTimeout time.Duration

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	CacheTTL       time.Duration
	IdempotencyTTL time.Duration

	RateLimitPerMinute int
	RateLimitFailOpen  bool
	RequestTimeout     time.Duration
	BodyLimitBytes     int

	KafkaBrokers   []string
	KafkaGroupID   string
	CancelledTopic string

	JWTSecret            string
	EnforceAvailableSlot bool
}

func loadConfig() (serviceConfig, error) {
	cfg := serviceConfig{
		Service:        config.String("SERVICE_NAME", "availability-service"),
		LogLevel:       config.String("LOG_LEVEL", "info"),
		StorageDriver:  strings.ToLower(config.String("STORAGE_DRIVER", "postgres")),
		RedisAddr:      config.String("REDIS_ADDR", ""),
		RedisPassword:  config.String("REDIS_PASSWORD", ""),
		KafkaBrokers:   kafkax.SplitBrokers(config.String("KAFKA_BROKERS", "")),
		KafkaGroupID:   config.String("KAFKA_GROUP_ID", "availability-service"),
		CancelledTopic: config.String("KAFKA_CANCELLED_TOPIC", outbox.TopicBookingCancelled),
	}
	var err error
	if cfg.Port, err = config.Port("PORT", "8090"); err != nil {
		return cfg, err
	}
	if cfg.GRPCPort, err = config.Port("GRPC_PORT", "9090"); err != nil {
		return cfg, err
	}
	switch cfg.StorageDriver {
	case "postgres":
		if cfg.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
			return cfg, err
		}
	case "memory":
	default:
		return cfg, fmt.Errorf("STORAGE_DRIVER must be postgres or memory (got %q)", cfg.StorageDriver)
	}
	if cfg.AutoMigrate, err = config.Bool("DB_AUTO_MIGRATE", true); err != nil {
		return cfg, err
	}
	if cfg.StorageTimeout, err = config.Duration("STORAGE_TIMEOUT", 3*time.Second); err != nil {
		return cfg, err
	}
	if cfg.RedisDB, err = config.Int("REDIS_DB", 0); err != nil {
		return cfg, err
	}
	if cfg.CacheTTL, err = config.Duration("AVAILABILITY_CACHE_TTL", time.Minute); err != nil {
		return cfg, err
	}
	if cfg.IdempotencyTTL, err = config.Duration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.RateLimitPerMinute, err = config.Int("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return cfg, err
	}
	if cfg.RateLimitFailOpen, err = config.Bool("RATE_LIMIT_FAIL_OPEN", true); err != nil {
		return cfg, err
	}
	if cfg.RequestTimeout, err = config.Duration("REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return cfg, err
	}
	if cfg.BodyLimitBytes, err = config.Int("BODY_LIMIT_BYTES", 1<<20); err != nil {
		return cfg, err
	}
	if cfg.JWTSecret, err = config.RequiredString("JWT_SECRET"); err != nil {
		return cfg, err
	}
	if cfg.EnforceAvailableSlot, err = config.Bool("ENFORCE_AVAILABLE_SLOT", true); err != nil {
		return cfg, err
	}
	return cfg, nil
}
