package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/pantry-tracker/internal/config"
)

// Open builds the store backend selected by cfg.StoreBackend. Redis
// connectivity is verified before returning.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendMemory, "":
		logger.Info("using in-memory store")
		return NewMemoryStore(), nil
	case config.StoreBackendRedis:
		logger.Info("using redis store",
			zap.String("addr", cfg.RedisAddr),
			zap.Int("db", cfg.RedisDB),
			zap.String("collection", cfg.StoreCollection),
		)
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		s := NewRedisStore(client, cfg.StoreCollection, logger)

		pingCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()
		if err := s.Ping(pingCtx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return s, nil
	case config.StoreBackendBolt:
		logger.Info("using bolt store",
			zap.String("path", cfg.BoltPath),
			zap.String("collection", cfg.StoreCollection),
		)
		return OpenBoltStore(cfg.BoltPath, cfg.StoreCollection, logger)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}
