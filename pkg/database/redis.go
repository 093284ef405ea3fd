package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/peachstate-cre/propquery/pkg/config"
)

// NewRedisClient creates a Redis client for the learning store's
// similarity cache. Returns nil without error when Redis is not
// configured (empty host); the store runs uncached in that case.
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
