package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"ploxora/internal/config"
)

// InitRedis opens the Redis connection used by the redis store, session
// registry and node lock. It returns nil when no component needs Redis.
func InitRedis(cfg *config.Config) (*redis.Client, error) {
	if !NeedsRedis(cfg) {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logrus.WithField("addr", cfg.Redis.Addr).Info("Redis connected successfully")
	return client, nil
}

// NeedsRedis reports whether the configuration selects a Redis-backed component
func NeedsRedis(cfg *config.Config) bool {
	return cfg.Store.Driver == config.DriverRedis || cfg.Store.LockDriver == config.DriverRedis
}

// Close closes the Redis connection
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
