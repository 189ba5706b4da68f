package pkg

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/portfolio-quiz/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to cfg.RedisURL and verifies the connection.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.HTTPTimeout > 0 {
		opt.DialTimeout = cfg.HTTPTimeout
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}
