package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/mridang-api/internal/config"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient connects to Redis and verifies the connection with PING.
func NewClient(ctx context.Context, cfg *config.Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}
