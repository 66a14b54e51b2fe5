package data

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/invest_advice_bot/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient returns a client that answered PING. Quotes and bot sessions share it.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", rdb.Options().Addr, err)
	}
	slog.Info("redis connected", slog.String("addr", rdb.Options().Addr), slog.Int("db", cfg.Redis.DB))

	return rdb, nil
}
