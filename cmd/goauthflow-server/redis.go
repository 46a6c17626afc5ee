package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAuthFlow/internal/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisConnectTimeout = 30 * time.Second

// connectRedis dials REDIS_ADDR with exponential backoff, or starts an
// in-process miniredis when no address is configured outside production.
func connectRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	if cfg.RedisAddr == "" {
		if cfg.IsProduction() {
			return nil, nil, errors.New("REDIS_ADDR is required in production")
		}
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{mr.Addr()},
		})
		logger.Warn("REDIS_ADDR not set, using in-process miniredis", zap.String("addr", mr.Addr()))
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.RedisAddr},
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = redisConnectTimeout
	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("redis not ready",
			zap.String("addr", cfg.RedisAddr),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(b, ctx), notify); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}

	logger.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	return client, func() { _ = client.Close() }, nil
}
