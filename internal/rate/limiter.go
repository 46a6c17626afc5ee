package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableIPThrottle   bool
	MaxOTPRequests     int
	OTPRequestWindow   time.Duration
	MaxLoginFailures   int
	LoginFailureWindow time.Duration
}

// Limiter enforces per-identifier and per-IP fixed windows for OTP requests
// and failed password logins using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// AllowOTPRequest counts one OTP request for the identifier (and IP when
// enabled) and returns [ErrRateLimited] once the window budget is spent.
func (l *Limiter) AllowOTPRequest(ctx context.Context, identifier, ip string) error {
	count, err := l.incrementWithTTL(ctx, otpIdentifierKey(identifier), l.config.OTPRequestWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxOTPRequests) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, otpIPKey(ip), l.config.OTPRequestWindow)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxOTPRequests) {
			return ErrRateLimited
		}
	}

	return nil
}

// CheckLogin reports [ErrRateLimited] when the identifier has used up its
// failed-login budget. It does not count the attempt.
func (l *Limiter) CheckLogin(ctx context.Context, identifier string) error {
	count, err := l.redis.Get(ctx, loginKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxLoginFailures) {
		return ErrRateLimited
	}
	return nil
}

// RecordLoginFailure counts one failed password login.
func (l *Limiter) RecordLoginFailure(ctx context.Context, identifier string) error {
	_, err := l.incrementWithTTL(ctx, loginKey(identifier), l.config.LoginFailureWindow)
	return err
}

// ResetLogin clears the failed-login counter after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, identifier string) error {
	if err := l.redis.Del(ctx, loginKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: TTL is set on the first hit only.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
