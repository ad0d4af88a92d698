package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alumni-connect/apiserver/config"
	"github.com/go-redis/redis/v8"
)

const (
	defaultAttempts = 10
	defaultWindow   = 15 * time.Minute
	keyPrefix       = "alumni:login"
)

// Limiter counts attempts per key in Redis so the budget is shared across API
// instances. Each attempt pushes the window expiry forward.
// A nil *Limiter allows everything.
type Limiter struct {
	client   *redis.Client
	attempts int
	window   time.Duration
	prefix   string
}

// New returns nil when no Redis address is configured.
func New(cfg config.RedisConfig) *Limiter {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewWithClient(client, cfg.LoginAttempts, cfg.LoginWindow)
}

func NewWithClient(client *redis.Client, attempts int, window time.Duration) *Limiter {
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &Limiter{
		client:   client,
		attempts: attempts,
		window:   window,
		prefix:   keyPrefix,
	}
}

// Allow counts an attempt for key and reports whether it is within the window
// budget. On Redis errors it allows the attempt and returns the error.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	redisKey := l.key(key)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}
	return incr.Val() <= int64(l.attempts), nil
}

// Reset clears the counter for key, e.g. after a successful login.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if l == nil {
		return nil
	}
	return l.client.Del(ctx, l.key(key)).Err()
}

// RetryAfter is the time until the window for key closes.
func (l *Limiter) RetryAfter(ctx context.Context, key string) time.Duration {
	if l == nil {
		return 0
	}
	ttl, err := l.client.TTL(ctx, l.key(key)).Result()
	if err != nil || ttl < 0 {
		return l.window
	}
	return ttl
}

func (l *Limiter) Close() error {
	if l == nil {
		return nil
	}
	return l.client.Close()
}

func (l *Limiter) key(key string) string {
	return l.prefix + ":" + strings.ToLower(key)
}
