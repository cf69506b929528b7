package internal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter gates every upstream request behind two fixed windows at once
// (Riot keys carry a burst cap and a sustained cap; satisfying only one is
// not enough). Acquire blocks until both windows have room, then debits
// both. It never fails on its own; it only delays, or returns early when
// the context is cancelled.
type RateLimiter struct {
	client  redis.Cmdable
	prefix  string
	windows []RateWindow
	logger  *Logger

	// mu serializes acquisitions so the two-window debit is atomic from the
	// caller's perspective and waiters drain in roughly FIFO order.
	mu sync.Mutex
}

type RateWindow struct {
	Tokens int
	Window time.Duration
}

func NewRateLimiter(cfg *Config, logger *Logger) *RateLimiter {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return &RateLimiter{
		client: client,
		prefix: cfg.RateLimitRedisPrefix,
		windows: []RateWindow{
			{Tokens: cfg.RateLimitShortTokens, Window: cfg.RateLimitShortWindow},
			{Tokens: cfg.RateLimitLongTokens, Window: cfg.RateLimitLongWindow},
		},
		logger: logger,
	}
}

// Acquire blocks until one token has been debited from every window.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for {
		wait, err := rl.tryDebit(ctx)
		if err != nil {
			// Redis being down must not stall ingestion forever; log and
			// let the request through. The upstream's own 429s still apply.
			rl.logger.Warn("rate_limit_check_failed").
				Component("rate_limiter").
				Operation("try_debit").
				Err(err).
				Log()
			return nil
		}
		if wait == 0 {
			return nil
		}

		rl.logger.Debug("rate_limit_wait").
			Component("rate_limiter").
			Operation("acquire").
			Duration(wait).
			Log()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// tryDebit increments the counter of every window. If any window is over
// its cap the increments are rolled back and the remaining TTL of the
// exhausted window is returned as the wait hint.
func (rl *RateLimiter) tryDebit(ctx context.Context) (time.Duration, error) {
	debited := make([]string, 0, len(rl.windows))

	for _, w := range rl.windows {
		key := rl.windowKey(w)

		count, err := rl.client.Incr(ctx, key).Result()
		if err != nil {
			rl.rollback(ctx, debited)
			return 0, err
		}
		if count == 1 {
			if err := rl.client.PExpire(ctx, key, w.Window).Err(); err != nil {
				rl.rollback(ctx, append(debited, key))
				return 0, err
			}
		}
		debited = append(debited, key)

		if int(count) > w.Tokens {
			rl.rollback(ctx, debited)
			return rl.waitFor(ctx, key, w), nil
		}
	}

	return 0, nil
}

func (rl *RateLimiter) rollback(ctx context.Context, keys []string) {
	for _, key := range keys {
		rl.client.Decr(ctx, key)
	}
}

func (rl *RateLimiter) waitFor(ctx context.Context, key string, w RateWindow) time.Duration {
	ttl, err := rl.client.PTTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		return 10 * time.Millisecond
	}
	if ttl > w.Window {
		return w.Window
	}
	return ttl
}

func (rl *RateLimiter) windowKey(w RateWindow) string {
	return fmt.Sprintf("%s:%d", rl.prefix, int(w.Window.Milliseconds()))
}
