package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter throttles repeated failed logins with a fixed window
// counter per email+IP pair. A nil redis client disables the limiter
// entirely, so callers never need to branch on configuration.
type LoginLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
	prefix string
}

func NewLoginLimiter(client *redis.Client, max int, window time.Duration) *LoginLimiter {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &LoginLimiter{
		client: client,
		max:    max,
		window: window,
		prefix: "auth:attempts",
	}
}

func (l *LoginLimiter) key(email, ip string) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, email, ip)
}

// Allow reports whether another login attempt is permitted. Redis
// errors fail open: an unreachable cache must not lock everyone out.
func (l *LoginLimiter) Allow(ctx context.Context, email, ip string) bool {
	if l.client == nil {
		return true
	}
	count, err := l.client.Get(ctx, l.key(email, ip)).Int()
	if err != nil {
		return true
	}
	return count < l.max
}

// RecordFailure counts a failed attempt. The window starts at the
// first failure and is not extended by later ones.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email, ip string) error {
	if l.client == nil {
		return nil
	}
	key := l.key(email, ip)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("incr attempts: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("expire attempts: %w", err)
		}
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email, ip string) error {
	if l.client == nil {
		return nil
	}
	return l.client.Del(ctx, l.key(email, ip)).Err()
}
