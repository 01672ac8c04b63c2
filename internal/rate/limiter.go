package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "login:fail:"

var (
	// ErrTooManyFailures is returned by Check once the failure count for an
	// identity/origin pair has reached the configured maximum.
	ErrTooManyFailures = errors.New("too many login failures")

	// ErrRedisUnavailable wraps Redis transport errors so callers can treat
	// throttle infrastructure failures distinctly from policy rejections.
	ErrRedisUnavailable = errors.New("rate limiter storage unavailable")
)

// Config controls the login failure throttle.
type Config struct {
	MaxFailures int
	Window      time.Duration
}

// Limiter counts consecutive login failures per identity and origin in a
// fixed window. The window is anchored at the first failure.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

func NewLimiter(client redis.UniversalClient, config Config) *Limiter {
	return &Limiter{
		redis:  client,
		config: config,
	}
}

func (l *Limiter) key(identity, origin string) string {
	return keyPrefix + identity + ":" + origin
}

// Check returns ErrTooManyFailures when the identity/origin pair has already
// reached the failure cap. It does not consume an attempt.
func (l *Limiter) Check(ctx context.Context, identity, origin string) error {
	val, err := l.redis.Get(ctx, l.key(identity, origin)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		return nil
	}
	if count >= l.config.MaxFailures {
		return ErrTooManyFailures
	}
	return nil
}

// RecordFailure increments the failure counter. The expiry is set only when
// the counter is created, so the window is not extended by later failures.
func (l *Limiter) RecordFailure(ctx context.Context, identity, origin string) error {
	key := l.key(identity, origin)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return nil
}

// Reset clears the failure counter after a successful login.
func (l *Limiter) Reset(ctx context.Context, identity, origin string) error {
	if err := l.redis.Del(ctx, l.key(identity, origin)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Failures returns the current failure count, zero when no counter exists.
func (l *Limiter) Failures(ctx context.Context, identity, origin string) (int, error) {
	val, err := l.redis.Get(ctx, l.key(identity, origin)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, nil
	}
	return count, nil
}
