package limiters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cooldownPrefix = "sms:send:"
	dailyPrefix    = "sms:daily:"
)

var (
	// ErrSendCooldown is returned while the per-number resend cooldown is active.
	ErrSendCooldown = errors.New("code was sent recently")

	// ErrDailyCapReached is returned once a number has exhausted its daily quota.
	ErrDailyCapReached = errors.New("daily code quota exhausted")

	// ErrQuotaUnavailable wraps Redis transport errors.
	ErrQuotaUnavailable = errors.New("sms quota storage unavailable")
)

// Config controls per-number SMS dispatch quotas.
type Config struct {
	SendCooldown time.Duration
	DailyWindow  time.Duration
	DailyCap     int
}

// SMSQuota enforces a resend cooldown and a rolling daily cap per phone
// number. Quota state is only advanced after a successful dispatch.
type SMSQuota struct {
	redis  redis.UniversalClient
	config Config
}

func NewSMSQuota(client redis.UniversalClient, config Config) *SMSQuota {
	return &SMSQuota{
		redis:  client,
		config: config,
	}
}

// CheckSend reports whether a code may be dispatched to the number right now.
func (q *SMSQuota) CheckSend(ctx context.Context, phone string) error {
	exists, err := q.redis.Exists(ctx, cooldownPrefix+phone).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQuotaUnavailable, err)
	}
	if exists > 0 {
		return ErrSendCooldown
	}

	val, err := q.redis.Get(ctx, dailyPrefix+phone).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQuotaUnavailable, err)
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		return nil
	}
	if count >= q.config.DailyCap {
		return ErrDailyCapReached
	}
	return nil
}

// MarkSent records a successful dispatch: it arms the cooldown and advances
// the daily counter. The daily window is anchored at the first send.
func (q *SMSQuota) MarkSent(ctx context.Context, phone string) error {
	if err := q.redis.Set(ctx, cooldownPrefix+phone, "1", q.config.SendCooldown).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrQuotaUnavailable, err)
	}

	key := dailyPrefix + phone
	count, err := q.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQuotaUnavailable, err)
	}
	if count == 1 {
		if err := q.redis.Expire(ctx, key, q.config.DailyWindow).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrQuotaUnavailable, err)
		}
	}
	return nil
}
