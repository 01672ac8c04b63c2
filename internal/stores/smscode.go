package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const codePrefix = "sms:code:"

// ErrStoreUnavailable wraps Redis transport errors from the short-lived
// credential stores.
var ErrStoreUnavailable = errors.New("code store unavailable")

// CodeStore keeps the latest login code per phone number. Saving a new code
// replaces the previous one; only a successful match consumes the key, so a
// wrong guess does not invalidate the code.
type CodeStore struct {
	redis redis.UniversalClient
	ttl   time.Duration
}

func NewCodeStore(client redis.UniversalClient, ttl time.Duration) *CodeStore {
	return &CodeStore{
		redis: client,
		ttl:   ttl,
	}
}

// Save stores the code for the phone number, replacing any previous one.
func (s *CodeStore) Save(ctx context.Context, phone, code string) error {
	if err := s.redis.Set(ctx, codePrefix+phone, code, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Consume compares the submitted code against the stored one. On a match the
// key is deleted and true is returned. A missing or mismatched code returns
// false with the stored key left intact.
func (s *CodeStore) Consume(ctx context.Context, phone, code string) (bool, error) {
	key := codePrefix + phone

	stored, err := s.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if stored != code {
		return false, nil
	}

	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return true, nil
}
