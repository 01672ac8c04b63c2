package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "token:blacklist:"

// Blacklist records revoked access token IDs until their natural expiry.
// Entries carry a TTL equal to the token's remaining lifetime, so the set
// never grows beyond the live token population.
type Blacklist struct {
	redis redis.UniversalClient
}

func NewBlacklist(client redis.UniversalClient) *Blacklist {
	return &Blacklist{
		redis: client,
	}
}

// Revoke marks the token ID as revoked for the remaining lifetime. A
// non-positive remaining duration means the token has already expired and
// nothing needs to be stored.
func (b *Blacklist) Revoke(ctx context.Context, tokenID string, remaining time.Duration) error {
	if remaining <= 0 {
		return nil
	}
	if err := b.redis.Set(ctx, blacklistPrefix+tokenID, "1", remaining).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether the token ID is on the blacklist.
func (b *Blacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	exists, err := b.redis.Exists(ctx, blacklistPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return exists > 0, nil
}
