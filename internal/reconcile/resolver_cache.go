package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"callsync-platform/internal/callhistory"

	"github.com/redis/go-redis/v9"
)

// CachedResolver fronts a ConversationResolver with a redis lookaside
// cache. The peer-to-conversation mapping is immutable once created, so a
// generous TTL is safe; the TTL only bounds memory.
type CachedResolver struct {
	inner ConversationResolver
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCachedResolver(inner ConversationResolver, rdb *redis.Client, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &CachedResolver{inner: inner, rdb: rdb, ttl: ttl}
}

func (r *CachedResolver) ConversationFor(ctx context.Context, peerID string, mode callhistory.CallMode) (string, error) {
	key := fmt.Sprintf("callsync:conv:%s:%s", mode, peerID)

	if r.rdb != nil {
		id, err := r.rdb.Get(ctx, key).Result()
		if err == nil && id != "" {
			return id, nil
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			// Cache trouble is not a reason to fail reconciliation.
			return r.inner.ConversationFor(ctx, peerID, mode)
		}
	}

	id, err := r.inner.ConversationFor(ctx, peerID, mode)
	if err != nil {
		return "", err
	}
	if r.rdb != nil {
		_ = r.rdb.Set(ctx, key, id, r.ttl).Err()
	}
	return id, nil
}
