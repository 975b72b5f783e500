package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/commercehq/staff-access-service/internal/domain"
)

// SessionCache is a short-lived read-through cache of resolved session
// contexts. The database stays the source of truth: entries carry a small
// TTL and every revocation path purges the affected tokens, so a stale hit
// is bounded by the cache TTL and never survives an explicit revoke.
type SessionCache interface {
	Get(ctx context.Context, token string) (*domain.SessionContext, bool)
	Set(ctx context.Context, token string, sessCtx *domain.SessionContext)
	Purge(ctx context.Context, tokens ...string)
}

const sessionCacheKeyPrefix = "staff:sessctx:"

type redisSessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionCache wraps a redis client as a session cache. Cache
// failures are soft: reads fall through to the database, writes are dropped.
func NewRedisSessionCache(client *redis.Client, ttl time.Duration) SessionCache {
	return &redisSessionCache{client: client, ttl: ttl}
}

func (c *redisSessionCache) Get(ctx context.Context, token string) (*domain.SessionContext, bool) {
	raw, err := c.client.Get(ctx, sessionCacheKeyPrefix+token).Bytes()
	if err != nil {
		return nil, false
	}
	var sessCtx domain.SessionContext
	if err := json.Unmarshal(raw, &sessCtx); err != nil {
		return nil, false
	}
	return &sessCtx, true
}

func (c *redisSessionCache) Set(ctx context.Context, token string, sessCtx *domain.SessionContext) {
	raw, err := json.Marshal(sessCtx)
	if err != nil {
		return
	}
	ttl := c.ttl
	if remaining := time.Until(sessCtx.ExpiresAt); remaining < ttl {
		if remaining <= 0 {
			return
		}
		ttl = remaining
	}
	_ = c.client.Set(ctx, sessionCacheKeyPrefix+token, raw, ttl).Err()
}

func (c *redisSessionCache) Purge(ctx context.Context, tokens ...string) {
	if len(tokens) == 0 {
		return
	}
	keys := make([]string, 0, len(tokens))
	for _, token := range tokens {
		keys = append(keys, sessionCacheKeyPrefix+token)
	}
	_ = c.client.Del(ctx, keys...).Err()
}

// NoopSessionCache satisfies SessionCache when Redis is not configured.
type NoopSessionCache struct{}

func (NoopSessionCache) Get(context.Context, string) (*domain.SessionContext, bool) {
	return nil, false
}
func (NoopSessionCache) Set(context.Context, string, *domain.SessionContext) {}
func (NoopSessionCache) Purge(context.Context, ...string)                    {}

var _ SessionCache = (*redisSessionCache)(nil)
var _ SessionCache = NoopSessionCache{}
