package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SyncSphere7/smartwin-official/internal/logger"
)

const (
	tokenCacheKey     = "pesapal:token"
	ipnCacheKeyPrefix = "pesapal:ipn:"

	// tokenSkew keeps a cached token from being used right at its expiry.
	tokenSkew = 30 * time.Second
)

// Cache stores gateway credentials between requests. A zero ttl means the
// value does not expire.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type RedisCache struct {
	redis *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{redis: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.redis.Set(ctx, key, value, ttl).Err()
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryCache is a process-local Cache for the CLI and tests.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

// CachedClient reuses the bearer token until shortly before it expires and
// remembers IPN registrations per callback URL. Cache failures fall through
// to the gateway.
type CachedClient struct {
	Client
	issue func(ctx context.Context) (Token, error)
	cache Cache
	now   func() time.Time
}

func NewCachedClient(p *PesapalClient, cache Cache) *CachedClient {
	return &CachedClient{
		Client: p,
		issue:  p.RequestToken,
		cache:  cache,
		now:    time.Now,
	}
}

func (c *CachedClient) GetToken(ctx context.Context) (string, error) {
	if tok, ok, err := c.cache.Get(ctx, tokenCacheKey); err != nil {
		logger.Warn("gateway token cache read failed", "error", err)
	} else if ok {
		return tok, nil
	}

	tok, err := c.issue(ctx)
	if err != nil {
		return "", err
	}

	ttl := tok.ExpiresAt.Sub(c.now()) - tokenSkew
	if ttl > 0 {
		if err := c.cache.Set(ctx, tokenCacheKey, tok.Value, ttl); err != nil {
			logger.Warn("gateway token cache write failed", "error", err)
		}
	}
	return tok.Value, nil
}

func (c *CachedClient) RegisterCallback(ctx context.Context, token, callbackURL string) (string, error) {
	key := ipnCacheKeyPrefix + callbackURL

	if id, ok, err := c.cache.Get(ctx, key); err != nil {
		logger.Warn("gateway ipn cache read failed", "error", err)
	} else if ok {
		return id, nil
	}

	id, err := c.Client.RegisterCallback(ctx, token, callbackURL)
	if err != nil {
		return "", err
	}
	if err := c.cache.Set(ctx, key, id, 0); err != nil {
		logger.Warn("gateway ipn cache write failed", "error", err)
	}
	return id, nil
}
