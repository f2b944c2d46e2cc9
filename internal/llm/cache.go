package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docnav/internal/metrics"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "docnav:llm:"

// sharedCallTimeout bounds an upstream call that outlives the caller who
// started it.
const sharedCallTimeout = 2 * time.Minute

// Store is a string key-value store with expiry.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisOptions locate the cache server.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore is a Store backed by Redis.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects and verifies the connection with a PING.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// CachedClient serves repeated identical requests from a Store. Concurrent
// misses for the same request share one upstream call. Store failures are
// logged and fall through to the upstream client.
type CachedClient struct {
	next      Client
	store     Store
	ttl       time.Duration
	namespace string
	group     singleflight.Group
	cacheable func(Request, string) bool
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// NewCachedClient wraps next. namespace (usually the model name) is mixed
// into every key so replies from different models never collide.
func NewCachedClient(next Client, store Store, ttl time.Duration, namespace string, m *metrics.Metrics, log *slog.Logger) *CachedClient {
	if log == nil {
		log = slog.Default()
	}
	return &CachedClient{
		next:      next,
		store:     store,
		ttl:       ttl,
		namespace: namespace,
		metrics:   m,
		log:       log.With("component", "llm-cache"),
	}
}

// OnlyCache restricts the store to replies fn accepts. Rejected replies are
// still returned to the caller.
func (c *CachedClient) OnlyCache(fn func(req Request, reply string) bool) *CachedClient {
	c.cacheable = fn
	return c
}

// Complete serves req from the store or the upstream client. Concurrent
// misses share one upstream call, which runs detached from any single
// caller's context; each caller stops waiting when its own ctx ends.
func (c *CachedClient) Complete(ctx context.Context, req Request) (string, error) {
	key := c.key(req)
	if v, ok := c.lookup(ctx, key); ok {
		c.metrics.CacheResult(true)
		return v, nil
	}
	c.metrics.CacheResult(false)

	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedCallTimeout)
		defer cancel()

		if v, ok := c.lookup(callCtx, key); ok {
			return v, nil
		}
		out, err := c.next.Complete(callCtx, req)
		if err != nil {
			return "", err
		}
		if out == "" || (c.cacheable != nil && !c.cacheable(req, out)) {
			return out, nil
		}
		if err := c.store.Set(callCtx, key, out, c.ttl); err != nil {
			c.log.Warn("cache set failed", "key", key, "error", err)
		}
		return out, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}

func (c *CachedClient) lookup(ctx context.Context, key string) (string, bool) {
	v, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache get failed", "key", key, "error", err)
		return "", false
	}
	return v, ok
}

func (c *CachedClient) key(req Request) string {
	raw, _ := json.Marshal(struct {
		NS string
		Request
	}{c.namespace, req})
	sum := sha256.Sum256(raw)
	return cacheKeyPrefix + hex.EncodeToString(sum[:16])
}
