// Package cache keeps listing pages in Redis. Entries are keyed by a
// generation counter that the loader bumps, so a load invalidates every
// cached page at once without scanning keys.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/metrics"
	"github.com/EmnaWalha99/Job-Portal/internal/storage"
)

// Client is the subset of redis.Cmdable the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// Defaults.
const (
	DefaultPrefix = "jobportal"
	DefaultTTL    = 5 * time.Minute
)

// Dial parses redisURL and verifies connectivity.
func Dial(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Cache stores listing pages under a generation-scoped key.
type Cache struct {
	client Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// New wraps client. Zero ttl takes DefaultTTL.
func New(client Client, prefix string, ttl time.Duration, logger *zap.Logger) *Cache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl, logger: logger.Named("cache")}
}

func (c *Cache) genKey() string { return c.prefix + ":jobs:generation" }

func (c *Cache) generation(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, c.genKey()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	gen, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse generation %q: %w", v, err)
	}
	return gen, nil
}

// PageKey returns the cache key for q at generation gen.
func (c *Cache) PageKey(gen int64, q storage.Query) string {
	sum := sha256.Sum256([]byte(q.Key()))
	return fmt.Sprintf("%s:jobs:%d:%s", c.prefix, gen, hex.EncodeToString(sum[:12]))
}

// GetPage returns a cached page. Redis errors count as misses.
func (c *Cache) GetPage(ctx context.Context, q storage.Query) (storage.Page, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.lookupError("read generation", err)
		return storage.Page{}, false
	}
	raw, err := c.client.Get(ctx, c.PageKey(gen, q)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ObserveCacheLookup("miss")
		return storage.Page{}, false
	}
	if err != nil {
		c.lookupError("read page", err)
		return storage.Page{}, false
	}
	var page storage.Page
	if err := json.Unmarshal(raw, &page); err != nil {
		c.lookupError("decode page", err)
		return storage.Page{}, false
	}
	if page.Jobs == nil {
		page.Jobs = []jobs.Record{}
	}
	metrics.ObserveCacheLookup("hit")
	return page, true
}

func (c *Cache) lookupError(msg string, err error) {
	metrics.ObserveCacheLookup("error")
	c.logger.Warn(msg, zap.Error(err))
}

// SetPage caches page for q at the current generation.
func (c *Cache) SetPage(ctx context.Context, q storage.Query, page storage.Page) error {
	gen, err := c.generation(ctx)
	if err != nil {
		return fmt.Errorf("read generation: %w", err)
	}
	raw, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	if err := c.client.Set(ctx, c.PageKey(gen, q), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write page: %w", err)
	}
	return nil
}

// Invalidate bumps the generation; stale pages expire on their TTL.
func (c *Cache) Invalidate(ctx context.Context) error {
	gen, err := c.client.Incr(ctx, c.genKey()).Result()
	if err != nil {
		return fmt.Errorf("bump generation: %w", err)
	}
	c.logger.Debug("listing cache invalidated", zap.Int64("generation", gen))
	return nil
}

// Store serves Query from the cache and falls through to the wrapped store.
// Writes go straight through and invalidate the cache.
type Store struct {
	storage.JobStore
	cache *Cache
}

// NewStore wraps next with c.
func NewStore(next storage.JobStore, c *Cache) *Store {
	return &Store{JobStore: next, cache: c}
}

// Query implements storage.JobStore.
func (s *Store) Query(ctx context.Context, q storage.Query) (storage.Page, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return storage.Page{}, err
	}
	if page, ok := s.cache.GetPage(ctx, q); ok {
		return page, nil
	}
	page, err := s.JobStore.Query(ctx, q)
	if err != nil {
		return storage.Page{}, err
	}
	if err := s.cache.SetPage(ctx, q, page); err != nil {
		s.cache.logger.Warn("cache page", zap.Error(err))
	}
	return page, nil
}

// InsertNew implements storage.JobStore.
func (s *Store) InsertNew(ctx context.Context, records []jobs.Record) (int, error) {
	n, err := s.JobStore.InsertNew(ctx, records)
	if err != nil {
		return n, err
	}
	if n > 0 {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.cache.logger.Warn("invalidate cache", zap.Error(err))
		}
	}
	return n, nil
}
