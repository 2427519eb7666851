package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-movie-matcher/internal/domain"
	"github.com/tbourn/go-movie-matcher/internal/taste"
)

// Cache is the byte store behind CachedMetadata.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// RedisCache adapts a go-redis client to Cache.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache wraps rdb. A nil client yields a cache that always misses.
func NewRedisCache(rdb *redis.Client) *RedisCache { return &RedisCache{rdb: rdb} }

// NewRedisClient connects and pings a Redis server.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, nil
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Set(ctx, key, val, ttl).Err()
}

type metadataLookup interface {
	Lookup(ctx context.Context, title string, year *int) (*domain.MovieMetadata, error)
}

// CachedMetadata caches lookups, including misses, for ttl. Cache errors
// are logged and bypassed.
type CachedMetadata struct {
	next  metadataLookup
	cache Cache
	ttl   time.Duration
}

// NewCachedMetadata wraps next with cache.
func NewCachedMetadata(next metadataLookup, cache Cache, ttl time.Duration) *CachedMetadata {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedMetadata{next: next, cache: cache, ttl: ttl}
}

// CacheKey is the key a title and year are stored under.
func CacheKey(title string, year *int) string {
	k := taste.KeyOf(title, year)
	return fmt.Sprintf("movie-matcher:meta:%s:%d", k.Title, k.Year)
}

func (c *CachedMetadata) Lookup(ctx context.Context, title string, year *int) (*domain.MovieMetadata, error) {
	key := CacheKey(title, year)
	if b, ok, err := c.cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("metadata cache get failed")
	} else if ok {
		var meta *domain.MovieMetadata
		if err := json.Unmarshal(b, &meta); err == nil {
			return meta, nil
		}
		log.Warn().Str("key", key).Msg("metadata cache entry corrupt")
	}

	meta, err := c.next.Lookup(ctx, title, year)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(meta)
	if err == nil {
		if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("metadata cache set failed")
		}
	}
	return meta, nil
}
