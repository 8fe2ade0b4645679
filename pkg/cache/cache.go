// Package cache provides a small byte cache with Redis and in-process backends.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	pkgredis "github.com/prohmpiriya/storefront/pkg/redis"
	"golang.org/x/sync/singleflight"
)

// Cache stores opaque values by key
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// RedisCache is a Cache shared by every instance through Redis
type RedisCache struct {
	client *pkgredis.Client
}

// NewRedisCache creates a Redis-backed cache
func NewRedisCache(client *pkgredis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, pkgredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := c.client.DeleteByPrefix(ctx, prefix)
	return err
}

// LocalCache is a per-process Cache built on go-cache
type LocalCache struct {
	store *gocache.Cache
}

// NewLocalCache creates an in-process cache
func NewLocalCache(defaultTTL, cleanupInterval time.Duration) *LocalCache {
	return &LocalCache{store: gocache.New(defaultTTL, cleanupInterval)}
}

func (c *LocalCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	return v.([]byte), true, nil
}

func (c *LocalCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.store.Set(key, value, ttl)
	return nil
}

func (c *LocalCache) DeletePrefix(_ context.Context, prefix string) error {
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
		}
	}
	return nil
}

// Loader reads JSON values through a Cache, collapsing concurrent misses per key
type Loader struct {
	cache Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewLoader creates a Loader with the given entry TTL
func NewLoader(c Cache, ttl time.Duration) *Loader {
	return &Loader{cache: c, ttl: ttl}
}

// Load fills dst from cache, or from load on a miss. Cache errors fall through to load.
func (l *Loader) Load(ctx context.Context, key string, dst interface{}, load func(ctx context.Context) (interface{}, error)) error {
	if raw, ok, err := l.cache.Get(ctx, key); err == nil && ok {
		if err := json.Unmarshal(raw, dst); err == nil {
			return nil
		}
	}

	raw, err, _ := l.group.Do(key, func() (interface{}, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode cache value: %w", err)
		}
		_ = l.cache.Set(context.WithoutCancel(ctx), key, data, l.ttl)
		return data, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dst)
}

// Invalidate drops every entry under prefix
func (l *Loader) Invalidate(ctx context.Context, prefix string) error {
	return l.cache.DeletePrefix(ctx, prefix)
}
