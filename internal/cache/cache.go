// Package cache provides a small key-value cache with an in-memory and a
// redis backend. Values are encoded with msgpack so both backends behave the
// same.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/TwiN/gocache/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

// Key prefixes
const (
	KeyCertificateDetails = "certificate_details"
)

// Key joins the passed parts to a cache key
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Cache is a key-value cache with per-entry lifetimes
type Cache interface {
	// Get reads the value for key into target and reports if it was set
	Get(key string, target any) (bool, error)
	// Set stores value for the passed duration
	Set(key string, value any, lifetime time.Duration) error
	// Delete removes a key
	Delete(key string) error
	// Clear removes all keys with the passed prefix
	Clear(prefix string) error
}

// Options configures a cache created with New
type Options struct {
	RedisAddr string
	Username  string
	Password  string
	RedisDB   int
	// MaxSize limits the number of entries in the memory cache
	MaxSize int
}

// New returns a redis cache if a redis address is configured, otherwise a
// memory cache
func New(opts Options) (Cache, error) {
	if opts.RedisAddr == "" {
		return NewMemoryCache(opts.MaxSize), nil
	}
	return NewRedisCache(
		&redis.Options{
			Addr:     opts.RedisAddr,
			Username: opts.Username,
			Password: opts.Password,
			DB:       opts.RedisDB,
		},
	)
}

// MemoryCache is an in-process Cache
type MemoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache creates a MemoryCache holding at most maxSize entries; a
// maxSize <= 0 selects the gocache default
func NewMemoryCache(maxSize int) *MemoryCache {
	c := gocache.NewCache().WithEvictionPolicy(gocache.LeastRecentlyUsed)
	if maxSize > 0 {
		c = c.WithMaxSize(maxSize)
	}
	if err := c.StartJanitor(); err != nil {
		log.WithError(err).Warn("cache: could not start janitor")
	}
	return &MemoryCache{c: c}
}

// Get implements the Cache interface
func (m *MemoryCache) Get(key string, target any) (bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return false, nil
	}
	data, ok := v.([]byte)
	if !ok {
		return false, errors.Errorf("cache: unexpected value type for key '%s'", key)
	}
	return true, msgpack.Unmarshal(data, target)
}

// Set implements the Cache interface
func (m *MemoryCache) Set(key string, value any, lifetime time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return errors.WithStack(err)
	}
	m.c.SetWithTTL(key, data, lifetime)
	return nil
}

// Delete implements the Cache interface
func (m *MemoryCache) Delete(key string) error {
	m.c.Delete(key)
	return nil
}

// Clear implements the Cache interface
func (m *MemoryCache) Clear(prefix string) error {
	m.c.DeleteKeysByPattern(prefix + "*")
	return nil
}

// RedisCache is a Cache backed by redis
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisCache connects to redis and returns a RedisCache
func NewRedisCache(opts *redis.Options) (*RedisCache, error) {
	client := redis.NewClient(opts)
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "could not connect to redis")
	}
	return &RedisCache{
		client: client,
		ctx:    ctx,
	}, nil
}

// Get implements the Cache interface
func (r *RedisCache) Get(key string, target any) (bool, error) {
	data, err := r.client.Get(r.ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, errors.WithStack(err)
	}
	return true, msgpack.Unmarshal(data, target)
}

// Set implements the Cache interface
func (r *RedisCache) Set(key string, value any, lifetime time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(r.client.Set(r.ctx, key, data, lifetime).Err())
}

// Delete implements the Cache interface
func (r *RedisCache) Delete(key string) error {
	return errors.WithStack(r.client.Del(r.ctx, key).Err())
}

// Clear implements the Cache interface
func (r *RedisCache) Clear(prefix string) error {
	iter := r.client.Scan(r.ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(r.ctx) {
		if err := r.client.Del(r.ctx, iter.Val()).Err(); err != nil {
			return errors.WithStack(err)
		}
	}
	return errors.WithStack(iter.Err())
}
