package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the Redis key holding the cache document.
const DefaultRedisKey = "geocoder:cache"

// RedisConfig configures a RedisStorage.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	Key          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisStorage keeps the document under one Redis key, so several processes
// (or hosts) share the same cache.
type RedisStorage struct {
	client *redis.Client
	key    string
}

// NewRedisStorage creates a Redis-backed storage. The connection is not
// checked until Init.
func NewRedisStorage(cfg RedisConfig) *RedisStorage {
	key := cfg.Key
	if key == "" {
		key = DefaultRedisKey
	}
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return &RedisStorage{
		client: redis.NewClient(opts),
		key:    key,
	}
}

// Init checks that Redis is reachable.
func (s *RedisStorage) Init(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis at %s: %w", s.client.Options().Addr, err)
	}
	return nil
}

// Load reads the cache document.
func (s *RedisStorage) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("failed to read cache key %s: %w", s.key, err)
	}
	return data, nil
}

// Save writes the cache document without a Redis TTL; expiry is per entry.
func (s *RedisStorage) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", s.key, err)
	}
	return nil
}

// Clear deletes the cache key.
func (s *RedisStorage) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key %s: %w", s.key, err)
	}
	return nil
}

// Location returns "redis://<addr>/<db>#<key>".
func (s *RedisStorage) Location() string {
	opts := s.client.Options()
	return fmt.Sprintf("redis://%s/%d#%s", opts.Addr, opts.DB, s.key)
}

// Close releases the connection pool.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
