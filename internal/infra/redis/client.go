package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"productstudio/internal/domain"
)

// KeyPrefix namespaces every key written by this service.
const KeyPrefix = "studio:"

// Store is a domain.KeyValueStore backed by Redis strings.
type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// Config holds Redis connection configuration.
type Config struct {
	URL string
	// TTL bounds how long values live in Redis. Zero keeps them forever.
	TTL time.Duration
}

// NewStore connects to Redis and verifies the connection. The returned close
// function releases the client.
func NewStore(ctx context.Context, cfg Config) (*Store, func() error, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	return NewStoreWithClient(rdb, cfg.TTL), rdb.Close, nil
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(rdb redis.Cmdable, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func key(k string) string { return KeyPrefix + k }

func (s *Store) Get(ctx context.Context, k string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get %s: %v", domain.ErrStorage, k, err)
	}
	return data, nil
}

func (s *Store) Put(ctx context.Context, k string, value []byte) error {
	if err := s.rdb.Set(ctx, key(k), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %v", domain.ErrStorage, k, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, k string) error {
	if err := s.rdb.Del(ctx, key(k)).Err(); err != nil {
		return fmt.Errorf("%w: redis del %s: %v", domain.ErrStorage, k, err)
	}
	return nil
}

var _ domain.KeyValueStore = (*Store)(nil)
