package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	userstack "github.com/jdziat/userstack-go"
)

// DefaultPrefix namespaces every key written by a Store.
const DefaultPrefix = "userstack:"

// Store implements userstack.Storage on top of a Redis client.
type Store struct {
	db     redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix. An empty prefix stores keys verbatim.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires stored values after ttl. Zero means no expiration.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New wraps a Redis client.
func New(db redis.UniversalClient, opts ...Option) *Store {
	s := &Store{db: db, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig wraps db with the prefix and TTL from cfg.
func NewFromConfig(db redis.UniversalClient, cfg Config) *Store {
	return New(db, WithPrefix(cfg.Prefix), WithTTL(cfg.TTL))
}

// Get implements userstack.Storage. A missing key (redis.Nil) is reported
// as ok == false.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.db.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set implements userstack.Storage.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.db.Set(ctx, s.prefix+key, value, s.ttl).Err()
}

// Delete implements userstack.Storage. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.db.Del(ctx, s.prefix+key).Err()
}

// Conn returns the underlying Redis client.
func (s *Store) Conn() redis.UniversalClient {
	return s.db
}

// Close closes the underlying Redis client.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ userstack.Storage = (*Store)(nil)
