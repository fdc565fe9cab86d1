// Package rediscache is a read-through Redis cache in front of a
// catalog.Store. Fetch results and counts are stored as JSON under a hash
// of the query signature and expire after a TTL.
package rediscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/nrfta/catalog-go"
)

const (
	// DefaultTTL is how long cached results live.
	DefaultTTL = 5 * time.Minute

	// DefaultPrefix namespaces the cache keys.
	DefaultPrefix = "catalog:"
)

// Store wraps a catalog.Store with a Redis cache. Redis failures are logged
// and the wrapped store is used instead.
type Store struct {
	next   catalog.Store
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the expiry of cached entries.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wraps next with a cache on client.
func New(next catalog.Store, client redis.Cmdable, opts ...Option) *Store {
	s := &Store{
		next:   next,
		client: client,
		ttl:    DefaultTTL,
		prefix: DefaultPrefix,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewClient connects to addr and pings it.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Fetch implements catalog.Store.
func (s *Store) Fetch(ctx context.Context, q catalog.Query) ([]*catalog.Product, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	key := s.key("fetch", q)

	var cached []*catalog.Product
	if s.get(ctx, key, &cached) {
		return cached, nil
	}

	products, err := s.next.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	s.set(ctx, key, products)
	return products, nil
}

// Count implements catalog.Store.
func (s *Store) Count(ctx context.Context, q catalog.Query) (int64, error) {
	q = q.Unpaged()
	if err := q.Validate(); err != nil {
		return 0, err
	}
	key := s.key("count", q)

	var cached int64
	if s.get(ctx, key, &cached) {
		return cached, nil
	}

	n, err := s.next.Count(ctx, q)
	if err != nil {
		return 0, err
	}
	s.set(ctx, key, n)
	return n, nil
}

// GenreProductIDs implements catalog.GenreSource when the wrapped store does.
// Genres are not cached.
func (s *Store) GenreProductIDs(ctx context.Context, genreID string) ([]string, error) {
	gs, ok := s.next.(catalog.GenreSource)
	if !ok {
		return nil, fmt.Errorf("genre %s: %w", genreID, catalog.ErrNotFound)
	}
	return gs.GenreProductIDs(ctx, genreID)
}

// Invalidate deletes every cached entry under the prefix and returns how
// many keys were removed.
func (s *Store) Invalidate(ctx context.Context) (int, error) {
	var n int
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return n, fmt.Errorf("delete %s: %w", iter.Val(), err)
		}
		n++
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("scan cache keys: %w", err)
	}
	return n, nil
}

func (s *Store) key(kind string, q catalog.Query) string {
	sum := sha256.Sum256([]byte(q.Key()))
	return s.prefix + kind + ":" + hex.EncodeToString(sum[:])
}

func (s *Store) get(ctx context.Context, key string, dst any) bool {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *Store) set(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
