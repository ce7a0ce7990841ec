// Package cache stores finished analysis documents so repeated page views do
// not pay for another completion. The cache is optional: callers treat every
// error as a miss.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Store is a byte-valued key/value store with expiry.
type Store interface {
	// Get returns the value for key. A missing key is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key builds the cache key for an analysis. Subjects are compared
// case-insensitively and hashed so user input never appears in key names.
func Key(kind, subject string, year int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", strings.ToLower(strings.TrimSpace(subject)), year)))
	return "kinema:analysis:" + kind + ":" + hex.EncodeToString(sum[:])
}

// RedisStore implements Store on go-redis.
type RedisStore struct {
	c *goredis.Client
}

// NewRedis parses a redis:// URL and returns a store for it. The connection
// is established lazily.
func NewRedis(url string) (*RedisStore, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	return NewRedisStore(goredis.NewClient(opt)), nil
}

func NewRedisStore(c *goredis.Client) *RedisStore {
	return &RedisStore{c: c}
}

// Client exposes the underlying connection so other Redis consumers can share it.
func (s *RedisStore) Client() *goredis.Client { return s.c }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.c.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.c.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.c.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.c.Close()
}

// Memory is an in-process Store, used in tests and single-instance setups.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set stores value. A ttl of zero keeps the entry until it is overwritten.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
