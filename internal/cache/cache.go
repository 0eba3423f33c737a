// Package cache provides the key-value store the bridge uses to remember
// which contracts were already transferred.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"contracting-bridge/internal/config"
)

// Store defines the behaviour expected from any caching back-end used by the
// bridge.
//
// A contract id with value "true" means the contract was transferred and must
// never be resubmitted; tender ids map to the dateModified of the last pass
// that completed for them. Implementations must be safe for concurrent use.
type Store interface {
	// Has reports whether the key is present.
	Has(ctx context.Context, key string) (bool, error)
	// Get returns the stored value, or "" when the key is absent.
	Get(ctx context.Context, key string) (string, error)
	// Put stores the value under the key, overwriting any previous value.
	Put(ctx context.Context, key, value string) error
	// Describe identifies the backend for the startup log.
	Describe() Description
}

// Description identifies a cache backend for operability logging.
type Description struct {
	Backend string
	DBName  string
	Host    string
	Port    int
}

// New builds the Store selected by the configuration.
func New(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "redis":
		return newRedisStore(cfg)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}

type redisStore struct {
	client *redis.Client
	desc   Description
}

func newRedisStore(cfg config.CacheConfig) (*redisStore, error) {
	db, err := strconv.Atoi(cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("cache.db_name must be a redis db index: %w", err)
	}
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		DB:   db,
	})
	return &redisStore{
		client: client,
		desc: Description{
			Backend: "redis",
			DBName:  cfg.DBName,
			Host:    cfg.Host,
			Port:    cfg.Port,
		},
	}, nil
}

func (s *redisStore) Has(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (s *redisStore) Put(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *redisStore) Describe() Description { return s.desc }

// MemoryStore is a map-backed Store for tests and local runs.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]string)}
}

func (s *MemoryStore) Has(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m[key]
	return ok, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[key], nil
}

func (s *MemoryStore) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *MemoryStore) Describe() Description {
	return Description{Backend: "memory", DBName: "local"}
}
