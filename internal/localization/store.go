package localization

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/kliq/backoffice/internal/shared"
)

// Store persists translation keys in insertion order.
type Store interface {
	All(ctx context.Context) ([]Key, error)
	Get(ctx context.Context, key string) (*Key, error)
	// Insert adds a key, failing with shared.ErrAlreadyExists.
	Insert(ctx context.Context, k Key) error
	// Put inserts or replaces a key.
	Put(ctx context.Context, k Key) error
	Delete(ctx context.Context, key string) error
}

//go:embed fixtures/keys.yaml
var fixtureYAML []byte

// LoadFixtures decodes the bundled demo keys.
func LoadFixtures() ([]Key, error) {
	var f struct {
		Keys []Key `yaml:"keys"`
	}
	if err := yaml.Unmarshal(fixtureYAML, &f); err != nil {
		return nil, fmt.Errorf("localization: decode fixtures: %w", err)
	}
	return f.Keys, nil
}

// MemoryStore keeps keys in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	keys []Key
}

// NewMemoryStore returns a store holding copies of keys.
func NewMemoryStore(keys ...Key) *MemoryStore {
	s := &MemoryStore{keys: make([]Key, 0, len(keys))}
	for _, k := range keys {
		s.keys = append(s.keys, cloneKey(k))
	}
	return s
}

// All returns every key.
func (s *MemoryStore) All(_ context.Context) ([]Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Key, len(s.keys))
	for i, k := range s.keys {
		out[i] = cloneKey(k)
	}
	return out, nil
}

// Get fetches one key.
func (s *MemoryStore) Get(_ context.Context, key string) (*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(key); i >= 0 {
		k := cloneKey(s.keys[i])
		return &k, nil
	}
	return nil, shared.ErrNotFound
}

// Insert adds a new key.
func (s *MemoryStore) Insert(_ context.Context, k Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index(k.Key) >= 0 {
		return shared.ErrAlreadyExists
	}
	s.keys = append(s.keys, cloneKey(k))
	return nil
}

// Put inserts or replaces a key, keeping its position.
func (s *MemoryStore) Put(_ context.Context, k Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(k.Key); i >= 0 {
		s.keys[i] = cloneKey(k)
		return nil
	}
	s.keys = append(s.keys, cloneKey(k))
	return nil
}

// Delete removes a key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(key)
	if i < 0 {
		return shared.ErrNotFound
	}
	s.keys = slices.Delete(s.keys, i, i+1)
	return nil
}

func (s *MemoryStore) index(key string) int {
	return slices.IndexFunc(s.keys, func(k Key) bool { return k.Key == key })
}

// RedisStore keeps one JSON document per key in a hash and the insertion
// order in a sorted set, so the server and the worker share the data.
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
}

// NewRedisStore returns a store under namespace.
func NewRedisStore(client redis.UniversalClient, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "localization"
	}
	return &RedisStore{client: client, namespace: namespace}
}

func (s *RedisStore) hashKey() string  { return s.namespace + ":keys" }
func (s *RedisStore) orderKey() string { return s.namespace + ":order" }
func (s *RedisStore) seqKey() string   { return s.namespace + ":seq" }

// All returns every key in insertion order.
func (s *RedisStore) All(ctx context.Context) ([]Key, error) {
	names, err := s.client.ZRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("localization: read order: %w", err)
	}
	if len(names) == 0 {
		return []Key{}, nil
	}
	docs, err := s.client.HMGet(ctx, s.hashKey(), names...).Result()
	if err != nil {
		return nil, fmt.Errorf("localization: read keys: %w", err)
	}
	out := make([]Key, 0, len(docs))
	for i, doc := range docs {
		raw, ok := doc.(string)
		if !ok {
			continue
		}
		var k Key
		if err := json.Unmarshal([]byte(raw), &k); err != nil {
			return nil, fmt.Errorf("localization: decode %s: %w", names[i], err)
		}
		out = append(out, k)
	}
	return out, nil
}

// Get fetches one key.
func (s *RedisStore) Get(ctx context.Context, key string) (*Key, error) {
	raw, err := s.client.HGet(ctx, s.hashKey(), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("localization: get %s: %w", key, err)
	}
	var k Key
	if err := json.Unmarshal(raw, &k); err != nil {
		return nil, fmt.Errorf("localization: decode %s: %w", key, err)
	}
	return &k, nil
}

// Insert adds a new key.
func (s *RedisStore) Insert(ctx context.Context, k Key) error {
	raw, err := json.Marshal(k)
	if err != nil {
		return err
	}
	created, err := s.client.HSetNX(ctx, s.hashKey(), k.Key, raw).Result()
	if err != nil {
		return fmt.Errorf("localization: insert %s: %w", k.Key, err)
	}
	if !created {
		return shared.ErrAlreadyExists
	}
	return s.track(ctx, k.Key)
}

// Put inserts or replaces a key.
func (s *RedisStore) Put(ctx context.Context, k Key) error {
	raw, err := json.Marshal(k)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.hashKey(), k.Key, raw).Err(); err != nil {
		return fmt.Errorf("localization: put %s: %w", k.Key, err)
	}
	return s.track(ctx, k.Key)
}

// Delete removes a key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	removed, err := s.client.HDel(ctx, s.hashKey(), key).Result()
	if err != nil {
		return fmt.Errorf("localization: delete %s: %w", key, err)
	}
	if removed == 0 {
		return shared.ErrNotFound
	}
	return s.client.ZRem(ctx, s.orderKey(), key).Err()
}

// Seed inserts keys that are not stored yet.
func (s *RedisStore) Seed(ctx context.Context, keys []Key) error {
	for _, k := range keys {
		if err := s.Insert(ctx, k); err != nil && !errors.Is(err, shared.ErrAlreadyExists) {
			return err
		}
	}
	return nil
}

// track records the first insertion position of key.
func (s *RedisStore) track(ctx context.Context, key string) error {
	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("localization: order %s: %w", key, err)
	}
	return s.client.ZAddNX(ctx, s.orderKey(), redis.Z{Score: float64(seq), Member: key}).Err()
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
