package auth

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// TokenStore persists the digest of the live session token per username.
// Get returns "" with a nil error when no token has been issued, so callers
// can tell an invalid token apart from a store fault.
type TokenStore interface {
	Save(ctx context.Context, username, tokenDigest string) error
	Get(ctx context.Context, username string) (string, error)
	Delete(ctx context.Context, username string) error
}

// RedisTokenStore keeps token digests in Redis under token:<username>.
// A plain SET on each authenticate overwrites the previous digest, which is
// what invalidates older tokens: last writer wins.
type RedisTokenStore struct {
	rdb *redis.Client
}

func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb}
}

func (s *RedisTokenStore) Save(ctx context.Context, username, tokenDigest string) error {
	return s.rdb.Set(ctx, "token:"+username, tokenDigest, 0).Err()
}

func (s *RedisTokenStore) Get(ctx context.Context, username string) (string, error) {
	val, err := s.rdb.Get(ctx, "token:"+username).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (s *RedisTokenStore) Delete(ctx context.Context, username string) error {
	return s.rdb.Del(ctx, "token:"+username).Err()
}

// MemoryTokenStore is a map-backed TokenStore for tests and local development.
type MemoryTokenStore struct {
	mu      sync.RWMutex
	digests map[string]string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{digests: make(map[string]string)}
}

func (s *MemoryTokenStore) Save(ctx context.Context, username, tokenDigest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digests[username] = tokenDigest
	return nil
}

func (s *MemoryTokenStore) Get(ctx context.Context, username string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.digests[username], nil
}

func (s *MemoryTokenStore) Delete(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.digests, username)
	return nil
}
