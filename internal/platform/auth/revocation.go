package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RevocationStore records JTIs that must no longer be accepted. Entries only
// need to live until the token would have expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// RevokeOnce revokes jti and reports whether this call did it. Exactly one
	// of any number of concurrent calls for the same jti gets true.
	RevokeOnce(ctx context.Context, jti string, expiresAt time.Time) (bool, error)
}

// MemoryRevocationStore keeps revoked JTIs in process. Used when REDIS_URL is
// not configured; revocations do not survive a restart.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	done    chan struct{}
	once    sync.Once
}

// NewMemoryRevocationStore starts a goroutine that drops expired entries every
// five minutes. Call Close to stop it.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	s := &MemoryRevocationStore{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
	}
	go s.cleanupLoop(5 * time.Minute)
	return s
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	s.mu.Lock()
	s.entries[jti] = expiresAt
	s.mu.Unlock()
	return nil
}

func (s *MemoryRevocationStore) RevokeOnce(_ context.Context, jti string, expiresAt time.Time) (bool, error) {
	if jti == "" || !time.Now().Before(expiresAt) {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[jti]; ok {
		return false, nil
	}
	s.entries[jti] = expiresAt
	return true, nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[jti]
	return ok, nil
}

// Count returns the number of tracked revocations.
func (s *MemoryRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryRevocationStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemoryRevocationStore) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.cleanup(now)
		}
	}
}

func (s *MemoryRevocationStore) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, exp := range s.entries {
		if now.After(exp) {
			delete(s.entries, jti)
		}
	}
}

// RedisRevocationStore keeps one key per revoked JTI with a TTL matching the
// token's remaining lifetime, so Redis expires them on its own.
type RedisRevocationStore struct {
	rdb *goredis.Client
}

func NewRedisRevocationStore(rdb *goredis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{rdb: rdb}
}

func redisKeyRevoked(jti string) string { return "revoked:" + jti }

func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, redisKeyRevoked(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}
	return nil
}

// RevokeOnce uses SET NX, so the check and the write are one Redis command.
func (s *RedisRevocationStore) RevokeOnce(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	if jti == "" {
		return false, nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return false, nil
	}
	ok, err := s.rdb.SetNX(ctx, redisKeyRevoked(jti), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis revoke once: %w", err)
	}
	return ok, nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := s.rdb.Get(ctx, redisKeyRevoked(jti)).Err()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get revoked: %w", err)
	}
	return true, nil
}
