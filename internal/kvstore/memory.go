package kvstore

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// entry is one key's value plus its absolute expiry, stored in a plain
// map guarded by a mutex.
type entry struct {
	value   string
	expires time.Time // zero means no TTL
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// MemoryStore is an in-process Store used by tests in place of Redis. It
// is safe for concurrent use and implements the exact same linearizable-
// per-key contract the real backend must provide.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]entry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]entry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok || e.expired(time.Now()) {
		delete(s.data, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) SetEX(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{value: value, expires: expiryFor(ttl)}
	return nil
}

func (s *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.IncrBy(ctx, key, 1)
}

func (s *MemoryStore) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e, ok := s.data[key]
	if !ok || e.expired(now) {
		e = entry{value: "0"}
	}
	n, err := strconv.ParseInt(e.value, 10, 64)
	if err != nil {
		n = 0
	}
	n += delta
	e.value = strconv.FormatInt(n, 10)
	s.data[key] = e
	return n, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		return nil
	}
	e.expires = expiryFor(ttl)
	s.data[key] = e
	return nil
}

func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	now := time.Now()
	if !ok || e.expired(now) {
		delete(s.data, key)
		return 0, ErrNotFound
	}
	if e.expires.IsZero() {
		return NoTTL, nil
	}
	return e.expires.Sub(now), nil
}

func (s *MemoryStore) HGet(_ context.Context, hash, field string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[hash+"/"+field]
	if !ok || e.expired(time.Now()) {
		return "", false, nil
	}
	return e.value, true, nil
}

// HSet is a test helper for seeding hash fields (e.g. api-key quotas);
// it is not part of the Store interface since the sidecar never writes
// hash fields itself.
func (s *MemoryStore) HSet(hash, field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[hash+"/"+field] = entry{value: value}
}

func expiryFor(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}
