// Package kvstore is the thin contract over the shared key-value store
// that every other component (AuthResolver, RateLimiter, PeerSync,
// ResponseCache) talks through. Nothing above this package knows or
// cares whether the backing store is Redis or an in-memory fake — it
// only sees the Store interface below.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// NoTTL is the TTL sentinel value returned by Store.TTL for a key that
// exists but carries no expiry (mirrors Redis' TTL == -1).
const NoTTL = time.Duration(-1)

// ErrNotFound is returned by TTL when the key does not exist at all
// (mirrors Redis' TTL == -2).
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the narrow set of key-value operations the sidecar needs:
// string GET/SET-with-TTL, integer counters, TTL introspection and a
// single hash-field read. Every operation must be linearizable per key —
// the sidecar relies on that for correct quota enforcement.
type Store interface {
	// Get returns the stored string value for key. ok is false if the
	// key does not exist.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// SetEX stores value under key with an expiry of ttl, unconditionally
	// overwriting whatever was there before.
	SetEX(ctx context.Context, key, value string, ttl time.Duration) error

	// Incr increments key by 1, creating it at 1 with no TTL if absent,
	// and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// IncrBy increments key by delta, creating it at delta with no TTL
	// if absent, and returns the new value.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)

	// Expire sets key's TTL, regardless of whether one was set before.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns the remaining TTL for key. It returns kvstore.NoTTL if
	// the key exists but has no expiry, and an error satisfying
	// errors.Is(err, ErrNotFound) if the key is absent.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// HGet reads a single field from a hash.
	HGet(ctx context.Context, hash, field string) (value string, ok bool, err error)
}
