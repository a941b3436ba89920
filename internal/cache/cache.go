// Package cache implements a fingerprint-keyed memoization layer over
// expensive read handlers, with two TTL disciplines (extend-on-hit and
// fixed) selected per route.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chainsidecar/internal/kvstore"
	"chainsidecar/internal/tasks"
)

// Policy is the per-route caching discipline: each route registers
// with a cache policy value.
type Policy struct {
	TTL         time.Duration
	ExtendOnHit bool
}

// Arg is one argument to include in a fingerprint, in the order it
// should appear. Using an explicit list instead of reflection keeps the
// fingerprint stable across refactors.
type Arg struct {
	Name  string // empty for a positional argument
	Value string // already stringified by the caller
}

// Fingerprint renders handler and args as "handler(arg1, arg2, k=v, ...)"
// — positional args first in order, then keyword args in the order
// given — and namespaces it under "<blockchain>/cache/".
func Fingerprint(blockchain, handler string, args ...Arg) string {
	var parts []string
	for _, a := range args {
		if a.Name == "" {
			parts = append(parts, a.Value)
		}
	}
	for _, a := range args {
		if a.Name != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", a.Name, a.Value))
		}
	}
	return fmt.Sprintf("%s/cache/%s(%s)", blockchain, handler, strings.Join(parts, ", "))
}

// Cache reads/writes cached response bodies through the shared KV store.
type Cache struct {
	store kvstore.Store
	tasks *tasks.Supervisor
}

// New returns a Cache backed by store, submitting background writes and
// TTL extensions through sup.
func New(store kvstore.Store, sup *tasks.Supervisor) *Cache {
	return &Cache{store: store, tasks: sup}
}

// Get looks up fingerprint and, on a hit under an extend-on-hit policy,
// schedules a background TTL refresh (never blocking the caller).
func (c *Cache) Get(ctx context.Context, fingerprint string, policy Policy) (body []byte, hit bool, err error) {
	v, ok, err := c.store.Get(ctx, fingerprint)
	if err != nil {
		return nil, false, fmt.Errorf("cache: get %s: %w", fingerprint, err)
	}
	if !ok {
		return nil, false, nil
	}

	if policy.ExtendOnHit {
		ttl := policy.TTL
		key := fingerprint
		c.tasks.Submit(func() {
			_ = c.store.Expire(context.Background(), key, ttl)
		})
	}

	return []byte(v), true, nil
}

// Store schedules fingerprint -> body to be written with policy.TTL as a
// background task. The caller must not wait on this — it returns the
// live response immediately.
func (c *Cache) Store(fingerprint string, body []byte, policy Policy) {
	key := fingerprint
	value := string(body)
	ttl := policy.TTL
	c.tasks.Submit(func() {
		if err := c.store.SetEX(context.Background(), key, value, ttl); err != nil {
			// A dropped write merely causes a later miss.
			return
		}
	})
}
