// Package ratelimit implements a fixed-window counter per principal,
// backed by the shared KV store, with best-effort peer-sync broadcasts
// at configurable count strides.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"chainsidecar/internal/auth"
	"chainsidecar/internal/kvstore"
	"chainsidecar/internal/tasks"
)

// Broadcaster is implemented by peersync.Broadcaster; kept as a narrow
// interface here so ratelimit doesn't import peersync and tests can
// substitute a recording fake.
type Broadcaster interface {
	Broadcast(key string, value int64, ttl time.Duration)
}

// Limiter enforces per-principal fixed-window quotas and fans out
// best-effort sync broadcasts at each SyncEvery boundary.
type Limiter struct {
	store      kvstore.Store
	blockchain string
	interval   time.Duration
	syncEvery  int64
	tasks      *tasks.Supervisor
	broadcast  Broadcaster
}

// Config bundles the tunables New needs.
type Config struct {
	Blockchain string
	Interval   time.Duration // window length
	SyncEvery  int64         // sidecar_limit_sync_interval
}

// New returns a Limiter. tasks is used to submit the peer broadcast
// without blocking the caller; broadcast may be nil to disable sync
// entirely (e.g. in tests or single-replica deployments).
func New(store kvstore.Store, cfg Config, sup *tasks.Supervisor, broadcast Broadcaster) *Limiter {
	return &Limiter{
		store:      store,
		blockchain: cfg.Blockchain,
		interval:   cfg.Interval,
		syncEvery:  cfg.SyncEvery,
		tasks:      sup,
		broadcast:  broadcast,
	}
}

// Decision is the outcome of Allow.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration // only meaningful when !Allowed
}

// Allow runs the fixed-window state machine for principal p with quota.
// quota == +Inf skips the store entirely.
func (l *Limiter) Allow(ctx context.Context, p auth.Principal, quota float64) (Decision, error) {
	if math.IsInf(quota, 1) {
		return Decision{Allowed: true}, nil
	}

	key := p.LimiterKey(l.blockchain)

	current, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: get %s: %w", key, err)
	}

	if !ok {
		// absent -> first request in this window.
		if err := l.store.SetEX(ctx, key, "1", l.interval); err != nil {
			return Decision{}, fmt.Errorf("ratelimit: set %s: %w", key, err)
		}
		return Decision{Allowed: true}, nil
	}

	count, err := parseCount(current)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: corrupt counter %s=%q: %w", key, current, err)
	}

	if float64(count) >= quota {
		ttl, err := l.store.TTL(ctx, key)
		if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
			return Decision{}, fmt.Errorf("ratelimit: ttl %s: %w", key, err)
		}
		if ttl <= 0 {
			ttl = time.Second
		}
		return Decision{Allowed: false, RetryAfter: ttl}, nil
	}

	newCount, err := l.store.Incr(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: incr %s: %w", key, err)
	}

	if l.broadcast != nil && l.syncEvery > 0 && newCount > 0 && newCount%l.syncEvery == 0 {
		l.submitBroadcast(ctx, key)
	}

	return Decision{Allowed: true}, nil
}

// submitBroadcast reads the window's current TTL and fans it out to
// peers in the background — never on the request's critical path.
func (l *Limiter) submitBroadcast(ctx context.Context, key string) {
	ttl, err := l.store.TTL(ctx, key)
	if err != nil {
		ttl = l.interval
	}
	if ttl <= 0 {
		ttl = l.interval
	}
	syncEvery := l.syncEvery
	broadcast := l.broadcast
	l.tasks.Submit(func() {
		broadcast.Broadcast(key, syncEvery, ttl)
	})
}

func parseCount(s string) (int64, error) {
	var n int64
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}
