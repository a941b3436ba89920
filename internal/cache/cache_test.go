package cache

import (
	"context"
	"testing"
	"time"

	"chainsidecar/internal/kvstore"
	"chainsidecar/internal/tasks"
)

func newCache(t *testing.T) (*Cache, *kvstore.MemoryStore) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	sup := tasks.New()
	t.Cleanup(sup.Wait)
	return New(store, sup), store
}

func TestFingerprintRendersPositionalAndKeywordArgs(t *testing.T) {
	got := Fingerprint("demo", "blocks_by_height", Arg{Value: "42"}, Arg{Name: "format", Value: "full"})
	want := "demo/cache/blocks_by_height(42, format=full)"
	if got != want {
		t.Fatalf("Fingerprint() = %q, want %q", got, want)
	}
}

func TestCacheMissThenHitAfterStore(t *testing.T) {
	c, _ := newCache(t)
	fp := Fingerprint("demo", "blocks_by_height", Arg{Value: "1"})
	policy := Policy{TTL: time.Minute}

	_, hit, err := c.Get(context.Background(), fp, policy)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if hit {
		t.Fatal("expected a miss before any Store call")
	}

	c.Store(fp, []byte(`{"height":1}`), policy)
	c.tasks.Wait()

	body, hit, err := c.Get(context.Background(), fp, policy)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit {
		t.Fatal("expected a hit after Store completed")
	}
	if string(body) != `{"height":1}` {
		t.Fatalf("Get() body = %q", body)
	}
}

func TestCacheExtendOnHitRefreshesTTL(t *testing.T) {
	c, store := newCache(t)
	fp := Fingerprint("demo", "transaction", Arg{Value: "0xabc"})

	if err := store.SetEX(context.Background(), fp, "body", 2*time.Second); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, hit, err := c.Get(context.Background(), fp, Policy{TTL: time.Hour, ExtendOnHit: true})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit {
		t.Fatal("expected a hit")
	}
	c.tasks.Wait()

	ttl, err := store.TTL(context.Background(), fp)
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 2*time.Second {
		t.Fatalf("expected TTL to have been extended past the seeded 2s, got %v", ttl)
	}
}

func TestCacheFixedPolicyDoesNotExtendTTL(t *testing.T) {
	c, store := newCache(t)
	fp := Fingerprint("demo", "blocks_by_height", Arg{Value: "9"})

	if err := store.SetEX(context.Background(), fp, "body", 2*time.Second); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, hit, err := c.Get(context.Background(), fp, Policy{TTL: time.Hour, ExtendOnHit: false})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit {
		t.Fatal("expected a hit")
	}
	c.tasks.Wait()

	ttl, err := store.TTL(context.Background(), fp)
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl > 2*time.Second {
		t.Fatalf("fixed policy must not extend TTL, got %v", ttl)
	}
}
