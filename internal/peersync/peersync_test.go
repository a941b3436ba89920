package peersync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chainsidecar/internal/kvstore"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestInboundApplyCreatesAbsentKey(t *testing.T) {
	store := kvstore.NewMemoryStore()
	in := NewInbound(store, "secret")

	err := in.Apply(context.Background(), Message{Key: "demo/limits/ip/1.2.3.4", Value: 5, TTL: 60})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	v, ok, err := store.Get(context.Background(), "demo/limits/ip/1.2.3.4")
	if err != nil || !ok {
		t.Fatalf("Get after Apply: v=%q ok=%v err=%v", v, ok, err)
	}
	if v != "5" {
		t.Fatalf("Get() = %q, want 5", v)
	}
}

func TestInboundApplyConvergesOnMinimumTTL(t *testing.T) {
	store := kvstore.NewMemoryStore()
	in := NewInbound(store, "secret")
	key := "demo/limits/ip/5.5.5.5"

	if err := store.SetEX(context.Background(), key, "1", time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := in.Apply(context.Background(), Message{Key: key, Value: 1, TTL: 10}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	ttl, err := store.TTL(context.Background(), key)
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl > 10*time.Second {
		t.Fatalf("expected TTL to tighten to the peer's 10s, got %v", ttl)
	}
}

func TestInboundApplyDoesNotLoosenTTL(t *testing.T) {
	store := kvstore.NewMemoryStore()
	in := NewInbound(store, "secret")
	key := "demo/limits/ip/6.6.6.6"

	if err := store.SetEX(context.Background(), key, "1", 5*time.Second); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := in.Apply(context.Background(), Message{Key: key, Value: 1, TTL: 3600}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	ttl, err := store.TTL(context.Background(), key)
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl > 6*time.Second {
		t.Fatalf("a looser peer TTL must not widen the local TTL, got %v", ttl)
	}
}

func TestInboundAuthorizedRequiresExactBearerToken(t *testing.T) {
	in := NewInbound(kvstore.NewMemoryStore(), "s3cr3t")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/limit", nil)
	c.Request.Header.Set("Authorization", "Bearer s3cr3t")
	if !in.Authorized(c) {
		t.Fatal("expected the correct bearer token to authorize")
	}

	c.Request.Header.Set("Authorization", "Bearer wrong")
	if in.Authorized(c) {
		t.Fatal("expected an incorrect bearer token to be rejected")
	}
}

func TestInboundAuthorizedRejectsEverythingWhenTokenUnset(t *testing.T) {
	in := NewInbound(kvstore.NewMemoryStore(), "")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/limit", nil)
	c.Request.Header.Set("Authorization", "Bearer anything")
	if in.Authorized(c) {
		t.Fatal("an unset configured token must reject every request, not allow all")
	}
}
