package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"chainsidecar/internal/kvstore"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newGinContext(target string, headers map[string]string) *gin.Context {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req
	return c
}

func TestResolveAnonymousFallsBackToIP(t *testing.T) {
	store := kvstore.NewMemoryStore()
	r := New(store, "demo", 42)

	c := newGinContext("/v1.0/blocks/latest", map[string]string{"x-real-ip": "9.9.9.9"})
	p, quota, err := r.Resolve(c.Request.Context(), c)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Kind != KindIP || p.ID != "9.9.9.9" {
		t.Fatalf("Resolve() principal = %+v, want IP 9.9.9.9", p)
	}
	if quota != 42 {
		t.Fatalf("Resolve() quota = %v, want 42", quota)
	}
}

func TestResolveKnownAPIKeyWins(t *testing.T) {
	store := kvstore.NewMemoryStore()
	store.HSet("demo/api_keys", "mykey", "500")
	r := New(store, "demo", 42)

	c := newGinContext("/v1.0/blocks/latest?api_key=mykey", nil)
	p, quota, err := r.Resolve(c.Request.Context(), c)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Kind != KindAPIKey || p.ID != "mykey" {
		t.Fatalf("Resolve() principal = %+v, want api key mykey", p)
	}
	if quota != 500 {
		t.Fatalf("Resolve() quota = %v, want 500", quota)
	}
}

func TestResolveUnknownAPIKeyIsUnauthorized(t *testing.T) {
	store := kvstore.NewMemoryStore()
	r := New(store, "demo", 42)

	c := newGinContext("/v1.0/blocks/latest?api_key=nope", nil)
	_, _, err := r.Resolve(c.Request.Context(), c)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Resolve() err = %v, want ErrUnauthorized", err)
	}
}

func TestResolveBearerHeaderUsedWhenNoQueryParam(t *testing.T) {
	store := kvstore.NewMemoryStore()
	store.HSet("demo/api_keys", "hdrkey", "inf")
	r := New(store, "demo", 42)

	c := newGinContext("/v1.0/blocks/latest", map[string]string{"Authorization": "Bearer hdrkey"})
	p, quota, err := r.Resolve(c.Request.Context(), c)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.ID != "hdrkey" {
		t.Fatalf("Resolve() principal.ID = %q, want hdrkey", p.ID)
	}
	if quota == 42 {
		t.Fatal("expected the unlimited stored quota, not the anonymous default")
	}
}

func TestLimiterKeyNamespacesByKindAndBlockchain(t *testing.T) {
	ip := Principal{Kind: KindIP, ID: "1.1.1.1"}
	key := Principal{Kind: KindAPIKey, ID: "abc"}

	if got, want := ip.LimiterKey("demo"), "demo/limits/ip/1.1.1.1"; got != want {
		t.Fatalf("LimiterKey() = %q, want %q", got, want)
	}
	if got, want := key.LimiterKey("demo"), "demo/limits/api_key/abc"; got != want {
		t.Fatalf("LimiterKey() = %q, want %q", got, want)
	}
}
