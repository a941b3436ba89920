// Package auth resolves an inbound request to a principal and its
// request quota.
package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"chainsidecar/internal/kvstore"

	"github.com/gin-gonic/gin"
)

// ErrUnauthorized is returned when a caller presents a key that is not
// found in the keys hash. The router maps it to HTTP 401.
var ErrUnauthorized = errors.New("auth: unknown api key")

// Kind distinguishes the two disjoint principal namespaces.
type Kind int

const (
	KindIP Kind = iota
	KindAPIKey
)

// Principal is the identity a request is counted under.
type Principal struct {
	Kind Kind
	ID   string
}

// LimiterKey returns the KV key this principal's counter window lives
// under, namespaced per blockchain.
func (p Principal) LimiterKey(blockchain string) string {
	switch p.Kind {
	case KindAPIKey:
		return fmt.Sprintf("%s/limits/api_key/%s", blockchain, p.ID)
	default:
		return fmt.Sprintf("%s/limits/ip/%s", blockchain, p.ID)
	}
}

// Resolver extracts a principal and quota from each inbound request.
type Resolver struct {
	store        kvstore.Store
	blockchain   string
	defaultQuota float64
}

// New returns a Resolver that reads the "<blockchain>/api_keys" hash for
// authenticated lookups and falls back to defaultQuota for anonymous
// callers.
func New(store kvstore.Store, blockchain string, defaultQuota float64) *Resolver {
	return &Resolver{store: store, blockchain: blockchain, defaultQuota: defaultQuota}
}

// Resolve picks a principal for the request: a query param wins over
// the bearer header; no key at all falls back to the client's IP and
// the process default quota; an unrecognized key fails with
// ErrUnauthorized before any rate-limiter work happens.
func (r *Resolver) Resolve(ctx context.Context, c *gin.Context) (Principal, float64, error) {
	key := extractKey(c)
	if key == "" {
		return Principal{Kind: KindIP, ID: clientIP(c)}, r.defaultQuota, nil
	}

	stored, ok, err := r.store.HGet(ctx, r.blockchain+"/api_keys", key)
	if err != nil {
		return Principal{}, 0, fmt.Errorf("auth: lookup api key: %w", err)
	}
	if !ok {
		return Principal{}, 0, ErrUnauthorized
	}

	quota, err := parseQuota(stored)
	if err != nil {
		return Principal{}, 0, fmt.Errorf("auth: stored quota %q for key: %w", stored, err)
	}
	return Principal{Kind: KindAPIKey, ID: key}, quota, nil
}

func extractKey(c *gin.Context) string {
	if k := c.Query("api_key"); k != "" {
		return k
	}
	auth := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(auth, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	}
	return ""
}

func clientIP(c *gin.Context) string {
	if ip := c.GetHeader("x-real-ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

func parseQuota(s string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inf", "+inf", "infinity", "+infinity":
		return math.Inf(1), nil
	}
	return strconv.ParseFloat(s, 64)
}
