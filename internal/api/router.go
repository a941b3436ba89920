package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"chainsidecar/internal/auth"
	"chainsidecar/internal/cache"
	"chainsidecar/internal/httperr"

	"github.com/gin-gonic/gin"
)

// routeCacheTTL is the fixed 600s TTL every cached route uses, for both
// the fixed and extend-on-hit disciplines.
const routeCacheTTL = 600 * time.Second

// blockByIDFingerprint renders the fingerprint for /v1.0/blocks/:id,
// selecting the integer-height or string-hash route name depending on
// how the path segment parses. Dispatch prefers the integer form
// whenever the path segment parses as one.
func (h *Handler) blockByIDFingerprint(c *gin.Context) string {
	id := c.Param("id")
	if _, err := strconv.ParseInt(id, 10, 64); err == nil {
		return cache.Fingerprint(h.blockchain, "blocks_by_height", cache.Arg{Value: id})
	}
	return cache.Fingerprint(h.blockchain, "blocks_by_hash", cache.Arg{Value: id})
}

func (h *Handler) transactionFingerprint(c *gin.Context) string {
	return cache.Fingerprint(h.blockchain, "transaction", cache.Arg{Value: c.Param("hash")})
}

// cachePolicyFor returns the TTL discipline for /v1.0/blocks/:id
// depending on whether it dispatched to the height (fixed) or hash
// (extend-on-hit) form.
func cachePolicyFor(c *gin.Context) cache.Policy {
	id := c.Param("id")
	if _, err := strconv.ParseInt(id, 10, 64); err == nil {
		return cache.Policy{TTL: routeCacheTTL, ExtendOnHit: false}
	}
	return cache.Policy{TTL: routeCacheTTL, ExtendOnHit: true}
}

// CacheSpec binds a route's fingerprint function to its cache policy.
// Policy is resolved per-request via PolicyFor when the discipline
// itself depends on the request (as it does for /v1.0/blocks/:id);
// otherwise Policy is used as given.
type CacheSpec struct {
	Policy      cache.Policy
	PolicyFor   func(c *gin.Context) cache.Policy
	Fingerprint func(c *gin.Context) string
}

func (s *CacheSpec) policy(c *gin.Context) cache.Policy {
	if s.PolicyFor != nil {
		return s.PolicyFor(c)
	}
	return s.Policy
}

// routeOptions controls which of the decorator-style layers wrap a
// given route: the limiter and/or the response cache. Error mapping
// always wraps every route's handler invocation.
type routeOptions struct {
	Limited bool
	Cache   *CacheSpec
}

// routeFunc is a route body: pure logic that returns a JSON-able value
// or an error from the upstream taxonomy, decoupled from how the
// result gets written to the wire.
type routeFunc func(ctx context.Context, c *gin.Context) (any, error)

// wrap composes routeOptions around route in a fixed order: auth
// resolution -> rate limiting -> cache lookup -> handler -> error
// mapping (on failure) -> cache store (on success).
func (h *Handler) wrap(opts routeOptions, route routeFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if opts.Limited {
			if !h.checkAuthAndLimit(ctx, c) {
				return
			}
		}

		var spec *CacheSpec
		var fingerprint string
		var policy cache.Policy
		if opts.Cache != nil {
			spec = opts.Cache
			fingerprint = spec.Fingerprint(c)
			policy = spec.policy(c)

			body, hit, err := h.cache.Get(ctx, fingerprint, policy)
			if err == nil && hit {
				c.Data(http.StatusOK, "application/json", body)
				return
			}
		}

		result, err := route(ctx, c)
		if err != nil {
			httperr.Write(c, err)
			return
		}

		body, err := marshalJSON(result)
		if err != nil {
			httperr.Write(c, err)
			return
		}

		if spec != nil {
			h.cache.Store(fingerprint, body, policy)
		}
		c.Data(http.StatusOK, "application/json", body)
	}
}

// checkAuthAndLimit resolves the caller's principal and quota and
// enforces the rate limiter, writing the appropriate 401/429/500
// response itself when the request should not proceed. It returns true
// when the caller may continue to the handler.
func (h *Handler) checkAuthAndLimit(ctx context.Context, c *gin.Context) bool {
	principal, quota, err := h.authResolver.Resolve(ctx, c)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return false
		}
		httperr.Write(c, err)
		return false
	}

	decision, err := h.limiter.Allow(ctx, principal, quota)
	if err != nil {
		httperr.Write(c, err)
		return false
	}
	if !decision.Allowed {
		c.Header("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return false
	}
	return true
}
