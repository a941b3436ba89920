// Package api wires up the Gin HTTP router with every sidecar route,
// composing auth, rate limiting, caching and error mapping around a
// thin handler closure per route.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"chainsidecar/internal/auth"
	"chainsidecar/internal/cache"
	"chainsidecar/internal/chain"
	"chainsidecar/internal/peersync"
	"chainsidecar/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// Handler holds every dependency injected from cmd/sidecar's startup
// sequence: explicit dependency injection into the handler closures,
// fixed once at boot.
type Handler struct {
	blockchain string
	adapter    chain.Adapter
	parser     chain.Parser

	authResolver *auth.Resolver
	limiter      *ratelimit.Limiter
	cache        *cache.Cache
	peerInbound  *peersync.Inbound
}

// NewHandler builds a Handler. adapter/parser are the fixed external
// collaborator pair the handlers invoke on a cache miss.
func NewHandler(
	blockchain string,
	adapter chain.Adapter,
	parser chain.Parser,
	authResolver *auth.Resolver,
	limiter *ratelimit.Limiter,
	respCache *cache.Cache,
	peerInbound *peersync.Inbound,
) *Handler {
	return &Handler{
		blockchain:   blockchain,
		adapter:      adapter,
		parser:       parser,
		authResolver: authResolver,
		limiter:      limiter,
		cache:        respCache,
		peerInbound:  peerInbound,
	}
}

// mountedEndpoints is served from GET /v1.0/.
var mountedEndpoints = []string{
	"/v1.0/blocks/latest",
	"/v1.0/blocks/{height:int}",
	"/v1.0/blocks/{hash:str}",
	"/v1.0/transactions/{hash:str}",
	"/v1.0/status",
	"/v1.0/tokens",
}

// Register mounts every sidecar route, in order.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, "/v1.0")
	})

	r.GET("/v1.0/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"endpoints": mountedEndpoints})
	})

	r.GET("/v1.0/blocks/latest", h.wrap(routeOptions{Limited: true}, h.getLatestBlock))

	r.GET("/v1.0/blocks/:id", h.wrap(routeOptions{
		Limited: true,
		Cache: &CacheSpec{
			PolicyFor:   cachePolicyFor,
			Fingerprint: h.blockByIDFingerprint,
		},
	}, h.getBlockByID))

	r.GET("/v1.0/transactions/:hash", h.wrap(routeOptions{
		Limited: true,
		Cache: &CacheSpec{
			Policy:      cache.Policy{TTL: routeCacheTTL, ExtendOnHit: true},
			Fingerprint: func(c *gin.Context) string { return h.transactionFingerprint(c) },
		},
	}, h.getTransaction))

	r.GET("/v1.0/status", h.handleStatus)

	r.GET("/v1.0/tokens", h.wrap(routeOptions{}, h.getTokens))

	r.POST("/limit", h.handleLimit)
}

// ─── route bodies ──────────────────────────────────────────────────────────

func (h *Handler) getLatestBlock(ctx context.Context, _ *gin.Context) (any, error) {
	height, err := h.adapter.GetBlockCount(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := h.adapter.GetBlockByHeight(ctx, height)
	if err != nil {
		return nil, err
	}
	return h.parser.DecodeBlock(raw)
}

func (h *Handler) getBlockByID(ctx context.Context, c *gin.Context) (any, error) {
	id := c.Param("id")
	if height, err := strconv.ParseInt(id, 10, 64); err == nil {
		raw, err := h.adapter.GetBlockByHeight(ctx, height)
		if err != nil {
			return nil, err
		}
		return h.parser.DecodeBlock(raw)
	}

	raw, err := h.adapter.GetBlockByHash(ctx, id)
	if err != nil {
		return nil, err
	}
	return h.parser.DecodeBlock(raw)
}

func (h *Handler) getTransaction(ctx context.Context, c *gin.Context) (any, error) {
	raw, err := h.adapter.GetTransaction(ctx, c.Param("hash"))
	if err != nil {
		return nil, err
	}
	return h.parser.DecodeTransaction(raw)
}

// handleStatus implements GET /v1.0/status directly: no limiter, no
// auth, and a response shape ({status: ok|ko}) that doesn't fit the
// generic "marshal the handler's return value" wrapper because its
// HTTP status varies independently of the upstream error taxonomy.
func (h *Handler) handleStatus(c *gin.Context) {
	if _, err := h.getLatestBlock(c.Request.Context(), c); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "ko"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getTokens(_ context.Context, _ *gin.Context) (any, error) {
	return h.parser.Tokens(), nil
}

// handleLimit implements the peer-sync inbound endpoint.
func (h *Handler) handleLimit(c *gin.Context) {
	if !h.peerInbound.Authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var msg peersync.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.peerInbound.Apply(c.Request.Context(), msg); err != nil {
		log.Printf("api: peersync apply failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// marshalJSON is the single stable byte-level encoder used both for the
// live response path and for what gets written into the cache.
func marshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}
