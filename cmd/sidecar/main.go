// cmd/sidecar is the main entrypoint for one blockchain sidecar
// instance. It loads configuration from the environment, dials the
// shared Redis store, builds the upstream node adapter, wires the middleware stack
// (auth, rate limiting, caching, peer sync) into a Gin router, and
// serves it with a signal-driven graceful shutdown.
//
// Example:
//
//	node_blockchain=demo node_url=http://localhost:9090 redis_host=localhost:6379 \
//	  sidecar_token=s3cr3t sidecar_urls=http://peer-a:8080,http://peer-b:8080 \
//	  ./sidecar
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainsidecar/internal/api"
	"chainsidecar/internal/auth"
	"chainsidecar/internal/cache"
	"chainsidecar/internal/chain"
	"chainsidecar/internal/config"
	"chainsidecar/internal/kvstore"
	"chainsidecar/internal/peersync"
	"chainsidecar/internal/ratelimit"
	"chainsidecar/internal/tasks"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	// ── KV store ──────────────────────────────────────────────────────────
	store := kvstore.NewRedisStore(cfg.RedisHost)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		cancel()
		log.Fatalf("FATAL: redis_host %q unreachable: %v", cfg.RedisHost, err)
	}
	cancel()

	// ── Background task supervisor ───────────────────────────────────────
	sup := tasks.New()

	// ── Peer sync ─────────────────────────────────────────────────────────
	broadcaster := peersync.NewBroadcaster(cfg.SidecarURLs, cfg.SidecarToken)
	inbound := peersync.NewInbound(store, cfg.SidecarToken)

	// ── Middleware stack ─────────────────────────────────────────────────
	authResolver := auth.New(store, cfg.NodeBlockchain, cfg.LimitDefault)
	limiter := ratelimit.New(store, ratelimit.Config{
		Blockchain: cfg.NodeBlockchain,
		Interval:   time.Duration(cfg.LimitInterval) * time.Second,
		SyncEvery:  int64(cfg.SidecarSyncEvery),
	}, sup, broadcaster)
	respCache := cache.New(store, sup)

	// ── Upstream adapter/parser (set exactly once at startup) ──
	adapter := chain.NewJSONRPCAdapter(cfg.NodeURL, cfg.NodeToken)
	parser := chain.NewJSONParser(nil)

	// ── HTTP server ───────────────────────────────────────────────────────
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(api.Logger(), api.Recovery())

	handler := api.NewHandler(cfg.NodeBlockchain, adapter, parser, authResolver, limiter, respCache, inbound)
	handler.Register(router)

	addr := getenvDefault("sidecar_addr", ":8080")
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("sidecar for %s listening on %s (upstream %s)", cfg.NodeBlockchain, addr, cfg.NodeURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down sidecar for", cfg.NodeBlockchain)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	// Drain any in-flight cache writes / TTL extensions / peer broadcasts
	// rather than abandoning them.
	sup.Wait()
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
