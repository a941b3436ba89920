// Package peersync implements the inbound /limit endpoint that merges a
// peer's counter contribution into the local KV store, and the outbound
// broadcaster the rate limiter submits background fan-out through.
//
// The outbound transport is a shared *http.Client with a context
// timeout POSTing JSON to each configured peer sidecar base URL.
// Broadcasts are fire-and-forget: failures are logged, not retried,
// since sync messages are best-effort and loss is tolerated.
package peersync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"chainsidecar/internal/kvstore"

	"github.com/gin-gonic/gin"
)

// Message is the wire format for a peer-sync broadcast.
type Message struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
	TTL   int64  `json:"ttl"` // seconds
}

// Broadcaster fans a counter contribution out to every configured peer.
type Broadcaster struct {
	peers      []string
	token      string
	httpClient *http.Client
}

// NewBroadcaster returns a Broadcaster that POSTs to <peer>/limit for
// every peer in peers, authenticating with the shared sidecar token.
func NewBroadcaster(peers []string, token string) *Broadcaster {
	return &Broadcaster{
		peers:      peers,
		token:      token,
		httpClient: &http.Client{Timeout: 3 * time.Second},
	}
}

// Broadcast sends {key, value, ttl} to every peer concurrently and
// returns once every send has finished, so a supervisor task running it
// stays registered until the HTTP calls are done. Failures are logged
// and swallowed; counters are expected to drift and resynchronize on
// the next broadcast rather than being retried here.
func (b *Broadcaster) Broadcast(key string, value int64, ttl time.Duration) {
	if len(b.peers) == 0 {
		return
	}
	msg := Message{Key: key, Value: value, TTL: int64(ttl.Round(time.Second).Seconds())}
	body, err := json.Marshal(msg)
	if err != nil {
		log.Printf("peersync: marshal broadcast for %s: %v", key, err)
		return
	}

	var wg sync.WaitGroup
	for _, peer := range b.peers {
		wg.Add(1)
		go func(peer string) {
			defer wg.Done()
			b.send(peer, body)
		}(peer)
	}
	wg.Wait()
}

func (b *Broadcaster) send(peer string, body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/limit", peer)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Printf("peersync: build request to %s: %v", peer, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		log.Printf("peersync: broadcast to %s failed: %v", peer, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("peersync: broadcast to %s returned HTTP %d", peer, resp.StatusCode)
	}
}

// ErrBadToken describes a bad or missing bearer token. Nothing in this
// package returns it: Authorized reports a bool, and the router writes
// the 401 itself when that is false.
var ErrBadToken = errors.New("peersync: bad or missing bearer token")

// Inbound applies peer-sync messages to the local KV store.
type Inbound struct {
	store kvstore.Store
	token string
}

// NewInbound returns an Inbound handler authenticating with token.
func NewInbound(store kvstore.Store, token string) *Inbound {
	return &Inbound{store: store, token: token}
}

// Authorized reports whether the request carries the correct bearer
// token. A missing/empty configured token means PeerSync is disabled:
// every request is rejected rather than silently accepted.
func (in *Inbound) Authorized(c *gin.Context) bool {
	if in.token == "" {
		return false
	}
	const prefix = "Bearer "
	h := c.GetHeader("Authorization")
	if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
		return false
	}
	return h[len(prefix):] == in.token
}

// Apply merges msg into the local store:
//  1. INCRBY key value (creates the key at value, no TTL, if absent).
//  2. Read the local TTL.
//  3. If the local TTL is unset or greater than msg.TTL, tighten it to
//     msg.TTL — we converge on the minimum positive TTL ever observed.
func (in *Inbound) Apply(ctx context.Context, msg Message) error {
	if _, err := in.store.IncrBy(ctx, msg.Key, msg.Value); err != nil {
		return fmt.Errorf("peersync: incrby %s: %w", msg.Key, err)
	}

	localTTL, err := in.store.TTL(ctx, msg.Key)
	if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return fmt.Errorf("peersync: ttl %s: %w", msg.Key, err)
	}

	peerTTL := time.Duration(msg.TTL) * time.Second
	if errors.Is(err, kvstore.ErrNotFound) || localTTL == kvstore.NoTTL || localTTL > peerTTL {
		if err := in.store.Expire(ctx, msg.Key, peerTTL); err != nil {
			return fmt.Errorf("peersync: expire %s: %w", msg.Key, err)
		}
	}
	return nil
}
