// Package client provides a Go SDK for talking to one sidecar
// instance's public API.
//
// Big idea: instead of writing raw HTTP requests everywhere, wrap them
// inside a clean Go API. Users call:
//
//	client.Status(ctx)
//	client.BlockByID(ctx, "latest")
//
// It hides HTTP details, JSON decoding and status-code mapping behind a
// clean Go interface.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to one sidecar over HTTP. It does not cache or rate-limit
// anything itself — those are the sidecar's concern; BroadcastLimit only
// posts a peer-sync message for the sidecar to apply.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new Client. apiKey may be empty for anonymous (IP-rate
// limited) use. timeout protects the CLI from hanging forever against
// an unresponsive sidecar.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// StatusResponse mirrors GET /v1.0/status.
type StatusResponse struct {
	Status string `json:"status"`
}

// Status reports whether the sidecar can currently reach its upstream
// node. It does not return an error on a "ko" status — that is itself a
// valid, decoded response.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.getJSON(ctx, "/v1.0/status", &resp); err != nil {
		// /v1.0/status returns 503 with {"status":"ko"} on its down path;
		// surface it as a decoded value rather than an APIError.
		if apiErr, ok := err.(*APIError); ok && apiErr.Status == http.StatusServiceUnavailable {
			return &StatusResponse{Status: "ko"}, nil
		}
		return nil, err
	}
	return &resp, nil
}

// Tokens returns the blockchain's static token map from GET /v1.0/tokens.
func (c *Client) Tokens(ctx context.Context) (map[string]string, error) {
	var resp map[string]string
	if err := c.getJSON(ctx, "/v1.0/tokens", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// LatestBlock fetches GET /v1.0/blocks/latest.
func (c *Client) LatestBlock(ctx context.Context) (json.RawMessage, error) {
	return c.getRaw(ctx, "/v1.0/blocks/latest")
}

// BlockByID fetches GET /v1.0/blocks/:id, where id is a height or a hash.
func (c *Client) BlockByID(ctx context.Context, id string) (json.RawMessage, error) {
	return c.getRaw(ctx, fmt.Sprintf("/v1.0/blocks/%s", id))
}

// Transaction fetches GET /v1.0/transactions/:hash.
func (c *Client) Transaction(ctx context.Context, hash string) (json.RawMessage, error) {
	return c.getRaw(ctx, fmt.Sprintf("/v1.0/transactions/%s", hash))
}

func (c *Client) getRaw(ctx context.Context, path string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	url := c.baseURL + path
	if c.apiKey != "" {
		url += "?api_key=" + c.apiKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if err := checkStatus(resp); err != nil {
		return err
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// ─── Errors ─────────────────────────────────────────────────────────────────

// ErrNotFound is returned when the sidecar responds 404.
var ErrNotFound = fmt.Errorf("not found")

// APIError carries the HTTP status and the error message from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	var apiErr struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.Error
	if msg == "" {
		msg = string(body)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
