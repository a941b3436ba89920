package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// BroadcastLimit posts a manual peer-sync message to POST /limit, using
// token as the bearer credential. Useful for operators exercising or
// debugging peer convergence without waiting for a real quota boundary.
func (c *Client) BroadcastLimit(ctx context.Context, token, key string, value, ttlSeconds int64) error {
	body, err := json.Marshal(struct {
		Key   string `json:"key"`
		Value int64  `json:"value"`
		TTL   int64  `json:"ttl"`
	}{Key: key, Value: value, TTL: ttlSeconds})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/limit", c.baseURL), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}
