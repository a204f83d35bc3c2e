// Package backend talks to the hosted backend over its REST and RPC surface.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/duriyam/operate/internal/shared"
)

// Client wraps interactions with the hosted backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a new client. An empty base URL or API key is a
// configuration error.
func NewClient(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	apiKey = strings.TrimSpace(apiKey)
	if baseURL == "" || apiKey == "" {
		return nil, shared.ErrConfiguration
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Ping checks if the backend answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/auth/v1/health", nil, nil, nil)
}

func (c *Client) rpc(ctx context.Context, fn string, args, result any) error {
	return c.do(ctx, http.MethodPost, "/rest/v1/rpc/"+fn, args, result, nil)
}

func (c *Client) table(name string, query url.Values) string {
	path := "/rest/v1/" + name
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return path
}

// do performs a request and decodes the JSON response. The session bearer
// token is forwarded when present, otherwise the API key authenticates.
func (c *Client) do(ctx context.Context, method, path string, body, result any, header http.Header) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := shared.AccessTokenFromContext(ctx)
	if token == "" {
		token = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, shared.ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return newError(resp.StatusCode, payload)
	}
	if result != nil && len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
