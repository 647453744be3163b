// Package magento wraps the Adobe Commerce B2B REST and GraphQL APIs:
// bearer-token attachment, retries on transient failures, and
// searchCriteria pagination. It returns wire types only; normalization
// happens downstream.
package magento

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
)

// Client issues authenticated calls against one Magento store.
type Client struct {
	storeURL string
	tokens   TokenSource
	http     *retryablehttp.Client
	logger   hclog.Logger
}

// NewClient creates a client for the given store. The token source decides
// the credential shape (password grant vs client credentials); the client
// only attaches the resulting bearer token.
func NewClient(storeURL string, tokens TokenSource, logger hclog.Logger) (*Client, error) {
	if storeURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Client{
		storeURL: strings.TrimRight(storeURL, "/"),
		tokens:   tokens,
		http:     newRetryingClient(),
		logger:   logger.Named("magento"),
	}, nil
}

// newRetryingClient builds the shared HTTP stack: pooled clean transport,
// bounded retries on transient failures, no retry chatter on stdout.
func newRetryingClient() *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = cleanhttp.DefaultPooledClient()
	rc.RetryMax = 3
	rc.Logger = nil
	return rc
}

// StoreURL returns the normalized base URL of the store.
func (c *Client) StoreURL() string {
	return c.storeURL
}

// get issues an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// post issues an authenticated POST with a JSON body and decodes the JSON
// response into out.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain bearer token: %w", err)
	}

	u := c.storeURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response for %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response for %s: %w", path, err)
	}
	return nil
}

// APIError is a non-2xx response from the source API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}
