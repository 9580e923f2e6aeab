// Package client implements the authenticated HTTP client for the taskdeck
// REST API.
//
// Every request resolves a short-lived bearer token from the configured
// TokenSource and attaches it as an Authorization header. Failures surface as
// uniform errors: ErrNoToken when no credential is available, ErrConflict for
// version conflicts, and *APIError for any other non-2xx status. The client
// performs no retries; reconciliation after a failed mutation is the
// coordinator's responsibility.
package client

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
)

const (
	// APITimeout bounds each individual API call.
	APITimeout = 10 * time.Second
)

// TokenSource supplies bearer tokens for API calls. The auth collaborator is
// consumed as an opaque capability; the client never inspects the token.
type TokenSource interface {
	// Token returns the current bearer token, or an error when no valid
	// credential is available.
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token. Used by the CLI with
// its cached credential and by tests.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}

// Client talks to the taskdeck REST API.
type Client struct {
	baseURL string
	tokens  TokenSource
	httpc   *http.Client
}

// New creates a client for the API at baseURL.
func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpc:   &http.Client{},
	}
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL string, tokens TokenSource, httpc *http.Client) *Client {
	c := New(baseURL, tokens)
	c.httpc = httpc
	return c
}

// do issues one authenticated request and decodes the JSON response body into
// out (skipped when out is nil or the response has no content).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.tokens == nil {
		return ErrNoToken
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return ErrNoToken
	}
	return c.roundTrip(ctx, method, path, token, body, out)
}

// doUnauthenticated issues one request without a bearer token. Only the auth
// endpoints (register, login) use this path.
func (c *Client) doUnauthenticated(ctx context.Context, method, path string, body, out any) error {
	return c.roundTrip(ctx, method, path, "", body, out)
}

func (c *Client) roundTrip(ctx context.Context, method, path, token string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage extracts a human-readable message from an error body of the
// form {"error": "..."} or {"detail": "..."}, falling back to the raw body.
func errorMessage(data []byte) string {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	return strings.TrimSpace(string(data))
}

func queryInt(name string, value int) string {
	return "?" + url.Values{name: []string{fmt.Sprint(value)}}.Encode()
}
