// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the authenticated HTTP client for the shopchat
// backend.
//
// All feature code funnels its requests through Client.Do, which owns the
// header contract (bearer auth, Content-Type rules), response normalization
// (JSON, raw text, or empty), and the 401 session-teardown side effect.
// Views never build requests themselves.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/shopchat/shopchat-tui/internal/session"
)

// Configuration constants for the backend API.
const (
	// DefaultBaseURL is the default backend origin.
	DefaultBaseURL = "http://localhost:8010"

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// sharedHTTPClient is the pooled transport for all backend requests.
// No client-level timeout: callers bound requests with a context.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// Error variables for common backend errors.
var (
	// ErrUnauthorized indicates the backend rejected the token (HTTP 401).
	// The session has already been cleared when this is returned.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBadCredentials indicates login was rejected (wrong username or
	// password).
	ErrBadCredentials = errors.New("incorrect username or password")
)

// RequestError represents a non-2xx response other than 401.
type RequestError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("request failed (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("request failed (HTTP %d): %s", e.Status, body)
}

// =============================================================================
// CLIENT
// =============================================================================

// Client executes requests against the backend, attaching the stored bearer
// token and tearing the session down when the backend revokes it.
type Client struct {
	baseURL    string
	store      session.Store
	httpClient *http.Client
	limiter    *rate.Limiter
	verbose    bool
}

// NewClient creates a client for the given backend origin.
// The session store supplies the bearer token per request and receives the
// Clear() call on 401.
func NewClient(baseURL string, store session.Store) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		store:      store,
		httpClient: sharedHTTPClient,
	}
}

// WithHTTPClient sets a custom HTTP client (used by tests).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithRateLimit throttles outgoing requests to rps with the given burst.
// rps <= 0 disables the limiter.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = nil
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithVerbose logs one line per request to stderr. Never logs the token
// or request bodies.
func (c *Client) WithVerbose(v bool) *Client {
	c.verbose = v
	return c
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// resolveURL joins a path to the backend origin unless it is already
// absolute.
func (c *Client) resolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// hasBodyMethod reports whether the method carries Content-Type even without
// a body.
func hasBodyMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// do executes one request and returns the raw 2xx body.
//
// Header contract:
//   - Authorization: Bearer <token> whenever the session holds a token
//   - Content-Type: application/json only for POST/PUT/PATCH or when a
//     body is present; a bodiless GET/DELETE carries no Content-Type
//
// On 401 the session is cleared before ErrUnauthorized is returned, so no
// caller can observe a rejected token that still looks logged in. Any other
// non-2xx becomes a RequestError. Never retries; the context is the only
// timeout.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolveURL(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil || hasBodyMethod(method) {
		if contentType == "" {
			contentType = "application/json"
		}
		req.Header.Set("Content-Type", contentType)
	}

	if token := c.store.Get().Token; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.httpClient.Do(req)

	// Drop the credential from the request object so it cannot leak
	// through error values that embed the request.
	req.Header.Del("Authorization")

	if err != nil {
		if c.verbose {
			log.Printf("api: %s %s failed after %s: %v", method, path, time.Since(start).Round(time.Millisecond), err)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if c.verbose {
		log.Printf("api: %s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))
	}

	raw, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if clearErr := c.store.Clear(); clearErr != nil {
			return nil, fmt.Errorf("%w (session clear failed: %v)", ErrUnauthorized, clearErr)
		}
		return nil, ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Status: resp.StatusCode, Body: string(raw)}
	}

	return raw, nil
}

// Do executes a request and decodes the response into out.
//
// Outcome normalization, in order:
//   - 204 or empty body: out is left at its zero value, no error
//   - valid JSON: decoded into out
//   - invalid JSON with out being *string: the raw text is assigned
//     (some endpoints return bare strings on success)
//
// body may be nil (no body), a []byte (pre-serialized), or any
// JSON-serializable value. out may be nil to discard the response.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	switch b := body.(type) {
	case nil:
	case []byte:
		payload = b
	default:
		var err error
		payload, err = json.Marshal(b)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	raw, err := c.do(ctx, method, path, payload, "")
	if err != nil {
		return err
	}
	return decodeResponse(raw, out)
}

// DoForm executes a request with a form-encoded body. The backend's /token
// endpoint is the only form-encoded operation.
func (c *Client) DoForm(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	raw, err := c.do(ctx, method, path, []byte(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return err
	}
	return decodeResponse(raw, out)
}

// decodeResponse applies the empty/JSON/raw-text normalization to a 2xx
// body.
func decodeResponse(raw []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		if s, ok := out.(*string); ok {
			*s = string(raw)
			return nil
		}
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
