// Package backend is the HTTP client for the chat-style-conversion backend:
// style conversion, vector-store collection management, similarity search,
// streamed vector uploads and the OpenAPI document.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/stylectl/pkg/logger"
	"github.com/papercomputeco/stylectl/pkg/utils"
)

const (
	// DefaultAPIPrefix is the path prefix of every versioned backend route.
	DefaultAPIPrefix = "/api/v1"

	// RequestIDHeader carries the client-generated id of each request.
	RequestIDHeader = "X-Request-ID"
)

// Config wires the backend location, credentials and transport.
type Config struct {
	// BaseURL is the backend root, e.g. "http://localhost:8000".
	BaseURL string

	// APIPrefix is prepended to versioned routes. Defaults to DefaultAPIPrefix.
	APIPrefix string

	// Token is sent as "Authorization: Bearer <token>" when non-empty.
	Token string

	// HTTPClient defaults to a client without timeout, since uploads stream
	// for as long as the backend is embedding.
	HTTPClient *http.Client

	// UserAgent defaults to "stylectl/<version>".
	UserAgent string

	// Logger defaults to a no-op logger.
	Logger *slog.Logger

	// Retry controls retries of idempotent requests and of uploads that
	// fail before streaming starts.
	Retry RetryConfig
}

// Client talks to one backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiPrefix  string
	token      string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
	retry      RetryConfig
}

// NewClient validates the configuration and returns a ready-to-use Client.
func NewClient(cfg Config) (*Client, error) {
	base, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	prefix := strings.TrimSpace(cfg.APIPrefix)
	if prefix == "" {
		prefix = DefaultAPIPrefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	prefix = strings.TrimSuffix(prefix, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = "stylectl/" + utils.Version
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		baseURL:    base,
		apiPrefix:  prefix,
		token:      strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(cfg.Token), "Bearer ")),
		userAgent:  ua,
		httpClient: httpClient,
		logger:     log,
		retry:      cfg.Retry.normalized(),
	}, nil
}

// BaseURL returns the normalized backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("backend: base URL required")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("backend: invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("backend: base URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("backend: base URL %q missing host", raw)
	}

	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/"), nil
}

// apiURL builds the URL of a versioned route.
func (c *Client) apiURL(path string, query url.Values) string {
	return c.rootURL(c.apiPrefix+path, query)
}

// rootURL builds the URL of a route outside the versioned prefix.
func (c *Client) rootURL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return req, nil
}

// send executes req and converts error statuses into *APIError. The caller
// owns the returned body.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	requestID := req.Header.Get(RequestIDHeader)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed",
			"method", req.Method,
			"url", req.URL.String(),
			"request_id", requestID,
			"error", err,
		)
		return nil, fmt.Errorf("connecting to backend at %s: %w", c.baseURL, err)
	}

	c.logger.Debug("backend request",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp, requestID)
	}

	return resp, nil
}

// doJSON performs a JSON request and decodes the response into out. GET
// requests are retried according to the client's RetryConfig.
func (c *Client) doJSON(ctx context.Context, method, target string, payload, out any) error {
	var encoded []byte
	if payload != nil {
		var err error
		encoded, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts = c.retry.MaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.retry.wait(ctx, attempt); err != nil {
			return err
		}

		var body io.Reader
		if encoded != nil {
			body = bytes.NewReader(encoded)
		}

		req, err := c.newRequest(ctx, method, target, body)
		if err != nil {
			return err
		}
		if encoded != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		lastErr = c.roundTrip(req, out)
		if lastErr == nil || !isRetryable(ctx, lastErr) {
			return lastErr
		}

		c.logger.Warn("retrying backend request",
			"method", method,
			"url", target,
			"attempt", attempt,
			"error", lastErr,
		)
	}

	return lastErr
}

func (c *Client) roundTrip(req *http.Request, out any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing response from %s: %w", req.URL.Path, err)
	}
	return nil
}
