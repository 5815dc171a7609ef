package findex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors returned by the client. Use errors.Is() to check.
var (
	// ErrUnauthorized means the API key was missing or rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBadRequest means the server rejected the request as malformed.
	ErrBadRequest = errors.New("bad request")
	// ErrServer means the server answered with a 5xx status.
	ErrServer = errors.New("server error")
)

const defaultTimeout = 10 * time.Second

// Client talks to a findex API server.
type Client struct {
	baseURL   string
	apiKey    string
	principal string
	userAgent string
	http      *http.Client
}

// NewClient creates a client for the findex API at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	cfg := clientConfig{
		timeout:   defaultTimeout,
		userAgent: "findex-go-sdk",
	}
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    cfg.apiKey,
		principal: cfg.principal,
		userAgent: cfg.userAgent,
		http:      hc,
	}, nil
}

// Search executes a search query.
//
// A response with Success=false (the server degraded past all fallbacks)
// is returned as-is with a nil error; transport and protocol failures
// return an error instead.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// Health fetches the server health report. A degraded report is returned
// without an error; only transport failures error.
func (c *Client) Health(ctx context.Context) (*HealthReport, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("health request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read health response: %w", err)
	}

	var report HealthReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &report, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.principal != "" {
		req.Header.Set("X-Principal-ID", c.principal)
	}
	return req, nil
}

// do executes the request and maps non-2xx statuses onto sentinel errors.
// 500 is excluded: the search API reports internal failures inside a
// well-formed body, which the caller decodes.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, apiMessage(raw))
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, apiMessage(raw))
	case resp.StatusCode > http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	}
	return raw, nil
}

// apiMessage extracts the error message from an API error body.
func apiMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return "request rejected"
}
