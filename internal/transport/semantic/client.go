// Package semantic is the HTTP client of the remote semantic search
// endpoint, the primary contender in the orchestrator's strategy race.
package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/domain"
	"github.com/kailas-cloud/findex/internal/domain/search"
	"github.com/kailas-cloud/findex/internal/domain/search/source"
)

// sharedTransport is reused by every client instance so connection pools
// survive reconfiguration.
var sharedTransport = &http.Transport{
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     120 * time.Second,
}

// Config holds the endpoint settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client calls the remote semantic search endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates an endpoint client on the shared transport.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout, Transport: sharedTransport},
		logger:  logger,
	}
}

type searchRequestBody struct {
	Query         string          `json:"query"`
	Sources       []source.Source `json:"sources"`
	MinSimilarity float64         `json:"min_similarity"`
	Limit         int             `json:"limit"`
	Offset        int             `json:"offset"`
	PrincipalID   string          `json:"principal_id"`
	Aggregation   string          `json:"aggregation,omitempty"`
	DateFrom      *time.Time      `json:"date_from,omitempty"`
	DateTo        *time.Time      `json:"date_to,omitempty"`
	Merchants     []string        `json:"merchants,omitempty"`
	Categories    []string        `json:"categories,omitempty"`
	AmountMin     *float64        `json:"amount_min,omitempty"`
	AmountMax     *float64        `json:"amount_max,omitempty"`
}

type searchResponseBody struct {
	Results []search.Result `json:"results"`
}

// Search runs one remote semantic search.
func (c *Client) Search(ctx context.Context, req search.Request) ([]search.Result, error) {
	body := searchRequestBody{
		Query:         req.Query,
		Sources:       req.Sources,
		MinSimilarity: req.MinSimilarity,
		Limit:         req.Limit,
		Offset:        req.Offset,
		PrincipalID:   req.PrincipalID,
		Aggregation:   string(req.Aggregation),
		DateFrom:      req.Filters.DateFrom(),
		DateTo:        req.Filters.DateTo(),
		Merchants:     req.Filters.Merchants(),
		Categories:    req.Filters.Categories(),
		AmountMin:     req.Filters.AmountMin(),
		AmountMax:     req.Filters.AmountMax(),
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/semantic/search", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("semantic endpoint: %w", domain.ErrTimeout)
		}
		return nil, fmt.Errorf("semantic endpoint unreachable: %w", domain.ErrNetwork)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection returns to the pool.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, statusError(resp.StatusCode)
	}

	var parsed searchResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode semantic response: %w", domain.ErrNetwork)
	}
	return parsed.Results, nil
}

// Ping checks endpoint liveness.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("semantic endpoint health: %w", domain.ErrNetwork)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode)
	}
	return nil
}

// statusError maps HTTP statuses onto the domain error taxonomy. Client
// errors are terminal; server errors count as retryable network failures.
func statusError(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("semantic endpoint status %d: %w", status, domain.ErrAuthentication)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return fmt.Errorf("semantic endpoint status %d: %w", status, domain.ErrMalformedRequest)
	case status == http.StatusNotFound:
		return fmt.Errorf("semantic endpoint status %d: %w", status, domain.ErrNotFound)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("semantic endpoint status %d: %w", status, domain.ErrNetwork)
	default:
		return fmt.Errorf("semantic endpoint status %d: %w", status, domain.ErrInfrastructure)
	}
}
