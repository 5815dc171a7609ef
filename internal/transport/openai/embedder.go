// Package openai adapts an OpenAI-compatible embeddings API into the query
// embedder the database strategies need.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/domain"
	"github.com/kailas-cloud/findex/internal/metrics"
)

const dependencyName = "embedding_api"

// Embedder computes query embeddings through an OpenAI-compatible API.
type Embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dims   int
	logger *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Logger     *zap.Logger
}

// NewEmbedder creates an embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  openai.EmbeddingModel(cfg.Model),
		dims:   cfg.Dimensions,
		logger: logger,
	}
}

// Embed returns the embedding vector for one query string.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dims > 0 {
		req.Dimensions = e.dims
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.DependencyCallsTotal.WithLabelValues(dependencyName, "error").Inc()
		e.logger.Warn("embedding request failed", zap.Error(err))
		return nil, classifyAPIError(err)
	}
	if len(resp.Data) == 0 {
		metrics.DependencyCallsTotal.WithLabelValues(dependencyName, "error").Inc()
		return nil, fmt.Errorf("empty embedding response: %w", domain.ErrNetwork)
	}

	metrics.DependencyCallsTotal.WithLabelValues(dependencyName, "success").Inc()
	metrics.DependencyCallDuration.WithLabelValues(dependencyName).Observe(duration.Seconds())

	return resp.Data[0].Embedding, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// classifyAPIError maps API failures onto the domain error taxonomy so the
// resilient caller can decide retryability.
func classifyAPIError(err error) error {
	status := 0

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		status = reqErr.HTTPStatusCode
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("embedding request: %w", domain.ErrTimeout)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("embedding API rejected credentials: %w", domain.ErrAuthentication)
	case status == http.StatusBadRequest:
		return fmt.Errorf("embedding API rejected request: %w", domain.ErrMalformedRequest)
	default:
		return fmt.Errorf("embedding API error: %w", domain.ErrNetwork)
	}
}
