package orchestrator

import (
	"context"

	"github.com/kailas-cloud/findex/internal/cache"
	"github.com/kailas-cloud/findex/internal/domain"
	"github.com/kailas-cloud/findex/internal/domain/search"
	"github.com/kailas-cloud/findex/internal/optimizer"
	"github.com/kailas-cloud/findex/internal/rank"
)

// Optimizer tunes a raw request before execution.
type Optimizer interface {
	Optimize(req search.Request, tier domain.Tier) optimizer.Optimized
}

// Cache is the multi-tier response cache contract.
type Cache interface {
	Get(ctx context.Context, req search.Request) (*cache.Hit, bool)
	RelaxedGet(ctx context.Context, req search.Request, factor float64) (*search.Response, bool)
	Set(ctx context.Context, req search.Request, resp *search.Response) error
	SetPredictive(ctx context.Context, req search.Request, resp *search.Response) error
	Candidates(req search.Request) []search.Request
}

// Ranker orders merged results.
type Ranker interface {
	Rank(ctx rank.Context, results []search.Result) ([]search.Result, []rank.Score)
}

// SemanticSearcher is the remote semantic endpoint (collaborator A).
type SemanticSearcher interface {
	Search(ctx context.Context, req search.Request) ([]search.Result, error)
}

// DatabaseSearcher runs the direct database strategies (collaborator B).
// The normalized query text drives full-text matching; the embedding, when
// present, drives vector similarity.
type DatabaseSearcher interface {
	Hybrid(ctx context.Context, req search.Request, text string, embedding []float32) ([]search.Result, error)
	Keyword(ctx context.Context, req search.Request, text string) ([]search.Result, error)
	Temporal(ctx context.Context, req search.Request, text string) ([]search.Result, error)
	Recent(ctx context.Context, principalID string, limit int) ([]search.Result, error)
}

// Embedder vectorizes query text for the database hybrid strategy.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
