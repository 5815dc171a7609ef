package postgres

import (
	"context"

	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/findex/internal/domain/search"
)

// queryFrom maps a domain request onto the SQL parameter set.
func queryFrom(req search.Request, text string, embedding []float32) Query {
	q := Query{
		Text:          text,
		Sources:       req.Sources,
		Filters:       req.Filters,
		MinSimilarity: req.MinSimilarity,
		Limit:         req.Limit,
		Offset:        req.Offset,
		PrincipalID:   req.PrincipalID,
	}
	if len(embedding) > 0 {
		q.Embedding = pgvector.NewVector(embedding)
	}
	return q
}

// Hybrid runs the blended vector + full-text strategy.
func (r *Repository) Hybrid(ctx context.Context, req search.Request, text string, embedding []float32) ([]search.Result, error) {
	return r.HybridSearch(ctx, queryFrom(req, text, embedding))
}

// Keyword runs the full-text strategy.
func (r *Repository) Keyword(ctx context.Context, req search.Request, text string) ([]search.Result, error) {
	return r.KeywordSearch(ctx, queryFrom(req, text, nil))
}

// Temporal runs the date-anchored strategy.
func (r *Repository) Temporal(ctx context.Context, req search.Request, text string) ([]search.Result, error) {
	return r.TemporalSearch(ctx, queryFrom(req, text, nil))
}

// Recent returns the principal's latest documents.
func (r *Repository) Recent(ctx context.Context, principalID string, limit int) ([]search.Result, error) {
	return r.RecentForPrincipal(ctx, principalID, limit)
}
