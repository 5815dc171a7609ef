package postgres

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/findex/internal/domain/search"
)

// SemanticSearch runs a pure vector similarity scan ordered by cosine
// distance. Rows below the similarity bar are filtered server-side.
func (r *Repository) SemanticSearch(ctx context.Context, q Query) ([]search.Result, error) {
	var a argList
	emb := a.add(q.Embedding)
	clauses := baseClauses(&a, q)
	clauses = append(clauses, "1 - (d.embedding <=> "+emb+") >= "+a.add(q.MinSimilarity))

	sql := fmt.Sprintf(`
		SELECT %s, 1 - (d.embedding <=> %s) AS similarity
		FROM documents d
		%s
		ORDER BY d.embedding <=> %s
		LIMIT %s OFFSET %s`,
		resultColumns, emb, whereSQL(clauses), emb, a.add(q.Limit), a.add(q.Offset))

	rows, err := r.pool.Query(ctx, sql, a.args...)
	if err != nil {
		return nil, fmt.Errorf("semantic search query: %w", err)
	}
	return scanResults(rows)
}

// KeywordSearch runs a full-text query with ts_rank scoring, capped to the
// [0,1] similarity scale.
func (r *Repository) KeywordSearch(ctx context.Context, q Query) ([]search.Result, error) {
	var a argList
	tsq := "websearch_to_tsquery('simple', " + a.add(q.Text) + ")"
	clauses := baseClauses(&a, q)
	clauses = append(clauses, "d.tsv @@ "+tsq)

	sql := fmt.Sprintf(`
		SELECT %s, LEAST(ts_rank(d.tsv, %s), 1.0) AS similarity
		FROM documents d
		%s
		ORDER BY similarity DESC, d.created_at DESC
		LIMIT %s OFFSET %s`,
		resultColumns, tsq, whereSQL(clauses), a.add(q.Limit), a.add(q.Offset))

	rows, err := r.pool.Query(ctx, sql, a.args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search query: %w", err)
	}
	return scanResults(rows)
}

// HybridSearch blends vector similarity (70%) with full-text rank (30%).
// A row qualifies through either channel; the blended score must clear the
// similarity bar.
func (r *Repository) HybridSearch(ctx context.Context, q Query) ([]search.Result, error) {
	var a argList
	emb := a.add(q.Embedding)
	tsq := "websearch_to_tsquery('simple', " + a.add(q.Text) + ")"
	clauses := baseClauses(&a, q)

	score := fmt.Sprintf(
		"0.7 * (1 - (d.embedding <=> %s)) + 0.3 * LEAST(ts_rank(d.tsv, %s), 1.0)", emb, tsq)

	sql := fmt.Sprintf(`
		SELECT * FROM (
			SELECT %s, %s AS similarity
			FROM documents d
			%s
		) scored
		WHERE similarity >= %s
		ORDER BY similarity DESC
		LIMIT %s OFFSET %s`,
		resultColumns, score, whereSQL(clauses),
		a.add(q.MinSimilarity), a.add(q.Limit), a.add(q.Offset))

	rows, err := r.pool.Query(ctx, sql, a.args...)
	if err != nil {
		return nil, fmt.Errorf("hybrid search query: %w", err)
	}
	return scanResults(rows)
}

// TemporalSearch answers date-anchored queries: the structured date range
// does the narrowing and recency does the ordering, with full-text rank as
// the score when the query text matches.
func (r *Repository) TemporalSearch(ctx context.Context, q Query) ([]search.Result, error) {
	var a argList
	tsq := "websearch_to_tsquery('simple', " + a.add(q.Text) + ")"
	clauses := baseClauses(&a, q)

	sql := fmt.Sprintf(`
		SELECT %s,
			CASE WHEN d.tsv @@ %s
				THEN GREATEST(LEAST(ts_rank(d.tsv, %s), 1.0), 0.5)
				ELSE 0.5
			END AS similarity
		FROM documents d
		%s
		ORDER BY d.occurred_at DESC NULLS LAST, d.created_at DESC
		LIMIT %s OFFSET %s`,
		resultColumns, tsq, tsq, whereSQL(clauses), a.add(q.Limit), a.add(q.Offset))

	rows, err := r.pool.Query(ctx, sql, a.args...)
	if err != nil {
		return nil, fmt.Errorf("temporal search query: %w", err)
	}
	return scanResults(rows)
}

// RecentForPrincipal returns the principal's own latest documents. Last
// resort of the fallback chain; the constant similarity keeps the results
// below anything a real strategy produced.
func (r *Repository) RecentForPrincipal(ctx context.Context, principalID string, limit int) ([]search.Result, error) {
	var a argList
	sql := fmt.Sprintf(`
		SELECT %s, 0.3::float8 AS similarity
		FROM documents d
		WHERE d.owner_id = %s
		ORDER BY d.created_at DESC
		LIMIT %s`,
		resultColumns, a.add(principalID), a.add(limit))

	rows, err := r.pool.Query(ctx, sql, a.args...)
	if err != nil {
		return nil, fmt.Errorf("recent documents query: %w", err)
	}
	return scanResults(rows)
}
