package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/findex/internal/domain/search"
	"github.com/kailas-cloud/findex/internal/domain/search/filter"
	"github.com/kailas-cloud/findex/internal/domain/search/source"
)

// Query is the parameter set shared by the search strategies.
type Query struct {
	Text          string // normalized query text
	Embedding     pgvector.Vector
	Sources       []source.Source
	Filters       filter.Set
	MinSimilarity float64
	Limit         int
	Offset        int
	PrincipalID   string
}

// Repository runs the direct database strategies against the documents
// table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a search repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases the pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// argList collects positional query arguments and hands out placeholders.
type argList struct {
	args []any
}

func (a *argList) add(v any) string {
	a.args = append(a.args, v)
	return "$" + strconv.Itoa(len(a.args))
}

func sourceStrings(sources []source.Source) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = s.String()
	}
	return out
}

// baseClauses renders the WHERE fragments every strategy shares: source
// membership, principal visibility, and the structured filters.
func baseClauses(a *argList, q Query) []string {
	clauses := []string{
		"d.source = ANY(" + a.add(sourceStrings(q.Sources)) + ")",
		"(d.access IN ('team', 'public') OR d.owner_id = " + a.add(q.PrincipalID) + ")",
	}
	return append(clauses, filterClauses(a, q.Filters)...)
}

func filterClauses(a *argList, f filter.Set) []string {
	var clauses []string
	if v := f.DateFrom(); v != nil {
		clauses = append(clauses, "d.occurred_at >= "+a.add(*v))
	}
	if v := f.DateTo(); v != nil {
		clauses = append(clauses, "d.occurred_at <= "+a.add(*v))
	}
	if v := f.AmountMin(); v != nil {
		clauses = append(clauses, "d.amount >= "+a.add(*v))
	}
	if v := f.AmountMax(); v != nil {
		clauses = append(clauses, "d.amount <= "+a.add(*v))
	}
	if v := f.Merchants(); len(v) > 0 {
		clauses = append(clauses, "lower(d.merchant) = ANY("+a.add(v)+")")
	}
	if v := f.Categories(); len(v) > 0 {
		clauses = append(clauses, "lower(d.category) = ANY("+a.add(v)+")")
	}
	return clauses
}

func whereSQL(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(clauses, " AND ")
}

// resultColumns is the scan order every strategy query must project.
const resultColumns = `
	d.id, d.source, d.source_id, d.content_type, d.title,
	coalesce(d.description, ''), d.metadata, d.access, d.owner_id,
	d.created_at, d.updated_at`

func scanResults(rows pgx.Rows) ([]search.Result, error) {
	defer rows.Close()

	var out []search.Result
	for rows.Next() {
		var (
			res search.Result
			src string
			raw []byte
		)
		if err := rows.Scan(
			&res.ID, &src, &res.SourceID, &res.ContentType, &res.Title,
			&res.Description, &raw, &res.Access, &res.OwnerID,
			&res.CreatedAt, &res.UpdatedAt, &res.Similarity,
		); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		res.Source = source.Source(src)
		res.RawSimilarity = res.Similarity
		if len(raw) > 0 {
			meta, err := search.DecodeMetadata(res.Source, json.RawMessage(raw))
			if err != nil {
				return nil, fmt.Errorf("decode %s metadata: %w", res.Source, err)
			}
			res.Metadata = meta
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}
	return out, nil
}
