// Package search defines the request/response model of the search engine.
package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/findex/internal/domain"
	"github.com/kailas-cloud/findex/internal/domain/search/filter"
	"github.com/kailas-cloud/findex/internal/domain/search/source"
)

// Request limits.
const (
	MaxQueryLength = 4096
	DefaultLimit   = 20
	MaxLimit       = 500
)

// Aggregation selects how a strategy orders candidates before ranking.
type Aggregation string

// Aggregation modes.
const (
	AggRelevance Aggregation = "relevance"
	AggDiversity Aggregation = "diversity"
	AggRecency   Aggregation = "recency"
)

// Strategy names recorded in response metadata.
const (
	StrategyCache        = "cache"
	StrategySemantic     = "semantic_endpoint"
	StrategyDatabase     = "database_search"
	StrategyTemporal     = "temporal_database_search"
	FallbackRelaxedCache = "relaxed_cache"
	FallbackKeyword      = "basic_keyword"
	FallbackRecent       = "recent_results"
)

// Request is a search query. It is treated as immutable once handed to the
// orchestrator; the optimizer returns an adjusted copy instead of mutating it.
type Request struct {
	Query         string
	Sources       []source.Source
	Filters       filter.Set
	MinSimilarity float64
	Limit         int
	Offset        int
	PrincipalID   string
	// Aggregation is filled in by the optimizer, not the caller, and tells
	// remote strategies how to order candidates before ranking.
	Aggregation Aggregation
}

// NewRequest validates and normalizes a search request.
func NewRequest(
	query string, sources []source.Source, filters filter.Set,
	minSimilarity float64, limit, offset int, principalID string,
) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrMalformedRequest)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrMalformedRequest, MaxQueryLength)
	}
	if minSimilarity < 0 || minSimilarity > 1 {
		return Request{}, fmt.Errorf("%w: min_similarity must be between 0 and 1", domain.ErrMalformedRequest)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Request{
		Query:         query,
		Sources:       source.Normalize(sources),
		Filters:       filters,
		MinSimilarity: minSimilarity,
		Limit:         limit,
		Offset:        offset,
		PrincipalID:   principalID,
	}, nil
}

// AccessLevel tags who may see a result.
type AccessLevel string

// Access levels.
const (
	AccessPrivate AccessLevel = "private"
	AccessTeam    AccessLevel = "team"
	AccessPublic  AccessLevel = "public"
)

// Metadata is the per-source payload of a result. The closed set of
// implementations lets ranking and formatting switch exhaustively instead
// of digging through untyped maps.
type Metadata interface {
	isMetadata()
}

// ReceiptMetadata describes a receipt hit.
type ReceiptMetadata struct {
	Merchant    string    `json:"merchant"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	PurchasedAt time.Time `json:"purchased_at"`
}

func (ReceiptMetadata) isMetadata() {}

// MerchantMetadata describes a merchant-directory hit.
type MerchantMetadata struct {
	BusinessName string `json:"business_name"`
	Category     string `json:"category"`
	Website      string `json:"website,omitempty"`
}

func (MerchantMetadata) isMetadata() {}

// CategoryMetadata describes a category hit.
type CategoryMetadata struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

func (CategoryMetadata) isMetadata() {}

// AttachmentMetadata describes an uploaded-attachment hit.
type AttachmentMetadata struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	OCR      bool   `json:"ocr"`
}

func (AttachmentMetadata) isMetadata() {}

// Result is a single search hit. Similarity starts as the raw strategy
// score; the ranking engine overwrites it with the final score and keeps
// the original in RawSimilarity.
type Result struct {
	ID            string
	Source        source.Source
	SourceID      string
	ContentType   string
	Title         string
	Description   string
	Similarity    float64
	RawSimilarity float64
	Metadata      Metadata
	Access        AccessLevel
	OwnerID       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Pagination describes where the result window sits in the full result set.
type Pagination struct {
	HasMore    bool `json:"has_more"`
	NextOffset int  `json:"next_offset"`
	TotalPages int  `json:"total_pages"`
}

// ResponseMetadata records how a response was produced.
type ResponseMetadata struct {
	DurationMs      int64           `json:"duration_ms"`
	SourcesSearched []source.Source `json:"sources_searched"`
	Strategy        string          `json:"strategy"`
	FallbacksUsed   []string        `json:"fallbacks_used,omitempty"`
	Ranked          bool            `json:"ranked"`
}

// Response is the single outcome type of a search. Success stays true for
// empty and degraded results; only a failure to construct any response at
// all sets it to false.
type Response struct {
	Success    bool             `json:"success"`
	Results    []Result         `json:"results"`
	Total      int              `json:"total"`
	Pagination Pagination       `json:"pagination"`
	Metadata   ResponseMetadata `json:"metadata"`
	Error      string           `json:"error,omitempty"`
}

// NewPagination derives a pagination descriptor from a request window and
// the total number of matching results.
func NewPagination(limit, offset, total int) Pagination {
	if limit <= 0 {
		limit = DefaultLimit
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return Pagination{
		HasMore:    offset+limit < total,
		NextOffset: offset + limit,
		TotalPages: pages,
	}
}
