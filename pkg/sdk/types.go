package findex

import (
	"encoding/json"
	"time"
)

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Query         string     `json:"query"`
	Sources       []string   `json:"sources,omitempty"`
	MinSimilarity float64    `json:"min_similarity,omitempty"`
	Limit         int        `json:"limit,omitempty"`
	Offset        int        `json:"offset,omitempty"`
	Tier          string     `json:"tier,omitempty"`
	DateFrom      *time.Time `json:"date_from,omitempty"`
	DateTo        *time.Time `json:"date_to,omitempty"`
	AmountMin     *float64   `json:"amount_min,omitempty"`
	AmountMax     *float64   `json:"amount_max,omitempty"`
	Merchants     []string   `json:"merchants,omitempty"`
	Categories    []string   `json:"categories,omitempty"`
}

// Result is one search hit. Metadata is source-specific and left raw;
// decode it by Source when needed.
type Result struct {
	ID            string          `json:"id"`
	Source        string          `json:"source"`
	SourceID      string          `json:"source_id"`
	ContentType   string          `json:"content_type"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Similarity    float64         `json:"similarity"`
	RawSimilarity float64         `json:"raw_similarity"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	Access        string          `json:"access"`
	OwnerID       string          `json:"owner_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Pagination describes where the result window sits in the full set.
type Pagination struct {
	HasMore    bool `json:"has_more"`
	NextOffset int  `json:"next_offset"`
	TotalPages int  `json:"total_pages"`
}

// ResponseMetadata records how the response was produced.
type ResponseMetadata struct {
	DurationMs      int64    `json:"duration_ms"`
	SourcesSearched []string `json:"sources_searched"`
	Strategy        string   `json:"strategy"`
	FallbacksUsed   []string `json:"fallbacks_used,omitempty"`
	Ranked          bool     `json:"ranked"`
}

// SearchResponse is the outcome of a search call.
type SearchResponse struct {
	Success    bool             `json:"success"`
	Results    []Result         `json:"results"`
	Total      int              `json:"total"`
	Pagination Pagination       `json:"pagination"`
	Metadata   ResponseMetadata `json:"metadata"`
	Error      string           `json:"error,omitempty"`
}

// HealthReport is the body of GET /health. Checks maps a dependency name
// to "ok" or "error".
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
