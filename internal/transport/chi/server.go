// Package chi is the HTTP surface of the search engine.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/domain"
	"github.com/kailas-cloud/findex/internal/domain/search"
	"github.com/kailas-cloud/findex/internal/domain/search/filter"
	"github.com/kailas-cloud/findex/internal/domain/search/source"
	"github.com/kailas-cloud/findex/internal/metrics"
	healthuc "github.com/kailas-cloud/findex/internal/usecase/health"
)

// Searcher is the orchestrator contract the server exposes over HTTP.
type Searcher interface {
	Search(ctx context.Context, req search.Request, principal domain.Principal) *search.Response
}

// Server serves the search API.
type Server struct {
	searcher Searcher
	health   *healthuc.Service
	logger   *zap.Logger
}

// NewServer creates the HTTP API server.
func NewServer(searcher Searcher, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{searcher: searcher, health: health, logger: logger}
}

// Router builds the chi router with auth and metrics middleware.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chirouter.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(s.logger))
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(apiKeys))

	r.Post("/v1/search", s.handleSearch)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	return r
}

// searchRequestDTO is the JSON body of POST /v1/search.
type searchRequestDTO struct {
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

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var dto searchRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	principalID := r.Header.Get("X-Principal-ID")
	if principalID == "" {
		principalID = "anonymous"
	}

	req, err := requestFromDTO(dto, principalID)
	if err != nil {
		s.logger.Debug("rejected search request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "validation_failed", safeMessage(err))
		return
	}

	principal := domain.NewPrincipal(principalID, domain.Tier(dto.Tier))
	resp := s.searcher.Search(r.Context(), req, principal)

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func requestFromDTO(dto searchRequestDTO, principalID string) (search.Request, error) {
	sources := make([]source.Source, 0, len(dto.Sources))
	for _, raw := range dto.Sources {
		src := source.Source(raw)
		if !src.IsValid() {
			return search.Request{}, errors.New("unknown source: " + raw)
		}
		sources = append(sources, src)
	}

	filters, err := filter.New(
		dto.DateFrom, dto.DateTo,
		dto.AmountMin, dto.AmountMax,
		dto.Merchants, dto.Categories,
	)
	if err != nil {
		return search.Request{}, err
	}

	return search.NewRequest(
		dto.Query, sources, filters,
		dto.MinSimilarity, dto.Limit, dto.Offset, principalID,
	)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeMessage keeps validation detail but never leaks internals.
func safeMessage(err error) string {
	if errors.Is(err, domain.ErrMalformedRequest) {
		return err.Error()
	}
	if err != nil && len(err.Error()) < 200 {
		return err.Error()
	}
	return "invalid request"
}
