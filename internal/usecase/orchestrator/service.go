// Package orchestrator runs a search request through cache, racing
// strategies and the fallback chain, always producing a well-formed
// response.
package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/domain"
	"github.com/kailas-cloud/findex/internal/domain/search"
	"github.com/kailas-cloud/findex/internal/metrics"
	"github.com/kailas-cloud/findex/internal/nlquery"
	"github.com/kailas-cloud/findex/internal/optimizer"
	"github.com/kailas-cloud/findex/internal/rank"
	"github.com/kailas-cloud/findex/internal/resilience"
)

// Config tunes the orchestration flow.
type Config struct {
	// RaceWindow is how long the first strategy to succeed wins outright.
	RaceWindow time.Duration
	// RelaxFactor scales the similarity threshold down for the relaxed
	// cache fallback.
	RelaxFactor float64
	// BackgroundTimeout bounds detached work (cache writes, prefetch).
	BackgroundTimeout time.Duration
	// PrefetchCandidates caps how many predicted follow-ups are prefetched
	// after a cache miss. 0 disables prefetching.
	PrefetchCandidates int
}

// DefaultConfig returns production orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		RaceWindow:         150 * time.Millisecond,
		RelaxFactor:        0.5,
		BackgroundTimeout:  5 * time.Second,
		PrefetchCandidates: 2,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.RaceWindow <= 0 {
		c.RaceWindow = def.RaceWindow
	}
	if c.RelaxFactor <= 0 || c.RelaxFactor > 1 {
		c.RelaxFactor = def.RelaxFactor
	}
	if c.BackgroundTimeout <= 0 {
		c.BackgroundTimeout = def.BackgroundTimeout
	}
	return c
}

// Service is the strategy orchestrator.
type Service struct {
	cfg        Config
	optimizer  Optimizer
	cache      Cache
	ranker     Ranker
	normalizer nlquery.Normalizer
	semantic   SemanticSearcher
	db         DatabaseSearcher
	embed      Embedder

	semanticCaller *resilience.Caller
	dbCaller       *resilience.Caller

	logger *zap.Logger
}

// New creates the orchestrator.
func New(
	cfg Config,
	opt Optimizer, c Cache, ranker Ranker, normalizer nlquery.Normalizer,
	semantic SemanticSearcher, db DatabaseSearcher, embed Embedder,
	semanticCaller, dbCaller *resilience.Caller,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:            cfg.withDefaults(),
		optimizer:      opt,
		cache:          c,
		ranker:         ranker,
		normalizer:     normalizer,
		semantic:       semantic,
		db:             db,
		embed:          embed,
		semanticCaller: semanticCaller,
		dbCaller:       dbCaller,
		logger:         logger,
	}
}

// outcome is one strategy's settled result.
type outcome struct {
	strategy string
	results  []search.Result
	err      error
}

// Search produces a response for req. It never returns an error and never
// panics past this boundary: an unrecoverable failure comes back as a
// well-formed response with success=false.
func (s *Service) Search(ctx context.Context, req search.Request, principal domain.Principal) (resp *search.Response) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("search panicked", zap.Any("panic", r), zap.String("query", req.Query))
			metrics.SearchRequestsTotal.WithLabelValues("none", "panic").Inc()
			resp = &search.Response{
				Success: false,
				Results: []search.Result{},
				Error:   "internal search failure",
				Metadata: search.ResponseMetadata{
					DurationMs:      time.Since(start).Milliseconds(),
					SourcesSearched: req.Sources,
				},
			}
		}
	}()

	opt := s.optimizer.Optimize(req, principal.Tier)
	tuned := opt.Request
	norm := s.normalizer.Normalize(tuned.Query)

	if hit, ok := s.cache.Get(ctx, tuned); ok {
		resp := hit.Response
		resp.Metadata.Strategy = search.StrategyCache
		resp.Metadata.DurationMs = time.Since(start).Milliseconds()
		metrics.SearchRequestsTotal.WithLabelValues(search.StrategyCache, "success").Inc()
		metrics.SearchDuration.WithLabelValues(search.StrategyCache).Observe(time.Since(start).Seconds())
		return resp
	}
	s.prefetch(tuned)

	// Date-anchored queries route straight to the temporal strategy:
	// correctness there depends on exact date filtering, not on winning a
	// latency race. Its empty result is still a final answer.
	if tuned.Filters.HasDateRange() && norm.Temporal {
		results, err := resilience.Do(ctx, s.dbCaller, func(ctx context.Context) ([]search.Result, error) {
			return s.db.Temporal(ctx, tuned, norm.Text)
		})
		if err == nil {
			return s.finish(ctx, tuned, norm, opt.Profile, results, search.StrategyTemporal, nil, start)
		}
		s.logger.Warn("temporal strategy failed", zap.Error(err))
		return s.fallbacks(ctx, tuned, norm, opt.Profile, start)
	}

	if out, ok := s.race(ctx, tuned, norm); ok {
		return s.finish(ctx, tuned, norm, opt.Profile, out.results, out.strategy, nil, start)
	}
	return s.fallbacks(ctx, tuned, norm, opt.Profile, start)
}

// race launches the remote semantic and direct database strategies
// concurrently. Inside the race window the first success wins; after it,
// successes are accepted in priority order (semantic endpoint first). A
// strategy whose breaker is open is skipped without paying its timeout.
func (s *Service) race(ctx context.Context, req search.Request, norm nlquery.Normalized) (outcome, bool) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan outcome, 2)
	launched := 0

	if s.semantic != nil && !s.semanticCaller.Open() {
		launched++
		go func() {
			results, err := resilience.Do(raceCtx, s.semanticCaller, func(ctx context.Context) ([]search.Result, error) {
				return s.semantic.Search(ctx, req)
			})
			ch <- outcome{strategy: search.StrategySemantic, results: results, err: err}
		}()
	}
	if !s.dbCaller.Open() {
		launched++
		go func() {
			results, err := resilience.Do(raceCtx, s.dbCaller, func(ctx context.Context) ([]search.Result, error) {
				embedding, err := s.embed.Embed(ctx, norm.Text)
				if err != nil {
					// Vector channel unavailable; keyword matching still answers.
					return s.db.Keyword(ctx, req, norm.Text)
				}
				return s.db.Hybrid(ctx, req, norm.Text, embedding)
			})
			ch <- outcome{strategy: search.StrategyDatabase, results: results, err: err}
		}()
	}
	if launched == 0 {
		return outcome{}, false
	}

	window := time.NewTimer(s.cfg.RaceWindow)
	defer window.Stop()

	var dbWin *outcome
	windowOver := false
	for received := 0; received < launched; {
		select {
		case out := <-ch:
			received++
			if out.err != nil {
				s.logger.Warn("strategy failed",
					zap.String("strategy", out.strategy), zap.Error(out.err))
				continue
			}
			if !windowOver || out.strategy == search.StrategySemantic {
				cancel()
				return out, true
			}
			// A database success after the window waits for the higher
			// priority semantic strategy to settle.
			o := out
			dbWin = &o
		case <-window.C:
			windowOver = true
		case <-ctx.Done():
			return outcome{}, false
		}
	}
	if dbWin != nil {
		return *dbWin, true
	}
	return outcome{}, false
}

// fallbacks walks the degradation chain, stopping at the first non-empty
// result. An exhausted chain is still a successful, empty response.
func (s *Service) fallbacks(
	ctx context.Context, req search.Request, norm nlquery.Normalized,
	profile optimizer.Profile, start time.Time,
) *search.Response {
	var attempted []string

	attempted = append(attempted, search.FallbackRelaxedCache)
	if resp, ok := s.cache.RelaxedGet(ctx, req, s.cfg.RelaxFactor); ok {
		metrics.FallbacksTotal.WithLabelValues(search.FallbackRelaxedCache, "hit").Inc()
		resp.Metadata.Strategy = search.FallbackRelaxedCache
		resp.Metadata.FallbacksUsed = attempted
		resp.Metadata.DurationMs = time.Since(start).Milliseconds()
		metrics.SearchRequestsTotal.WithLabelValues(search.FallbackRelaxedCache, "success").Inc()
		return resp
	}
	metrics.FallbacksTotal.WithLabelValues(search.FallbackRelaxedCache, "miss").Inc()

	attempted = append(attempted, search.FallbackKeyword)
	results, err := resilience.Do(ctx, s.dbCaller, func(ctx context.Context) ([]search.Result, error) {
		return s.db.Keyword(ctx, req, norm.Text)
	})
	switch {
	case err != nil:
		metrics.FallbacksTotal.WithLabelValues(search.FallbackKeyword, "error").Inc()
		s.logger.Warn("keyword fallback failed", zap.Error(err))
	case len(results) > 0:
		metrics.FallbacksTotal.WithLabelValues(search.FallbackKeyword, "hit").Inc()
		return s.finish(ctx, req, norm, profile, results, search.FallbackKeyword, attempted, start)
	default:
		metrics.FallbacksTotal.WithLabelValues(search.FallbackKeyword, "miss").Inc()
	}

	attempted = append(attempted, search.FallbackRecent)
	results, err = resilience.Do(ctx, s.dbCaller, func(ctx context.Context) ([]search.Result, error) {
		return s.db.Recent(ctx, req.PrincipalID, req.Limit)
	})
	switch {
	case err != nil:
		metrics.FallbacksTotal.WithLabelValues(search.FallbackRecent, "error").Inc()
		s.logger.Warn("recent fallback failed", zap.Error(err))
	case len(results) > 0:
		metrics.FallbacksTotal.WithLabelValues(search.FallbackRecent, "hit").Inc()
		return s.finish(ctx, req, norm, profile, results, search.FallbackRecent, attempted, start)
	default:
		metrics.FallbacksTotal.WithLabelValues(search.FallbackRecent, "miss").Inc()
	}

	metrics.SearchRequestsTotal.WithLabelValues("none", "empty").Inc()
	return &search.Response{
		Success:    true,
		Results:    []search.Result{},
		Pagination: search.NewPagination(req.Limit, req.Offset, 0),
		Metadata: search.ResponseMetadata{
			DurationMs:      time.Since(start).Milliseconds(),
			SourcesSearched: req.Sources,
			FallbacksUsed:   attempted,
		},
	}
}

// finish ranks results synchronously, builds the response and schedules the
// cache write without blocking the return. Empty results skip both.
func (s *Service) finish(
	ctx context.Context, req search.Request, norm nlquery.Normalized,
	profile optimizer.Profile,
	results []search.Result, strategy string, fallbacksUsed []string, start time.Time,
) *search.Response {
	ranked := results
	if len(results) > 0 {
		ranked, _ = s.ranker.Rank(rank.Context{
			Query:          norm.Text,
			Terms:          norm.Terms,
			Language:       norm.Language,
			PrincipalID:    req.PrincipalID,
			SourceWeights:  profile.SourceWeights,
			ContentWeights: profile.ContentTypeWeights,
			BoostOverrides: profile.BoostFactors,
		}, results)
	}
	// Total and pagination describe the full ranked set, not the window
	// cut out of it.
	total := len(ranked)
	if total > req.Limit && req.Limit > 0 {
		ranked = ranked[:req.Limit]
	}

	resp := &search.Response{
		Success:    true,
		Results:    ranked,
		Total:      total,
		Pagination: search.NewPagination(req.Limit, req.Offset, total),
		Metadata: search.ResponseMetadata{
			DurationMs:      time.Since(start).Milliseconds(),
			SourcesSearched: req.Sources,
			Strategy:        strategy,
			FallbacksUsed:   fallbacksUsed,
			Ranked:          true,
		},
	}

	metrics.SearchRequestsTotal.WithLabelValues(strategy, "success").Inc()
	metrics.SearchDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())

	if len(ranked) > 0 {
		// Ranking already happened, so cached entries hold final scores.
		writeCtx := context.WithoutCancel(ctx)
		go func() {
			writeCtx, cancel := context.WithTimeout(writeCtx, s.cfg.BackgroundTimeout)
			defer cancel()
			if err := s.cache.Set(writeCtx, req, resp); err != nil {
				s.logger.Warn("cache write failed", zap.Error(err))
			}
		}()
	}
	return resp
}

// prefetch speculatively executes predicted follow-up queries after a cache
// miss and stores them in the predictive tier. Fully detached from the
// request path.
func (s *Service) prefetch(req search.Request) {
	if s.cfg.PrefetchCandidates <= 0 || s.dbCaller.Open() {
		return
	}
	candidates := s.cache.Candidates(req)
	if len(candidates) > s.cfg.PrefetchCandidates {
		candidates = candidates[:s.cfg.PrefetchCandidates]
	}
	for _, cand := range candidates {
		cand := cand
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.BackgroundTimeout)
			defer cancel()

			norm := s.normalizer.Normalize(cand.Query)
			results, err := resilience.Do(ctx, s.dbCaller, func(ctx context.Context) ([]search.Result, error) {
				return s.db.Keyword(ctx, cand, norm.Text)
			})
			if err != nil || len(results) == 0 {
				return
			}
			ranked, _ := s.ranker.Rank(rank.Context{
				Query:       norm.Text,
				Terms:       norm.Terms,
				Language:    norm.Language,
				PrincipalID: cand.PrincipalID,
			}, results)
			resp := &search.Response{
				Success:    true,
				Results:    ranked,
				Total:      len(ranked),
				Pagination: search.NewPagination(cand.Limit, cand.Offset, len(ranked)),
				Metadata: search.ResponseMetadata{
					SourcesSearched: cand.Sources,
					Strategy:        search.StrategyDatabase,
					Ranked:          true,
				},
			}
			if err := s.cache.SetPredictive(ctx, cand, resp); err != nil {
				s.logger.Debug("predictive store failed", zap.Error(err))
			}
		}()
	}
}
