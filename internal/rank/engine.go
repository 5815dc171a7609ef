package rank

import (
	"sort"
	"time"

	"github.com/kailas-cloud/findex/internal/domain/search"
	"github.com/kailas-cloud/findex/internal/domain/search/source"
	"github.com/kailas-cloud/findex/internal/nlquery"
)

// DefaultRecencyWindow bounds the linear recency boost.
const DefaultRecencyWindow = 7 * 24 * time.Hour

// Context carries what the pipeline knows about the query being ranked.
// The weight maps are per-request overlays from the optimizer's profile;
// a source, content type or boost listed there takes precedence over the
// engine's defaults, everything else falls through.
type Context struct {
	Query       string // normalized query text
	Terms       []string
	Language    nlquery.Language
	PrincipalID string
	Now         time.Time

	SourceWeights  map[source.Source]float64
	ContentWeights map[string]float64
	BoostOverrides map[string]float64
}

// Score explains how one result's final score came to be.
type Score struct {
	ResultID      string  `json:"result_id"`
	Base          float64 `json:"base"`
	SourceWeight  float64 `json:"source_weight"`
	ContentWeight float64 `json:"content_weight"`
	Boosts        []Boost `json:"boosts,omitempty"`
	Final         float64 `json:"final"`
}

// Config tunes the engine. Zero values fall back to defaults.
type Config struct {
	SourceWeights  map[source.Source]float64
	ContentWeights map[string]float64
	RecencyWindow  time.Duration
}

// Engine is the multiplicative ranking pipeline. It is stateless per call
// and safe for concurrent use.
type Engine struct {
	sourceWeights  map[source.Source]float64
	contentWeights map[string]float64
	crossLanguage  map[source.Source]bool
	recencyWindow  time.Duration
}

// New creates a ranking engine.
func New(cfg Config) *Engine {
	e := &Engine{
		sourceWeights:  cfg.SourceWeights,
		contentWeights: cfg.ContentWeights,
		crossLanguage:  defaultCrossLanguage(),
		recencyWindow:  cfg.RecencyWindow,
	}
	if e.sourceWeights == nil {
		e.sourceWeights = defaultSourceWeights()
	}
	if e.contentWeights == nil {
		e.contentWeights = defaultContentWeights()
	}
	if e.recencyWindow <= 0 {
		e.recencyWindow = DefaultRecencyWindow
	}
	return e
}

// Rank scores every result and returns the list ordered by final score
// descending, then source weight, then creation time. Similarity is
// overwritten with the final score; the raw strategy score survives in
// RawSimilarity. The returned scores parallel the returned results.
func (e *Engine) Rank(ctx Context, results []search.Result) ([]search.Result, []Score) {
	if ctx.Now.IsZero() {
		ctx.Now = time.Now()
	}

	ranked := make([]search.Result, len(results))
	copy(ranked, results)

	scores := make(map[string]Score, len(ranked))
	for i := range ranked {
		r := &ranked[i]
		if r.RawSimilarity == 0 {
			r.RawSimilarity = r.Similarity
		}
		s := e.score(ctx, *r)
		r.Similarity = s.Final
		scores[r.ID] = s
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		wa, wb := e.sourceWeight(ctx, a.Source), e.sourceWeight(ctx, b.Source)
		if wa != wb {
			return wa > wb
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	ordered := make([]Score, len(ranked))
	for i, r := range ranked {
		ordered[i] = scores[r.ID]
	}
	return ranked, ordered
}

// score runs the pipeline for one result: base × source weight ×
// content-type weight × boosts, clamped to 1.0.
func (e *Engine) score(ctx Context, r search.Result) Score {
	s := Score{
		ResultID:      r.ID,
		Base:          r.RawSimilarity,
		SourceWeight:  e.sourceWeight(ctx, r.Source),
		ContentWeight: e.contentWeight(ctx, r.ContentType),
	}

	final := s.Base * s.SourceWeight * s.ContentWeight
	s.Boosts = e.boosts(ctx, r)
	for i, b := range s.Boosts {
		if f, ok := ctx.BoostOverrides[b.Name]; ok && f > 0 {
			s.Boosts[i].Factor = f
		}
		final *= s.Boosts[i].Factor
	}
	if final > 1 {
		final = 1
	}
	if final < 0 {
		final = 0
	}
	s.Final = final
	return s
}
