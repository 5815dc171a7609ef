// Package optimizer rewrites raw search parameters into an execution-tuned
// set. It classifies the query, picks a named profile, applies per-source
// overrides and tier ceilings. It never fails: worst case it returns the
// request with safe defaults and mid confidence.
package optimizer

import (
	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/domain"
	"github.com/kailas-cloud/findex/internal/domain/search"
	"github.com/kailas-cloud/findex/internal/domain/search/source"
	"github.com/kailas-cloud/findex/internal/nlquery"
)

// queryType classifies how a query should be matched.
type queryType string

const (
	queryExact    queryType = "exact"
	querySemantic queryType = "semantic"
	queryFuzzy    queryType = "fuzzy"
)

// Report explains an optimization decision.
type Report struct {
	Profile      string
	Rationale    string
	Improvements []string
	Confidence   float64
	QueryType    string
	Language     nlquery.Language
}

// Optimized bundles the tuned request with its applied profile.
type Optimized struct {
	Request     search.Request
	Profile     Profile
	Report      Report
	Aggregation search.Aggregation
}

// Optimizer tunes search requests.
type Optimizer struct {
	normalizer nlquery.Normalizer
	logger     *zap.Logger
}

// New creates an optimizer.
func New(normalizer nlquery.Normalizer, logger *zap.Logger) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{normalizer: normalizer, logger: logger}
}

// Optimize classifies req and returns a tuned copy. The input is never
// mutated and the method never returns an error.
func (o *Optimizer) Optimize(req search.Request, tier domain.Tier) Optimized {
	norm := o.normalizer.Normalize(req.Query)

	qt := classifyQuery(norm)
	profile := o.selectProfile(qt, norm.Language, req.Sources)

	tuned := req
	tuned.Aggregation = profile.Aggregation
	if req.MinSimilarity > 0 {
		// An explicit caller threshold wins over the profile default and
		// is never adjusted further.
		tuned.MinSimilarity = req.MinSimilarity
	} else {
		tuned.MinSimilarity = applySourceOverrides(profile.MinSimilarity, req.Sources)
	}

	// Clamp the window: profile cap first, then the caller's tier ceiling.
	if tuned.Limit > profile.MaxResults {
		tuned.Limit = profile.MaxResults
	}
	if ceiling := tier.ResultCeiling(); tuned.Limit > ceiling {
		tuned.Limit = ceiling
	}

	report := Report{
		Profile:      profile.Name,
		Rationale:    profile.Rationale,
		Improvements: profile.Improvements,
		Confidence:   confidence(profile, req.Sources),
		QueryType:    string(qt),
		Language:     norm.Language,
	}

	o.logger.Debug("query optimized",
		zap.String("profile", profile.Name),
		zap.String("query_type", string(qt)),
		zap.Float64("min_similarity", tuned.MinSimilarity),
		zap.Int("limit", tuned.Limit),
		zap.Float64("confidence", report.Confidence),
	)

	return Optimized{
		Request:     tuned,
		Profile:     profile,
		Report:      report,
		Aggregation: profile.Aggregation,
	}
}

// classifyQuery maps a normalized query to a match type: quoted or very
// short queries are exact, long descriptive ones semantic, the rest fuzzy.
func classifyQuery(n nlquery.Normalized) queryType {
	switch {
	case n.Quoted:
		return queryExact
	case len(n.Terms) <= 2 && len(n.Text) <= 24:
		return queryExact
	case len(n.Terms) >= 4:
		return querySemantic
	default:
		return queryFuzzy
	}
}

func (o *Optimizer) selectProfile(qt queryType, lang nlquery.Language, sources []source.Source) Profile {
	switch {
	case lang != nlquery.LangDefault:
		return profileCrossLanguage
	case qt == queryExact:
		return profileExactMatch
	case len(sources) == 1:
		return profileSourceFocused
	case qt == querySemantic:
		return profileSemantic
	case qt == queryFuzzy && len(sources) >= len(source.All()):
		return profilePerformance
	default:
		return profileDefault
	}
}

// applySourceOverrides adjusts the threshold for known source quality:
// a noisy source drops the bar by 30%, a curated one raises it by 10%.
// Only narrowed requests qualify; a full-corpus source list (the default
// when the caller names none) means no single source dominates the result
// mix, so the profile threshold stands.
func applySourceOverrides(threshold float64, sources []source.Source) float64 {
	if len(sources) >= len(source.All()) {
		return clamp01(threshold)
	}
	for _, s := range sources {
		switch {
		case sourceQuality[s] <= 0.5:
			threshold *= 0.7
		case sourceQuality[s] >= 1.0 && len(sources) == 1:
			threshold *= 1.1
		}
	}
	return clamp01(threshold)
}

// confidence blends the profile's base confidence with the historical
// quality of the requested sources: 60% profile, 40% source quality.
func confidence(p Profile, sources []source.Source) float64 {
	quality := 0.7 // unlisted sources
	if len(sources) > 0 {
		var sum float64
		for _, s := range sources {
			q, ok := sourceQuality[s]
			if !ok {
				q = 0.7
			}
			sum += q
		}
		quality = sum / float64(len(sources))
	}
	return clamp01(0.6*p.BaseConfidence + 0.4*quality)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
