package optimizer

import (
	"github.com/kailas-cloud/findex/internal/domain/search"
	"github.com/kailas-cloud/findex/internal/domain/search/source"
)

// Profile is a named execution tuning: thresholds, caps, weighting tables
// and the aggregation mode a strategy should use.
type Profile struct {
	Name               string
	MinSimilarity      float64
	MaxResults         int
	ContentTypeWeights map[string]float64
	SourceWeights      map[source.Source]float64
	Aggregation        search.Aggregation
	BoostFactors       map[string]float64
	BaseConfidence     float64
	Rationale          string
	Improvements       []string
}

// sourceQuality is the historical content quality per source, in [0,1].
// Categories are curated (perfect exact-match quality); attachments are
// OCR output and noisy.
var sourceQuality = map[source.Source]float64{
	source.Receipts:    0.9,
	source.Merchants:   0.95,
	source.Categories:  1.0,
	source.Attachments: 0.5,
}

// Named profiles. Values are tuned constants, not guesses made at runtime:
// when no profile matches, the optimizer falls back to safe defaults.
var (
	profileExactMatch = Profile{
		Name:          "exact_match",
		MinSimilarity: 0.75,
		MaxResults:    50,
		ContentTypeWeights: map[string]float64{
			"title": 1.5, "merchant": 1.4, "description": 1.0,
		},
		SourceWeights: map[source.Source]float64{
			source.Merchants: 1.2, source.Categories: 1.2,
		},
		Aggregation:    search.AggRelevance,
		BoostFactors:   map[string]float64{"exact_title": 3.0, "exact_merchant": 2.8},
		BaseConfidence: 0.9,
		Rationale:      "quoted or short query, exact matching dominates",
		Improvements:   []string{"higher precision", "fewer low-similarity hits"},
	}

	profileSemantic = Profile{
		Name:          "semantic",
		MinSimilarity: 0.45,
		MaxResults:    100,
		ContentTypeWeights: map[string]float64{
			"title": 1.2, "description": 1.1, "content": 1.0,
		},
		SourceWeights:  map[source.Source]float64{source.Receipts: 1.1},
		Aggregation:    search.AggRelevance,
		BoostFactors:   map[string]float64{"semantic_band": 1.2},
		BaseConfidence: 0.8,
		Rationale:      "descriptive query, semantic similarity carries intent",
		Improvements:   []string{"better recall on paraphrased queries"},
	}

	profileCrossLanguage = Profile{
		Name:          "cross_language",
		MinSimilarity: 0.35,
		MaxResults:    100,
		ContentTypeWeights: map[string]float64{
			"title": 1.2, "description": 1.0,
		},
		SourceWeights:  map[source.Source]float64{source.Receipts: 1.15},
		Aggregation:    search.AggRelevance,
		BoostFactors:   map[string]float64{"cross_language": 1.3},
		BaseConfidence: 0.7,
		Rationale:      "non-default-language tokens detected, thresholds relaxed",
		Improvements:   []string{"recall across languages", "transliteration tolerance"},
	}

	profileSourceFocused = Profile{
		Name:          "source_focused",
		MinSimilarity: 0.5,
		MaxResults:    80,
		ContentTypeWeights: map[string]float64{
			"title": 1.3, "merchant": 1.3,
		},
		Aggregation:    search.AggDiversity,
		BoostFactors:   map[string]float64{"exact_title": 2.5},
		BaseConfidence: 0.8,
		Rationale:      "single source requested, tuning for its content shape",
		Improvements:   []string{"source-specific weighting"},
	}

	profilePerformance = Profile{
		Name:          "performance",
		MinSimilarity: 0.6,
		MaxResults:    30,
		ContentTypeWeights: map[string]float64{
			"title": 1.2,
		},
		Aggregation:    search.AggRelevance,
		BoostFactors:   map[string]float64{},
		BaseConfidence: 0.75,
		Rationale:      "broad query over all sources, capped for latency",
		Improvements:   []string{"lower latency", "bounded fan-out"},
	}

	profileDefault = Profile{
		Name:           "default",
		MinSimilarity:  0.2,
		MaxResults:     100,
		Aggregation:    search.AggRelevance,
		BaseConfidence: 0.5,
		Rationale:      "no profile matched, safe defaults",
	}
)
