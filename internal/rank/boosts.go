package rank

import (
	"strings"
	"time"

	"github.com/kailas-cloud/findex/internal/domain/search"
	"github.com/kailas-cloud/findex/internal/domain/search/source"
	"github.com/kailas-cloud/findex/internal/nlquery"
)

// Boost factors. Exact matches dominate; everything else nudges.
const (
	boostExactTitle    = 3.0
	boostExactMerchant = 2.8
	boostExactCategory = 2.5
	boostExactBusiness = 2.5
	boostSubstring     = 1.5

	boostCrossLanguage = 1.3
	boostSemanticBand  = 1.2

	boostOwner = 1.15
	boostTeam  = 1.08

	boostHighConfidence = 1.25
	boostCoverageFull   = 1.3
	boostCoverageMost   = 1.15

	// recencyMaxBoost is the factor at age zero; it decays linearly to 1.0
	// across the recency window.
	recencyMaxBoost = 1.25
)

// Semantic band bounds: raw similarity in this range marks a "good but not
// certain" semantic match worth nudging above keyword noise.
const (
	semanticBandLow  = 0.6
	semanticBandHigh = 0.8
)

// HighConfidenceThreshold marks raw similarity treated as near-certain.
const HighConfidenceThreshold = 0.9

// Boost is one applied multiplier, recorded for explainability.
type Boost struct {
	Name   string  `json:"name"`
	Factor float64 `json:"factor"`
}

// boosts evaluates every applicable boost for one result. Each rule is
// independent; factors multiply.
func (e *Engine) boosts(ctx Context, r search.Result) []Boost {
	var out []Boost
	add := func(name string, factor float64) {
		out = append(out, Boost{Name: name, Factor: factor})
	}

	query := strings.ToLower(strings.TrimSpace(ctx.Query))
	title := strings.ToLower(r.Title)

	exact := false
	switch {
	case query != "" && title == query:
		add("exact_title", boostExactTitle)
		exact = true
	case query != "" && merchantName(r) == query:
		add("exact_merchant", boostExactMerchant)
		exact = true
	case query != "" && categoryName(r) == query:
		add("exact_category", boostExactCategory)
		exact = true
	case query != "" && businessName(r) == query:
		add("exact_business_name", boostExactBusiness)
		exact = true
	}
	if !exact && query != "" && strings.Contains(title, query) {
		add("substring_title", boostSubstring)
	}

	if ctx.Language != nlquery.LangDefault && e.crossLanguage[r.Source] {
		add("cross_language", boostCrossLanguage)
	}
	if r.RawSimilarity >= semanticBandLow && r.RawSimilarity <= semanticBandHigh {
		add("semantic_band", boostSemanticBand)
	}

	if ctx.PrincipalID != "" && r.OwnerID == ctx.PrincipalID {
		add("owner", boostOwner)
	} else if r.Access == search.AccessTeam {
		add("team_shared", boostTeam)
	}
	if f := e.recencyFactor(ctx.Now, r.CreatedAt); f > 1 {
		add("recency", f)
	}

	if r.RawSimilarity >= HighConfidenceThreshold {
		add("high_confidence", boostHighConfidence)
	}
	switch coverage := termCoverage(ctx.Terms, r); {
	case coverage >= 1:
		add("coverage_full", boostCoverageFull)
	case coverage >= 0.5:
		add("coverage_majority", boostCoverageMost)
	}

	return out
}

// recencyFactor decays linearly from recencyMaxBoost at age zero to 1.0 at
// the window edge. Outside the window it is neutral.
func (e *Engine) recencyFactor(now, createdAt time.Time) float64 {
	if createdAt.IsZero() || e.recencyWindow <= 0 {
		return 1
	}
	age := now.Sub(createdAt)
	if age < 0 || age >= e.recencyWindow {
		return 1
	}
	frac := 1 - age.Seconds()/e.recencyWindow.Seconds()
	return 1 + (recencyMaxBoost-1)*frac
}

// termCoverage is the fraction of query terms found in the result's title
// and description.
func termCoverage(terms []string, r search.Result) float64 {
	if len(terms) == 0 {
		return 0
	}
	haystack := strings.ToLower(r.Title + " " + r.Description)
	var matched int
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

func merchantName(r search.Result) string {
	if m, ok := r.Metadata.(search.ReceiptMetadata); ok {
		return strings.ToLower(m.Merchant)
	}
	return ""
}

func categoryName(r search.Result) string {
	switch m := r.Metadata.(type) {
	case search.CategoryMetadata:
		return strings.ToLower(m.Name)
	case search.MerchantMetadata:
		return strings.ToLower(m.Category)
	}
	return ""
}

func businessName(r search.Result) string {
	if m, ok := r.Metadata.(search.MerchantMetadata); ok {
		return strings.ToLower(m.BusinessName)
	}
	return ""
}

// defaultCrossLanguage marks sources whose content is stored in another
// language than most queries arrive in.
func defaultCrossLanguage() map[source.Source]bool {
	return map[source.Source]bool{
		source.Merchants:   true,
		source.Attachments: true,
	}
}
