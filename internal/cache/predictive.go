package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kailas-cloud/findex/internal/domain/search"
	"github.com/kailas-cloud/findex/internal/domain/search/filter"
)

const (
	historyPerPrincipal = 20
	maxCandidates       = 4
	// minHistoryOverlap is the term-overlap similarity a historical query
	// needs to qualify as a follow-up candidate.
	minHistoryOverlap = 0.4
)

// predictiveTier holds speculative entries pre-populated from query-pattern
// prediction. It also tracks each principal's recent queries so misses can
// suggest likely follow-ups. The tier itself never performs I/O; the
// orchestrator decides whether to prefetch the candidates it reports.
type predictiveTier struct {
	entries *expirable.LRU[string, *Entry]

	mu      sync.Mutex
	history map[string][]search.Request // principal id -> recent requests
}

func newPredictiveTier(maxEntries int, ttl time.Duration) *predictiveTier {
	return &predictiveTier{
		entries: expirable.NewLRU[string, *Entry](maxEntries, nil, ttl),
		history: make(map[string][]search.Request),
	}
}

func (t *predictiveTier) get(fingerprint string) (*Entry, bool) {
	return t.entries.Get(fingerprint)
}

func (t *predictiveTier) put(e *Entry) {
	e.Tier = TierPredictive
	t.entries.Add(e.Key, e)
}

func (t *predictiveTier) remove(fingerprint string) {
	t.entries.Remove(fingerprint)
}

// recordQuery appends req to its principal's rolling history.
func (t *predictiveTier) recordQuery(req search.Request) {
	if req.PrincipalID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.history[req.PrincipalID]
	h = append(h, req)
	if len(h) > historyPerPrincipal {
		h = h[len(h)-historyPerPrincipal:]
	}
	t.history[req.PrincipalID] = h
}

// candidates proposes follow-up requests for a just-missed query:
// templated variations first, then similar queries from the principal's
// recent history. Bounded to maxCandidates.
func (t *predictiveTier) candidates(req search.Request) []search.Request {
	out := make([]search.Request, 0, maxCandidates)

	// Next page is the most common follow-up.
	next := req
	next.Offset = req.Offset + req.Limit
	out = append(out, next)

	// A filtered query often gets retried without filters.
	if !req.Filters.IsEmpty() {
		unfiltered := req
		unfiltered.Filters = filter.Set{}
		out = append(out, unfiltered)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	terms := strings.Fields(strings.ToLower(req.Query))
	for i := len(t.history[req.PrincipalID]) - 1; i >= 0 && len(out) < maxCandidates; i-- {
		past := t.history[req.PrincipalID][i]
		if past.Query == req.Query {
			continue
		}
		if termOverlap(terms, strings.Fields(strings.ToLower(past.Query))) >= minHistoryOverlap {
			out = append(out, past)
		}
	}

	return out
}

// termOverlap returns |a ∩ b| / max(|a|, |b|).
func termOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	var shared int
	for _, t := range b {
		if _, ok := set[t]; ok {
			shared++
		}
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	return float64(shared) / float64(longest)
}
