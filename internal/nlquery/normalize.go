// Package nlquery normalizes free-text queries into a structured form the
// optimizer, cache, and orchestrator agree on. The Normalizer contract is
// satisfied by an external parser in production; Heuristic is a
// deterministic built-in that keeps the engine self-contained.
package nlquery

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Language tags detected query language composition.
type Language string

// Language tags.
const (
	LangDefault   Language = "default"
	LangAlternate Language = "alternate"
	LangMixed     Language = "mixed"
)

// Normalized is the structured form of a raw query.
type Normalized struct {
	Text      string // lowercased, whitespace-collapsed, quotes stripped
	Terms     []string
	Language  Language
	Quoted    bool // the raw query carried a quoted phrase
	Temporal  bool // the raw query contains temporal language
	DateFrom  *time.Time
	DateTo    *time.Time
	Merchants []string // merchant hints pulled from the query
}

// Normalizer maps a raw query to its normalized form. Implementations must
// be pure: identical input, identical output.
type Normalizer interface {
	Normalize(raw string) Normalized
}

var (
	spaceRE = regexp.MustCompile(`\s+`)
	isoDate = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

// temporalWords are tokens that mark a query as time-oriented.
var temporalWords = map[string]struct{}{
	"today": {}, "yesterday": {}, "tomorrow": {},
	"week": {}, "month": {}, "year": {},
	"recent": {}, "last": {}, "ago": {}, "since": {}, "during": {},
	"january": {}, "february": {}, "march": {}, "april": {}, "may": {},
	"june": {}, "july": {}, "august": {}, "september": {}, "october": {},
	"november": {}, "december": {},
}

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// Heuristic is the built-in deterministic normalizer. Relative month names
// resolve against the clock, which is fixed per instance.
type Heuristic struct {
	now func() time.Time
}

// NewHeuristic creates the default normalizer.
func NewHeuristic() *Heuristic { return &Heuristic{now: time.Now} }

// Normalize implements Normalizer.
func (h *Heuristic) Normalize(raw string) Normalized {
	quoted := strings.Contains(raw, `"`) || strings.Contains(raw, `'`)

	text := strings.ToLower(strings.TrimSpace(raw))
	text = strings.NewReplacer(`"`, "", `'`, "").Replace(text)
	text = spaceRE.ReplaceAllString(text, " ")

	terms := strings.Fields(text)

	n := Normalized{
		Text:     text,
		Terms:    terms,
		Language: detectLanguage(text),
		Quoted:   quoted,
	}

	for _, t := range terms {
		if _, ok := temporalWords[strings.Trim(t, ".,!?")]; ok {
			n.Temporal = true
			break
		}
	}

	if dates := isoDate.FindAllString(text, 2); len(dates) > 0 {
		n.Temporal = true
		if from, err := time.Parse(time.DateOnly, dates[0]); err == nil {
			n.DateFrom = &from
			to := from
			if len(dates) > 1 {
				if parsed, err := time.Parse(time.DateOnly, dates[1]); err == nil && !parsed.Before(from) {
					to = parsed
				}
			}
			n.DateTo = &to
		}
	}

	if n.DateFrom == nil {
		h.resolveMonth(&n, terms)
	}

	return n
}

// resolveMonth turns a bare month name into the most recent full month of
// that name not ahead of the clock.
func (h *Heuristic) resolveMonth(n *Normalized, terms []string) {
	for _, t := range terms {
		month, ok := monthNames[strings.Trim(t, ".,!?")]
		if !ok {
			continue
		}
		now := h.now().UTC()
		year := now.Year()
		if month > now.Month() {
			year--
		}
		from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, -1)
		n.DateFrom = &from
		n.DateTo = &to
		return
	}
}

// detectLanguage tags the query by unicode script composition: all-Latin is
// default, no-Latin is alternate, anything else mixed.
func detectLanguage(text string) Language {
	var latin, other bool
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.Is(unicode.Latin, r) {
			latin = true
		} else {
			other = true
		}
	}
	switch {
	case latin && other:
		return LangMixed
	case other:
		return LangAlternate
	default:
		return LangDefault
	}
}
