// Package filter holds the structured filters a search request may carry.
package filter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MaxListValues is the maximum number of merchants or categories per filter.
const MaxListValues = 32

// Set is a validated, immutable filter set.
type Set struct {
	dateFrom   *time.Time
	dateTo     *time.Time
	amountMin  *float64
	amountMax  *float64
	merchants  []string
	categories []string
}

// New validates and creates a filter Set. String lists are lowercased,
// deduplicated and sorted so that equal filters canonicalize identically.
func New(
	dateFrom, dateTo *time.Time,
	amountMin, amountMax *float64,
	merchants, categories []string,
) (Set, error) {
	if dateFrom != nil && dateTo != nil && dateTo.Before(*dateFrom) {
		return Set{}, fmt.Errorf("date range end %s before start %s",
			dateTo.Format(time.DateOnly), dateFrom.Format(time.DateOnly))
	}
	if amountMin != nil && amountMax != nil && *amountMax < *amountMin {
		return Set{}, fmt.Errorf("amount range max %g below min %g", *amountMax, *amountMin)
	}
	if len(merchants) > MaxListValues {
		return Set{}, fmt.Errorf("too many merchants (max %d)", MaxListValues)
	}
	if len(categories) > MaxListValues {
		return Set{}, fmt.Errorf("too many categories (max %d)", MaxListValues)
	}
	return Set{
		dateFrom:   dateFrom,
		dateTo:     dateTo,
		amountMin:  amountMin,
		amountMax:  amountMax,
		merchants:  canonList(merchants),
		categories: canonList(categories),
	}, nil
}

// DateFrom returns the inclusive start of the date range.
func (s Set) DateFrom() *time.Time { return s.dateFrom }

// DateTo returns the inclusive end of the date range.
func (s Set) DateTo() *time.Time { return s.dateTo }

// AmountMin returns the inclusive lower amount bound.
func (s Set) AmountMin() *float64 { return s.amountMin }

// AmountMax returns the inclusive upper amount bound.
func (s Set) AmountMax() *float64 { return s.amountMax }

// Merchants returns the canonicalized merchant list.
func (s Set) Merchants() []string { return s.merchants }

// Categories returns the canonicalized category list.
func (s Set) Categories() []string { return s.categories }

// HasDateRange reports whether both date bounds are present.
func (s Set) HasDateRange() bool { return s.dateFrom != nil && s.dateTo != nil }

// IsEmpty reports whether the set carries no constraints.
func (s Set) IsEmpty() bool {
	return s.dateFrom == nil && s.dateTo == nil &&
		s.amountMin == nil && s.amountMax == nil &&
		len(s.merchants) == 0 && len(s.categories) == 0
}

// Canonical renders the set as a deterministic string for fingerprinting.
// Equal filter sets always render identically.
func (s Set) Canonical() string {
	var b strings.Builder
	if s.dateFrom != nil {
		b.WriteString("df=" + s.dateFrom.UTC().Format(time.DateOnly) + ";")
	}
	if s.dateTo != nil {
		b.WriteString("dt=" + s.dateTo.UTC().Format(time.DateOnly) + ";")
	}
	if s.amountMin != nil {
		b.WriteString("am=" + strconv.FormatFloat(*s.amountMin, 'f', 2, 64) + ";")
	}
	if s.amountMax != nil {
		b.WriteString("ax=" + strconv.FormatFloat(*s.amountMax, 'f', 2, 64) + ";")
	}
	if len(s.merchants) > 0 {
		b.WriteString("m=" + strings.Join(s.merchants, ",") + ";")
	}
	if len(s.categories) > 0 {
		b.WriteString("c=" + strings.Join(s.categories, ",") + ";")
	}
	return b.String()
}

func canonList(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
