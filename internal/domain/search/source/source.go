// Package source enumerates the document corpora a search can target.
package source

import "sort"

// Source identifies one searchable corpus.
type Source string

// Known sources.
const (
	Receipts    Source = "receipts"
	Merchants   Source = "merchants"
	Categories  Source = "categories"
	Attachments Source = "attachments"
)

// All returns every known source.
func All() []Source {
	return []Source{Receipts, Merchants, Categories, Attachments}
}

// IsValid reports whether s is a known source.
func (s Source) IsValid() bool {
	switch s {
	case Receipts, Merchants, Categories, Attachments:
		return true
	}
	return false
}

func (s Source) String() string { return string(s) }

// Normalize deduplicates and sorts a source list. An empty or all-invalid
// list normalizes to All() so a search always targets something.
func Normalize(sources []Source) []Source {
	seen := make(map[Source]struct{}, len(sources))
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if !s.IsValid() {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		out = All()
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
