package cache

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/findex/internal/domain/search"
)

// Fingerprint derives the deterministic cache key of a request: normalized
// query text, sorted source list, canonical filter set, result window and
// principal, hashed with xxhash64. Two requests that normalize identically
// always collide on purpose.
func Fingerprint(req search.Request, normalizedQuery string) string {
	var b strings.Builder
	b.WriteString(normalizedQuery)
	b.WriteByte('|')
	for _, s := range req.Sources {
		b.WriteString(s.String())
		b.WriteByte(',')
	}
	b.WriteByte('|')
	b.WriteString(req.Filters.Canonical())
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(req.Limit))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(req.Offset))
	b.WriteByte('|')
	b.WriteString(req.PrincipalID)

	return strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}
