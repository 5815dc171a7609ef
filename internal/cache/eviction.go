package cache

import "time"

// sizeNorm is the midpoint of the smooth size normalization: an entry of
// this byte size scores 0.5 on the size factor.
const sizeNorm = 64 * 1024

// EvictionWeights are the factor weights of the eviction score. Higher
// score means evict first. The defaults are the documented formula; they
// are configurable but tests rely on these values.
type EvictionWeights struct {
	Age         float64 `yaml:"age"`
	AccessCount float64 `yaml:"access_count"`
	Frequency   float64 `yaml:"frequency"`
	Size        float64 `yaml:"size"`
	Quality     float64 `yaml:"quality"`
	Priority    float64 `yaml:"priority"`
}

// DefaultEvictionWeights returns the documented default weights.
func DefaultEvictionWeights() EvictionWeights {
	return EvictionWeights{
		Age:         0.25,
		AccessCount: 0.20,
		Frequency:   0.15,
		Size:        0.15,
		Quality:     0.15,
		Priority:    0.10,
	}
}

// EvictionScore scores an entry for eviction in [0,1]. Monotonic in age,
// anti-monotonic in access count and frequency, holding the rest fixed.
// maxAge normalizes the age factor (the memory tier TTL in practice).
func EvictionScore(e *Entry, now time.Time, maxAge time.Duration, w EvictionWeights) float64 {
	age := now.Sub(e.LastAccess).Seconds() / maxAge.Seconds()
	if age > 1 {
		age = 1
	}
	if age < 0 {
		age = 0
	}

	invAccess := 1.0 / (1.0 + float64(e.AccessCount))
	invFreq := 1.0 / (1.0 + e.Frequency(now))
	size := float64(e.Size) / (float64(e.Size) + sizeNorm)
	invQuality := 1.0 - clamp01(e.Quality)
	invPriority := 1.0 - clamp01(e.Priority)

	score := w.Age*age +
		w.AccessCount*invAccess +
		w.Frequency*invFreq +
		w.Size*size +
		w.Quality*invQuality +
		w.Priority*invPriority

	return clamp01(score)
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
