package cache

import (
	"sort"
	"sync"
	"time"
)

// memoryTier is the hot tier: a guarded map with capacity limits by entry
// count and aggregate byte size.
type memoryTier struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	maxEntries int
	maxBytes   int
	curBytes   int
}

func newMemoryTier(maxEntries, maxBytes int) *memoryTier {
	return &memoryTier{
		entries:    make(map[string]*Entry, maxEntries),
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
	}
}

func (t *memoryTier) get(key string) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	return e, ok
}

func (t *memoryTier) put(e *Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.entries[e.Key]; ok {
		t.curBytes -= old.Size
	}
	e.Tier = TierMemory
	t.entries[e.Key] = e
	t.curBytes += e.Size
}

// touch bumps a key's access bookkeeping. Entries are shared with
// concurrent readers, so the mutation happens under the tier lock.
func (t *memoryTier) touch(key string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[key]; ok {
		e.Touch(now)
	}
}

func (t *memoryTier) remove(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[key]; ok {
		t.curBytes -= e.Size
		delete(t.entries, key)
	}
}

func (t *memoryTier) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *memoryTier) bytes() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.curBytes
}

// overCapacity reports whether adding an entry of addSize bytes would
// exceed either limit.
func (t *memoryTier) overCapacity(addSize int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.maxEntries > 0 && len(t.entries) >= t.maxEntries {
		return true
	}
	if t.maxBytes > 0 && t.curBytes+addSize > t.maxBytes {
		return true
	}
	return false
}

// evictionCandidates returns all entries ordered worst-first by eviction
// score. Scores are computed while the lock is held so concurrent touches
// cannot shift the bookkeeping mid-read; the sort runs on the snapshot.
// A linear pass plus sort stays well under a millisecond at the
// configured capacities.
func (t *memoryTier) evictionCandidates(now time.Time, maxAge time.Duration, w EvictionWeights) []*Entry {
	type scored struct {
		entry *Entry
		score float64
	}

	t.mu.RLock()
	snap := make([]scored, 0, len(t.entries))
	for _, e := range t.entries {
		snap = append(snap, scored{entry: e, score: EvictionScore(e, now, maxAge, w)})
	}
	t.mu.RUnlock()

	sort.Slice(snap, func(i, j int) bool { return snap[i].score > snap[j].score })

	out := make([]*Entry, len(snap))
	for i, s := range snap {
		out[i] = s.entry
	}
	return out
}
