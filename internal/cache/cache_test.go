package cache

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/findex/internal/db"
	"github.com/kailas-cloud/findex/internal/domain/search"
	"github.com/kailas-cloud/findex/internal/domain/search/filter"
	"github.com/kailas-cloud/findex/internal/domain/search/source"
	"github.com/kailas-cloud/findex/internal/nlquery"
)

type fakeKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeKV) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeKV) Del(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeKV) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok, nil
}

func (f *fakeKV) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

func testRequest(query, principal string) search.Request {
	return search.Request{
		Query:         query,
		Sources:       source.All(),
		MinSimilarity: 0.4,
		Limit:         20,
		PrincipalID:   principal,
	}
}

func testResponse(similarities ...float64) *search.Response {
	resp := &search.Response{Success: true}
	for i, s := range similarities {
		resp.Results = append(resp.Results, search.Result{
			ID:         "r" + string(rune('0'+i)),
			Source:     source.Receipts,
			Similarity: s,
			Title:      "result",
		})
	}
	resp.Total = len(resp.Results)
	return resp
}

func newTestCache(t *testing.T, store db.KVStore, cfg Config) *MultiTier {
	t.Helper()
	return New(cfg, store, nlquery.NewHeuristic(), nil)
}

func TestFingerprintDeterministic(t *testing.T) {
	req := testRequest("Coffee Shop receipts", "user-1")
	a := Fingerprint(req, "coffee shop receipts")
	b := Fingerprint(req, "coffee shop receipts")
	if a != b {
		t.Fatalf("same request produced different fingerprints: %s vs %s", a, b)
	}
}

func TestFingerprintIgnoresSimilarityThreshold(t *testing.T) {
	a := testRequest("coffee", "user-1")
	b := a
	b.MinSimilarity = 0.9

	if Fingerprint(a, "coffee") != Fingerprint(b, "coffee") {
		t.Fatal("min similarity must not affect the fingerprint")
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base := testRequest("coffee", "user-1")

	variants := map[string]search.Request{}
	offset := base
	offset.Offset = 20
	variants["offset"] = offset
	principal := base
	principal.PrincipalID = "user-2"
	variants["principal"] = principal
	sources := base
	sources.Sources = []source.Source{source.Merchants}
	variants["sources"] = sources

	want := Fingerprint(base, "coffee")
	for name, v := range variants {
		if got := Fingerprint(v, "coffee"); got == want {
			t.Errorf("changing %s did not change the fingerprint", name)
		}
	}
}

func TestSetThenGetHitsMemory(t *testing.T) {
	c := newTestCache(t, newFakeKV(), Config{})
	req := testRequest("coffee", "user-1")
	ctx := context.Background()

	if err := c.Set(ctx, req, testResponse(0.9, 0.8)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	hit, ok := c.Get(ctx, req)
	if !ok {
		t.Fatal("expected a hit after Set")
	}
	if hit.Tier != TierMemory {
		t.Fatalf("tier = %s, want %s", hit.Tier, TierMemory)
	}
	if len(hit.Response.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(hit.Response.Results))
	}
}

func TestGetMiss(t *testing.T) {
	c := newTestCache(t, newFakeKV(), Config{})
	if _, ok := c.Get(context.Background(), testRequest("nothing here", "user-1")); ok {
		t.Fatal("expected a miss on an empty cache")
	}
}

func TestPersistentHitPromotes(t *testing.T) {
	store := newFakeKV()
	c := newTestCache(t, store, Config{})
	req := testRequest("coffee", "user-1")
	ctx := context.Background()

	payload, compressed, ratio, err := encodePayload(testResponse(0.7), 0)
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	now := time.Now()
	if err := c.persistent.put(ctx, &Entry{
		Key:        c.fingerprint(req),
		Payload:    payload,
		Compressed: compressed,
		Ratio:      ratio,
		Size:       len(payload),
		CreatedAt:  now,
		LastAccess: now,
	}); err != nil {
		t.Fatalf("persistent put: %v", err)
	}

	hit, ok := c.Get(ctx, req)
	if !ok {
		t.Fatal("expected a persistent hit")
	}
	if hit.Tier != TierPersistent {
		t.Fatalf("tier = %s, want %s", hit.Tier, TierPersistent)
	}

	hit, ok = c.Get(ctx, req)
	if !ok || hit.Tier != TierMemory {
		t.Fatalf("expected promotion to memory, got ok=%v tier=%v", ok, hit)
	}
}

func TestExpiredEntryIsMiss(t *testing.T) {
	c := newTestCache(t, newFakeKV(), Config{MemoryTTL: time.Minute})
	req := testRequest("coffee", "user-1")
	ctx := context.Background()

	if err := c.Set(ctx, req, testResponse(0.9)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, ok := c.Get(ctx, req); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestRelaxedGetServesExpiredEntry(t *testing.T) {
	c := newTestCache(t, newFakeKV(), Config{MemoryTTL: time.Minute})
	req := testRequest("coffee", "user-1") // MinSimilarity 0.4
	ctx := context.Background()

	if err := c.Set(ctx, req, testResponse(0.5)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, ok := c.Get(ctx, req); ok {
		t.Fatal("strict read must miss on an expired entry")
	}

	resp, ok := c.RelaxedGet(ctx, req, 0.5)
	if !ok {
		t.Fatal("relaxed read must still serve the expired entry")
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
}

func TestCorruptPersistentEntryIsPurged(t *testing.T) {
	store := newFakeKV()
	c := newTestCache(t, store, Config{})
	req := testRequest("coffee", "user-1")
	ctx := context.Background()

	now := time.Now()
	if err := c.persistent.put(ctx, &Entry{
		Key:        c.fingerprint(req),
		Payload:    []byte("definitely not gzip"),
		Compressed: true,
		Size:       19,
		CreatedAt:  now,
		LastAccess: now,
	}); err != nil {
		t.Fatalf("persistent put: %v", err)
	}

	if _, ok := c.Get(ctx, req); ok {
		t.Fatal("corrupt entry must read as a miss")
	}
	if store.len() != 0 {
		t.Fatal("corrupt entry must be removed from the persistent tier")
	}
	if c.memory.len() != 0 {
		t.Fatal("corrupt entry must not be promoted to memory")
	}
}

func TestConcurrentHitsKeepAccountingConsistent(t *testing.T) {
	c := newTestCache(t, newFakeKV(), Config{})
	req := testRequest("hot query", "user-1")
	ctx := context.Background()

	if err := c.Set(ctx, req, testResponse(0.9)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	const workers, hitsPerWorker = 8, 200
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < hitsPerWorker; j++ {
				if _, ok := c.Get(ctx, req); !ok {
					t.Error("hot entry missed")
					return
				}
			}
		}()
	}

	// Score eviction candidates while the hits are in flight: the scorer
	// reads the same bookkeeping the hits update.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			c.memory.evictionCandidates(time.Now(), c.cfg.MemoryTTL, c.cfg.Eviction)
		}
	}()
	wg.Wait()
	<-done

	e, ok := c.memory.get(c.fingerprint(req))
	if !ok {
		t.Fatal("entry vanished")
	}
	if e.AccessCount != workers*hitsPerWorker {
		t.Fatalf("access count = %d, want %d (hits lost)", e.AccessCount, workers*hitsPerWorker)
	}
}

func TestEvictionDemotesValuableEntries(t *testing.T) {
	store := newFakeKV()
	c := newTestCache(t, store, Config{MemoryMaxEntries: 1})
	ctx := context.Background()

	hot := testRequest("hot query", "user-1")
	if err := c.Set(ctx, hot, testResponse(0.9)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// Four hits push the entry over the demotion bar.
	for i := 0; i < 4; i++ {
		if _, ok := c.Get(ctx, hot); !ok {
			t.Fatalf("hit %d missed", i)
		}
	}

	if err := c.Set(ctx, testRequest("cold query", "user-1"), testResponse(0.5)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if store.len() == 0 {
		t.Fatal("expected the evicted hot entry to be demoted to the persistent tier")
	}
	hit, ok := c.Get(ctx, hot)
	if !ok {
		t.Fatal("demoted entry should still be reachable")
	}
	if hit.Tier != TierPersistent {
		t.Fatalf("tier = %s, want %s", hit.Tier, TierPersistent)
	}
}

func TestEvictionDropsLowValueEntries(t *testing.T) {
	store := newFakeKV()
	c := newTestCache(t, store, Config{MemoryMaxEntries: 1})
	ctx := context.Background()

	if err := c.Set(ctx, testRequest("first", "user-1"), testResponse(0.3)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(ctx, testRequest("second", "user-1"), testResponse(0.3)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if store.len() != 0 {
		t.Fatal("a never-accessed low-priority entry must be dropped, not demoted")
	}
	if c.memory.len() != 1 {
		t.Fatalf("memory entries = %d, want 1", c.memory.len())
	}
}

func TestRelaxedGetLowersThreshold(t *testing.T) {
	c := newTestCache(t, newFakeKV(), Config{})
	ctx := context.Background()

	req := testRequest("coffee", "user-1")
	req.MinSimilarity = 0.8
	if err := c.Set(ctx, req, testResponse(0.5, 0.3)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	resp, ok := c.RelaxedGet(ctx, req, 0.5)
	if !ok {
		t.Fatal("expected a relaxed hit")
	}
	// Relaxed bar is 0.8*0.5 = 0.4: only the 0.5 result qualifies.
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	if resp.Results[0].Similarity != 0.5 {
		t.Fatalf("kept similarity = %v, want 0.5", resp.Results[0].Similarity)
	}
}

func TestRelaxedGetAllBelowBar(t *testing.T) {
	c := newTestCache(t, newFakeKV(), Config{})
	ctx := context.Background()

	req := testRequest("coffee", "user-1")
	req.MinSimilarity = 0.9
	if err := c.Set(ctx, req, testResponse(0.1)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := c.RelaxedGet(ctx, req, 0.5); ok {
		t.Fatal("expected a miss when every result is below the relaxed bar")
	}
}

func TestCompressionAboveThreshold(t *testing.T) {
	resp := testResponse(0.9)
	resp.Results[0].Description = strings.Repeat("lorem ipsum dolor sit amet ", 200)

	payload, compressed, ratio, err := encodePayload(resp, 256)
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	if !compressed {
		t.Fatal("expected the large payload to be compressed")
	}
	if ratio <= 0 || ratio >= 1 {
		t.Fatalf("ratio = %v, want (0,1)", ratio)
	}

	decoded, err := decodePayload(&Entry{Payload: payload, Compressed: true})
	if err != nil {
		t.Fatalf("decodePayload: %v", err)
	}
	if decoded.Results[0].Description != resp.Results[0].Description {
		t.Fatal("compressed round trip lost data")
	}
}

func TestPredictiveCandidates(t *testing.T) {
	c := newTestCache(t, newFakeKV(), Config{})
	ctx := context.Background()

	prior := testRequest("coffee shop downtown", "user-1")
	c.Get(ctx, prior) // records history

	df := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	dt := df.AddDate(0, 1, 0)
	filters, err := filter.New(&df, &dt, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}
	req := testRequest("coffee shop receipts", "user-1")
	req.Filters = filters
	req.Offset = 0

	cands := c.Candidates(req)
	if len(cands) < 3 {
		t.Fatalf("candidates = %d, want at least 3", len(cands))
	}
	if cands[0].Offset != req.Limit {
		t.Fatalf("first candidate offset = %d, want next page %d", cands[0].Offset, req.Limit)
	}
	if !cands[1].Filters.IsEmpty() {
		t.Fatal("second candidate should drop the filters")
	}

	var foundHistory bool
	for _, cand := range cands {
		if cand.Query == prior.Query {
			foundHistory = true
		}
	}
	if !foundHistory {
		t.Fatal("expected the overlapping historical query among candidates")
	}
}

func TestSetPredictiveServedByGet(t *testing.T) {
	c := newTestCache(t, newFakeKV(), Config{})
	ctx := context.Background()
	req := testRequest("prefetched", "user-1")

	if err := c.SetPredictive(ctx, req, testResponse(0.6)); err != nil {
		t.Fatalf("SetPredictive: %v", err)
	}

	hit, ok := c.Get(ctx, req)
	if !ok {
		t.Fatal("expected a predictive hit")
	}
	if hit.Tier != TierPredictive {
		t.Fatalf("tier = %s, want %s", hit.Tier, TierPredictive)
	}
}
