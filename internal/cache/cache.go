package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/db"
	"github.com/kailas-cloud/findex/internal/domain/search"
	"github.com/kailas-cloud/findex/internal/metrics"
	"github.com/kailas-cloud/findex/internal/nlquery"
)

// Config tunes the multi-tier cache.
type Config struct {
	MemoryMaxEntries     int
	MemoryMaxBytes       int
	MemoryTTL            time.Duration
	PersistentTTL        time.Duration
	PredictiveMaxEntries int
	PredictiveTTL        time.Duration
	CompressThreshold    int
	KeyPrefix            string
	Eviction             EvictionWeights
}

// DefaultConfig returns production cache defaults.
func DefaultConfig() Config {
	return Config{
		MemoryMaxEntries:     1000,
		MemoryMaxBytes:       64 << 20,
		MemoryTTL:            5 * time.Minute,
		PersistentTTL:        time.Hour,
		PredictiveMaxEntries: 500,
		PredictiveTTL:        30 * time.Minute,
		CompressThreshold:    8 * 1024,
		KeyPrefix:            "findex:",
		Eviction:             DefaultEvictionWeights(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MemoryMaxEntries <= 0 {
		c.MemoryMaxEntries = def.MemoryMaxEntries
	}
	if c.MemoryMaxBytes <= 0 {
		c.MemoryMaxBytes = def.MemoryMaxBytes
	}
	if c.MemoryTTL <= 0 {
		c.MemoryTTL = def.MemoryTTL
	}
	if c.PersistentTTL <= 0 {
		c.PersistentTTL = def.PersistentTTL
	}
	if c.PredictiveMaxEntries <= 0 {
		c.PredictiveMaxEntries = def.PredictiveMaxEntries
	}
	if c.PredictiveTTL <= 0 {
		c.PredictiveTTL = def.PredictiveTTL
	}
	if c.CompressThreshold <= 0 {
		c.CompressThreshold = def.CompressThreshold
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = def.KeyPrefix
	}
	if c.Eviction == (EvictionWeights{}) {
		c.Eviction = def.Eviction
	}
	return c
}

// Hit describes a cache hit.
type Hit struct {
	Response *search.Response
	Tier     Tier
}

// MultiTier is the three-tier response cache. All tiers share one
// fingerprint keyspace; a hit in a colder tier promotes the entry to
// memory.
type MultiTier struct {
	cfg        Config
	memory     *memoryTier
	persistent *persistentTier
	predictive *predictiveTier
	normalizer nlquery.Normalizer
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a multi-tier cache. store may be nil, which disables the
// persistent tier (useful in tests and single-node deployments).
func New(cfg Config, store db.KVStore, normalizer nlquery.Normalizer, logger *zap.Logger) *MultiTier {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MultiTier{
		cfg:        cfg,
		memory:     newMemoryTier(cfg.MemoryMaxEntries, cfg.MemoryMaxBytes),
		persistent: newPersistentTier(store, cfg.KeyPrefix, cfg.PersistentTTL),
		predictive: newPredictiveTier(cfg.PredictiveMaxEntries, cfg.PredictiveTTL),
		normalizer: normalizer,
		logger:     logger,
		now:        time.Now,
	}
}

func (c *MultiTier) fingerprint(req search.Request) string {
	return Fingerprint(req, c.normalizer.Normalize(req.Query).Text)
}

// Get looks a request up in memory, then persistent, then predictive. A
// non-memory hit is promoted to memory. Expired entries read as misses but
// stay in place so RelaxedGet can still serve them; each tier reclaims
// them on its own (eviction pressure, redis TTL, LRU TTL). The request is
// recorded into the principal's query history either way.
func (c *MultiTier) Get(ctx context.Context, req search.Request) (*Hit, bool) {
	key := c.fingerprint(req)
	now := c.now()
	c.predictive.recordQuery(req)

	if e, ok := c.memory.get(key); ok && e.Valid(now, c.cfg.MemoryTTL) {
		if h, ok := c.hit(ctx, e, TierMemory); ok {
			metrics.CacheTotal.WithLabelValues(string(TierMemory), "hit").Inc()
			c.memory.touch(key, now)
			return h, true
		}
	}
	metrics.CacheTotal.WithLabelValues(string(TierMemory), "miss").Inc()

	if e, ok, err := c.persistent.get(ctx, key); err != nil {
		c.logger.Warn("persistent tier read failed", zap.Error(err))
	} else if ok && e.Valid(now, c.cfg.PersistentTTL) {
		if h, ok := c.hit(ctx, e, TierPersistent); ok {
			metrics.CacheTotal.WithLabelValues(string(TierPersistent), "hit").Inc()
			c.promote(e, now)
			return h, true
		}
	}
	metrics.CacheTotal.WithLabelValues(string(TierPersistent), "miss").Inc()

	if e, ok := c.predictive.get(key); ok && e.Valid(now, c.cfg.PredictiveTTL) {
		if h, ok := c.hit(ctx, e, TierPredictive); ok {
			metrics.CacheTotal.WithLabelValues(string(TierPredictive), "hit").Inc()
			c.promote(e, now)
			return h, true
		}
	}
	metrics.CacheTotal.WithLabelValues(string(TierPredictive), "miss").Inc()

	return nil, false
}

// RelaxedGet retries the lookup with the similarity bar lowered by factor
// (fallback path). It accepts any tier without promotion, TTL-expired
// entries included: a fresh entry would already have answered through Get,
// so stale data is exactly what this path is for. Results are filtered
// against the relaxed threshold.
func (c *MultiTier) RelaxedGet(ctx context.Context, req search.Request, factor float64) (*search.Response, bool) {
	if factor <= 0 || factor > 1 {
		factor = 0.5
	}
	key := c.fingerprint(req)

	var entry *Entry
	if e, ok := c.memory.get(key); ok {
		entry = e
	} else if e, ok, err := c.persistent.get(ctx, key); err == nil && ok {
		entry = e
	} else if e, ok := c.predictive.get(key); ok {
		entry = e
	}
	if entry == nil {
		return nil, false
	}

	resp, err := decodePayload(entry)
	if err != nil {
		return nil, false
	}

	relaxed := req.MinSimilarity * factor
	kept := resp.Results[:0]
	for _, r := range resp.Results {
		if r.Similarity >= relaxed {
			kept = append(kept, r)
		}
	}
	resp.Results = kept
	if len(resp.Results) == 0 {
		return nil, false
	}
	return resp, true
}

// Set stores a ranked response. Payloads above the compression threshold
// are gzipped; the memory tier evicts (demoting valuable entries to the
// persistent tier) before inserting when at capacity.
func (c *MultiTier) Set(ctx context.Context, req search.Request, resp *search.Response) error {
	key := c.fingerprint(req)
	now := c.now()

	payload, compressed, ratio, err := encodePayload(resp, c.cfg.CompressThreshold)
	if err != nil {
		return err
	}

	e := &Entry{
		Key:         key,
		Payload:     payload,
		Compressed:  compressed,
		Ratio:       ratio,
		Size:        len(payload),
		CreatedAt:   now,
		LastAccess:  now,
		AccessCount: 0,
		Priority:    priority(req, resp),
		Quality:     resultQuality(resp),
		PrincipalID: req.PrincipalID,
	}

	c.evictIfNeeded(ctx, e.Size, now)
	c.memory.put(e)
	return nil
}

// SetPredictive stores a speculatively fetched response in the predictive
// tier without touching the memory tier.
func (c *MultiTier) SetPredictive(_ context.Context, req search.Request, resp *search.Response) error {
	key := c.fingerprint(req)
	now := c.now()

	payload, compressed, ratio, err := encodePayload(resp, c.cfg.CompressThreshold)
	if err != nil {
		return err
	}
	c.predictive.put(&Entry{
		Key:         key,
		Payload:     payload,
		Compressed:  compressed,
		Ratio:       ratio,
		Size:        len(payload),
		CreatedAt:   now,
		LastAccess:  now,
		Priority:    priority(req, resp),
		Quality:     resultQuality(resp),
		PrincipalID: req.PrincipalID,
	})
	return nil
}

// Candidates proposes follow-up requests worth prefetching after a miss.
func (c *MultiTier) Candidates(req search.Request) []search.Request {
	return c.predictive.candidates(req)
}

// Stats reports tier occupancy for health and debugging.
type Stats struct {
	MemoryEntries int
	MemoryBytes   int
}

// Stats returns current occupancy.
func (c *MultiTier) Stats() Stats {
	return Stats{MemoryEntries: c.memory.len(), MemoryBytes: c.memory.bytes()}
}

// hit decodes an entry's payload. A corrupt payload is purged from the
// tier it was found in (and from memory, where an earlier promotion may
// have copied it) and reads as a miss.
func (c *MultiTier) hit(ctx context.Context, e *Entry, tier Tier) (*Hit, bool) {
	resp, err := decodePayload(e)
	if err != nil {
		c.logger.Warn("cached payload corrupt, dropping",
			zap.String("key", e.Key), zap.String("tier", string(tier)), zap.Error(err))
		c.memory.remove(e.Key)
		switch tier {
		case TierPersistent:
			c.persistent.remove(ctx, e.Key)
		case TierPredictive:
			c.predictive.remove(e.Key)
		}
		return nil, false
	}
	return &Hit{Response: resp, Tier: tier}, true
}

// promote copies an entry into the memory tier. Access bookkeeping lands
// on the copy, never on the source tier's shared entry.
func (c *MultiTier) promote(e *Entry, now time.Time) {
	c.evictIfNeeded(context.Background(), e.Size, now)
	promoted := *e
	promoted.Touch(now)
	c.memory.put(&promoted)
}

// evictIfNeeded frees memory-tier room for an incoming entry. Entries with
// more than 3 accesses or priority above 0.7 are demoted to the persistent
// tier; the rest are dropped.
func (c *MultiTier) evictIfNeeded(ctx context.Context, addSize int, now time.Time) {
	if !c.memory.overCapacity(addSize) {
		return
	}

	candidates := c.memory.evictionCandidates(now, c.cfg.MemoryTTL, c.cfg.Eviction)
	for _, victim := range candidates {
		if !c.memory.overCapacity(addSize) {
			return
		}
		c.memory.remove(victim.Key)

		if victim.AccessCount > 3 || victim.Priority > 0.7 {
			if err := c.persistent.put(ctx, victim); err != nil {
				c.logger.Warn("demotion failed", zap.String("key", victim.Key), zap.Error(err))
			}
			metrics.CacheEvictionsTotal.WithLabelValues("demoted").Inc()
		} else {
			metrics.CacheEvictionsTotal.WithLabelValues("dropped").Inc()
		}
	}
}

// priority blends query complexity with result quality, both in [0,1].
func priority(req search.Request, resp *search.Response) float64 {
	complexity := float64(len(req.Query)) / 100
	if complexity > 1 {
		complexity = 1
	}
	if !req.Filters.IsEmpty() {
		complexity += 0.25
	}
	if complexity > 1 {
		complexity = 1
	}
	return clamp01(0.5*complexity + 0.5*resultQuality(resp))
}

// resultQuality is the mean final similarity of the response's results.
func resultQuality(resp *search.Response) float64 {
	if resp == nil || len(resp.Results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range resp.Results {
		sum += r.Similarity
	}
	return clamp01(sum / float64(len(resp.Results)))
}
