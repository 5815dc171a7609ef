// Package embcache caches query embeddings in the key-value store so a
// repeated query never pays the embedding provider twice.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/db"
	"github.com/kailas-cloud/findex/internal/metrics"
)

const keyPrefix = "findex:emb:"

// embedder is the consumer interface for the inner provider.
type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CachedEmbedder is a caching decorator around an embedding provider.
type CachedEmbedder struct {
	inner  embedder
	store  db.KVStore
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a caching decorator. ttl <= 0 defaults to 24h.
func New(inner embedder, store db.KVStore, ttl time.Duration, logger *zap.Logger) *CachedEmbedder {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{inner: inner, store: store, ttl: ttl, logger: logger}
}

// Embed returns a cached embedding or calls the inner provider.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)

	if vec, ok := c.getFromCache(ctx, key); ok {
		metrics.CacheTotal.WithLabelValues("embedding", "hit").Inc()
		return vec, nil
	}
	metrics.CacheTotal.WithLabelValues("embedding", "miss").Inc()

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	c.putToCache(ctx, key, vec)
	return vec, nil
}

func cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return keyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, vec []float32) {
	if err := c.store.SetWithTTL(ctx, key, vectorToBytes(vec), c.ttl); err != nil {
		c.logger.Warn("failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
