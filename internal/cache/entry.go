// Package cache implements the three-tier response cache: a hot in-memory
// tier, a warm persistent tier, and a speculative predictive tier.
package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/kailas-cloud/findex/internal/domain/search"
)

// Tier names a cache tier.
type Tier string

// Cache tiers, in promotion order.
const (
	TierPredictive Tier = "predictive"
	TierPersistent Tier = "persistent"
	TierMemory     Tier = "memory"
)

// Entry is one cached response with its access bookkeeping.
type Entry struct {
	Key         string    `json:"key"`
	Payload     []byte    `json:"payload"`
	Compressed  bool      `json:"compressed"`
	Ratio       float64   `json:"ratio,omitempty"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	LastAccess  time.Time `json:"last_access"`
	AccessCount int64     `json:"access_count"`
	Tier        Tier      `json:"tier"`
	Priority    float64   `json:"priority"`
	Quality     float64   `json:"quality"`
	Tags        []string  `json:"tags,omitempty"`
	PrincipalID string    `json:"principal_id,omitempty"`
}

// Frequency returns accesses per hour since creation.
func (e *Entry) Frequency(now time.Time) float64 {
	hours := now.Sub(e.CreatedAt).Hours()
	if hours < 1.0/60 {
		hours = 1.0 / 60
	}
	return float64(e.AccessCount) / hours
}

// Touch updates access bookkeeping on a hit. Callers must either hold the
// owning tier's lock or own the entry exclusively (a fresh copy).
func (e *Entry) Touch(now time.Time) {
	e.AccessCount++
	e.LastAccess = now
}

// Valid reports whether the entry is inside its tier TTL.
func (e *Entry) Valid(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CreatedAt) < ttl
}

// encodePayload marshals a response, compressing it when it exceeds the
// threshold. Returns the payload, whether it was compressed, and the ratio.
func encodePayload(resp *search.Response, compressThreshold int) ([]byte, bool, float64, error) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, false, 0, fmt.Errorf("marshal response: %w", err)
	}
	if compressThreshold <= 0 || len(raw) <= compressThreshold {
		return raw, false, 0, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, false, 0, fmt.Errorf("compress response: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, false, 0, fmt.Errorf("flush compressed response: %w", err)
	}
	ratio := float64(buf.Len()) / float64(len(raw))
	return buf.Bytes(), true, ratio, nil
}

// decodePayload unmarshals an entry payload back into a response.
func decodePayload(e *Entry) (*search.Response, error) {
	raw := e.Payload
	if e.Compressed {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("open compressed payload: %w", err)
		}
		defer func() { _ = zr.Close() }()
		raw, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("decompress payload: %w", err)
		}
	}
	var resp search.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal cached response: %w", err)
	}
	return &resp, nil
}
