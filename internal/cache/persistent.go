package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/findex/internal/db"
)

// persistentTier is the warm tier, backed by the KV store. Entries survive
// process restarts for as long as the store keeps them; TTL enforcement is
// delegated to the store itself.
type persistentTier struct {
	store     db.KVStore
	keyPrefix string
	ttl       time.Duration
}

func newPersistentTier(store db.KVStore, keyPrefix string, ttl time.Duration) *persistentTier {
	return &persistentTier{store: store, keyPrefix: keyPrefix, ttl: ttl}
}

func (t *persistentTier) key(fingerprint string) string {
	return t.keyPrefix + "resp:" + fingerprint
}

func (t *persistentTier) get(ctx context.Context, fingerprint string) (*Entry, bool, error) {
	if t.store == nil {
		return nil, false, nil
	}
	raw, err := t.store.Get(ctx, t.key(fingerprint))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("persistent tier get: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// A corrupt entry is a miss; drop it so it cannot poison later reads.
		_ = t.store.Del(ctx, t.key(fingerprint))
		return nil, false, nil
	}
	return &e, true, nil
}

func (t *persistentTier) put(ctx context.Context, e *Entry) error {
	if t.store == nil {
		return nil
	}
	e.Tier = TierPersistent
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("persistent tier marshal: %w", err)
	}
	if err := t.store.SetWithTTL(ctx, t.key(e.Key), raw, t.ttl); err != nil {
		return fmt.Errorf("persistent tier set: %w", err)
	}
	return nil
}

func (t *persistentTier) remove(ctx context.Context, fingerprint string) {
	if t.store == nil {
		return
	}
	_ = t.store.Del(ctx, t.key(fingerprint))
}
