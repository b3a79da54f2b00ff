package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/sendflowr/pulse/internal/timing/domain"
)

type memoryEntry struct {
	features  *domain.FeatureSet
	expiresAt time.Time
}

// MemoryFeatureCache is an in-process FeatureCache for local mode,
// where no Redis is available. Entries honor the same TTLs as the
// Redis cache; decisions are cached only for their side effect of
// being overwritten, so the in-memory variant drops them.
type MemoryFeatureCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryFeatureCache creates an empty in-process cache.
func NewMemoryFeatureCache() *MemoryFeatureCache {
	return &MemoryFeatureCache{entries: make(map[string]memoryEntry)}
}

// Features returns the cached feature set, or nil on miss or expiry.
func (c *MemoryFeatureCache) Features(_ context.Context, universalID string) (*domain.FeatureSet, error) {
	c.mu.RLock()
	entry, ok := c.entries[universalID]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	return entry.features, nil
}

// StoreFeatures overwrites the cached feature set.
func (c *MemoryFeatureCache) StoreFeatures(_ context.Context, features *domain.FeatureSet) error {
	c.mu.Lock()
	c.entries[features.UniversalID] = memoryEntry{
		features:  features,
		expiresAt: time.Now().Add(featureTTL),
	}
	c.mu.Unlock()
	return nil
}

// CacheDecision is a no-op; local mode has no decision readers.
func (c *MemoryFeatureCache) CacheDecision(_ context.Context, _ *domain.TimingDecision) error {
	return nil
}
