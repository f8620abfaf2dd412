package cascade

import (
	"context"

	"PubMedCurator/internal/domain"
	"PubMedCurator/internal/ports"
)

// CacheStrategy adapts the cache store into the terminal fallback strategy.
type CacheStrategy struct {
	store ports.CacheStore
}

var _ ports.FetchStrategy = (*CacheStrategy)(nil)

// NewCacheStrategy wraps a cache store.
func NewCacheStrategy(store ports.CacheStore) *CacheStrategy {
	return &CacheStrategy{store: store}
}

// Name identifies the strategy in cascade logs and provenance.
func (c *CacheStrategy) Name() string {
	return "cache"
}

// Live is false: reading the cache must not trigger a cache write.
func (c *CacheStrategy) Live() bool {
	return false
}

// Fetch returns the last saved batch unchanged.
func (c *CacheStrategy) Fetch(ctx context.Context, _ domain.Query) ([]domain.Record, error) {
	return c.store.Load(ctx)
}
