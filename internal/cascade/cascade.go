package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"PubMedCurator/internal/domain"
	"PubMedCurator/internal/ports"
)

// Manager tries an ordered list of fetch strategies against one logical
// source until one yields a non-empty batch. Per-strategy failures never
// abort the fetch; only exhausting the whole list (cache fallback included)
// is terminal.
type Manager struct {
	strategies []ports.FetchStrategy
	cache      ports.CacheStore
	logger     *slog.Logger
}

// NewManager wires the strategy priority order and the write-through cache.
// The cache store may be nil when no persistence is configured.
func NewManager(strategies []ports.FetchStrategy, cache ports.CacheStore, logger *slog.Logger) *Manager {
	return &Manager{
		strategies: strategies,
		cache:      cache,
		logger:     logger,
	}
}

// Fetch returns the first non-empty batch in priority order. Results from
// live strategies are persisted so a later run can degrade gracefully;
// results served by the cache fallback are never re-saved.
func (m *Manager) Fetch(ctx context.Context, query domain.Query) ([]domain.Record, domain.Provenance, error) {
	if len(m.strategies) == 0 {
		return nil, domain.Provenance{}, fmt.Errorf("no fetch strategies configured")
	}

	for _, strategy := range m.strategies {
		records, err := strategy.Fetch(ctx, query)
		if err != nil {
			m.warn("fetch strategy failed", "strategy", strategy.Name(), "error", err)
			continue
		}
		if len(records) == 0 {
			// Transport success with nothing parseable is still a
			// strategy failure, not an empty result.
			m.warn("fetch strategy returned no records", "strategy", strategy.Name())
			continue
		}

		provenance := domain.Provenance{
			Strategy:  strategy.Name(),
			FromCache: !strategy.Live(),
			FetchedAt: time.Now().UTC(),
		}

		if strategy.Live() && m.cache != nil {
			if err := m.cache.Save(ctx, records); err != nil {
				// A cache write failure never fails an otherwise
				// successful fetch.
				m.warn("cache write failed", "strategy", strategy.Name(), "error", err)
			}
		}

		m.info("fetch succeeded", "strategy", strategy.Name(), "records", len(records), "from_cache", provenance.FromCache)
		return records, provenance, nil
	}

	return nil, domain.Provenance{}, fmt.Errorf("%d strategies tried: %w", len(m.strategies), domain.ErrExhaustedSources)
}

func (m *Manager) info(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Info(msg, args...)
	}
}

func (m *Manager) warn(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}
