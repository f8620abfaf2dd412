package ports

import (
	"context"

	"PubMedCurator/internal/domain"
)

// FetchStrategy is a single retrieval attempt against one logical source.
// Live distinguishes upstream strategies (whose results are written through
// to the cache) from the cache fallback itself.
type FetchStrategy interface {
	Name() string
	Live() bool
	Fetch(ctx context.Context, query domain.Query) ([]domain.Record, error)
}

// CacheStore persists the last successful batch of records wholesale.
type CacheStore interface {
	Load(ctx context.Context) ([]domain.Record, error)
	Save(ctx context.Context, records []domain.Record) error
	Close() error
}

// Classifier decides topical relevance for a block of text. Implementations
// apply their on-error policy internally: the returned outcome is always
// usable, and a non-nil error only reports that the outcome was defaulted.
type Classifier interface {
	Classify(ctx context.Context, text string) (domain.Classification, error)
}

// Scorer assigns an importance score to a record. Same error contract as
// Classifier: failures surface as a defaulted zero score, never a panic or
// an unusable result.
type Scorer interface {
	Score(ctx context.Context, record domain.Record) (domain.Score, error)
}
