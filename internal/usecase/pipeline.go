package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"PubMedCurator/internal/domain"
	"PubMedCurator/internal/feedio"
	"PubMedCurator/internal/ports"
)

// Fetcher is the cascade contract consumed by the pipelines.
type Fetcher interface {
	Fetch(ctx context.Context, query domain.Query) ([]domain.Record, domain.Provenance, error)
}

// FilterPipeline implements the fetch -> classify -> assemble workflow that
// produces the accepted and rejected feeds.
type FilterPipeline struct {
	fetcher    Fetcher
	classifier ports.Classifier
	assembler  *feedio.Assembler
	query      domain.Query
	delay      time.Duration
	logger     *slog.Logger

	AcceptedPath    string
	RejectedPath    string
	AcceptedChannel feedio.Channel
	RejectedChannel feedio.Channel
}

// NewFilterPipeline wires the filter-variant collaborators.
func NewFilterPipeline(fetcher Fetcher, classifier ports.Classifier, assembler *feedio.Assembler,
	query domain.Query, delay time.Duration, logger *slog.Logger) *FilterPipeline {
	return &FilterPipeline{
		fetcher:    fetcher,
		classifier: classifier,
		assembler:  assembler,
		query:      query,
		delay:      delay,
		logger:     logger,
	}
}

// Run executes one pipeline pass. Per-record classification failures are
// counted and defaulted, never fatal; only fetch exhaustion aborts the run.
func (p *FilterPipeline) Run(ctx context.Context) error {
	p.logger.Info("fetching records", "query", p.query.Text, "limit", p.query.Limit)

	records, provenance, err := p.fetcher.Fetch(ctx, p.query)
	if err != nil {
		return fmt.Errorf("fetch stage: %w", err)
	}
	p.logger.Info("fetched records", "count", len(records), "strategy", provenance.Strategy, "from_cache", provenance.FromCache)

	p.logger.Info("classifying records", "count", len(records))
	classified := make([]domain.ClassifiedRecord, 0, len(records))
	defaulted := 0
	for i, record := range records {
		text := record.Title + "\n\n" + record.Abstract
		outcome, cErr := p.classifier.Classify(ctx, text)
		if cErr != nil {
			defaulted++
			p.logger.Warn("classification defaulted", "id", record.ID, "error", cErr)
		}
		classified = append(classified, domain.ClassifiedRecord{Record: record, Classification: outcome})
		p.logger.Debug("classified record", "index", i+1, "total", len(records), "id", record.ID, "accepted", outcome.Accepted)

		if i < len(records)-1 {
			if err := pause(ctx, p.delay); err != nil {
				return fmt.Errorf("classify stage: %w", err)
			}
		}
	}

	accepted, rejected := p.assembler.Partition(classified)

	p.logger.Info("assembling feeds", "accepted", len(accepted), "rejected", len(rejected), "defaulted", defaulted)
	if err := p.assembler.WriteClassifiedFeed(p.AcceptedPath, p.AcceptedChannel, accepted); err != nil {
		return fmt.Errorf("assemble stage: %w", err)
	}
	if err := p.assembler.WriteClassifiedFeed(p.RejectedPath, p.RejectedChannel, rejected); err != nil {
		return fmt.Errorf("assemble stage: %w", err)
	}

	p.logger.Info("filter run done",
		"accepted", len(accepted),
		"rejected", len(rejected),
		"classification_errors", defaulted,
		"accepted_feed", p.AcceptedPath,
		"rejected_feed", p.RejectedPath)

	return nil
}

// pause sleeps between upstream calls to respect rate limits, waking early
// when the context is canceled.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
