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

// BestOfPipeline scores the accepted feed and emits the ranked top-N feed.
type BestOfPipeline struct {
	scorer    ports.Scorer
	assembler *feedio.Assembler
	delay     time.Duration
	logger    *slog.Logger

	InputPath  string
	OutputPath string
	Channel    feedio.Channel
}

// NewBestOfPipeline wires the ranking-variant collaborators.
func NewBestOfPipeline(scorer ports.Scorer, assembler *feedio.Assembler,
	delay time.Duration, logger *slog.Logger) *BestOfPipeline {
	return &BestOfPipeline{
		scorer:    scorer,
		assembler: assembler,
		delay:     delay,
		logger:    logger,
	}
}

// Run reads the filtered feed, scores every record and writes the ranked
// feed. Scoring failures sink records to the bottom with a zero score but
// never remove them, so the input count is preserved through ranking (up to
// the top-N truncation).
func (p *BestOfPipeline) Run(ctx context.Context) error {
	records, err := feedio.ReadFeed(p.InputPath)
	if err != nil {
		return fmt.Errorf("read stage: %w", err)
	}
	p.logger.Info("loaded filtered feed", "records", len(records), "path", p.InputPath)

	if len(records) == 0 {
		p.logger.Info("no records to rank, writing empty feed", "path", p.OutputPath)
		if err := p.assembler.WriteRankedFeed(p.OutputPath, p.Channel, nil); err != nil {
			return fmt.Errorf("assemble stage: %w", err)
		}
		return nil
	}

	p.logger.Info("scoring records", "count", len(records))
	scored := make([]domain.ScoredRecord, 0, len(records))
	defaulted := 0
	for i, record := range records {
		outcome, sErr := p.scorer.Score(ctx, record)
		if sErr != nil {
			defaulted++
			p.logger.Warn("scoring defaulted", "id", record.ID, "error", sErr)
		}
		scored = append(scored, domain.ScoredRecord{Record: record, Score: outcome})
		p.logger.Debug("scored record", "index", i+1, "total", len(records), "id", record.ID, "score", outcome.Value)

		if i < len(records)-1 {
			if err := pause(ctx, p.delay); err != nil {
				return fmt.Errorf("score stage: %w", err)
			}
		}
	}

	ranked := p.assembler.Rank(scored)

	p.logger.Info("assembling ranked feed", "selected", len(ranked), "scored", len(scored), "scoring_errors", defaulted)
	if err := p.assembler.WriteRankedFeed(p.OutputPath, p.Channel, ranked); err != nil {
		return fmt.Errorf("assemble stage: %w", err)
	}

	for i, rec := range ranked {
		if i >= 3 {
			break
		}
		p.logger.Info("top pick", "rank", i+1, "score", rec.Score.Value, "title", rec.Record.Title)
	}

	p.logger.Info("best-of run done", "selected", len(ranked), "feed", p.OutputPath)
	return nil
}
