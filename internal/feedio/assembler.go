package feedio

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"PubMedCurator/internal/domain"
)

// Assembler partitions classified records, ranks scored records and
// serializes either into feed artifacts with deterministic ordering.
type Assembler struct {
	topN   int
	logger *slog.Logger
	now    func() time.Time
}

// NewAssembler wires the ranking bound; topN applies only to ranked feeds.
func NewAssembler(topN int, logger *slog.Logger) *Assembler {
	return &Assembler{
		topN:   topN,
		logger: logger,
		now:    time.Now,
	}
}

// Partition splits classified records into accepted and rejected groups
// preserving arrival order. The two groups are a total, disjoint cover of
// the input: no record is dropped or duplicated here.
func (a *Assembler) Partition(records []domain.ClassifiedRecord) (accepted, rejected []domain.ClassifiedRecord) {
	accepted = make([]domain.ClassifiedRecord, 0, len(records))
	rejected = make([]domain.ClassifiedRecord, 0)
	for _, rec := range records {
		if rec.Classification.Accepted {
			accepted = append(accepted, rec)
		} else {
			rejected = append(rejected, rec)
		}
	}
	return accepted, rejected
}

// Rank orders scored records by descending score, breaking ties by arrival
// order, and truncates to the configured top-N.
func (a *Assembler) Rank(records []domain.ScoredRecord) []domain.ScoredRecord {
	ranked := make([]domain.ScoredRecord, len(records))
	copy(ranked, records)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.Value > ranked[j].Score.Value
	})

	if a.topN > 0 && len(ranked) > a.topN {
		ranked = ranked[:a.topN]
	}
	return ranked
}

// WriteClassifiedFeed serializes one partition group into a feed artifact.
func (a *Assembler) WriteClassifiedFeed(path string, ch Channel, records []domain.ClassifiedRecord) error {
	entries := make([]entry, 0, len(records))
	dropped := 0
	for _, rec := range records {
		if !rec.Record.Valid() {
			dropped++
			continue
		}
		entries = append(entries, entry{
			Title:       rec.Record.Title,
			Link:        rec.Record.URL,
			GUID:        rec.Record.ID,
			Author:      rec.Record.Authors,
			PubDate:     rec.Record.PublishedAt,
			Description: BuildDescription(rec.Record),
		})
	}
	a.logDropped(path, dropped)

	if err := writeAtomic(path, renderFeed(ch, a.now(), entries)); err != nil {
		return fmt.Errorf("write feed %s: %w", path, err)
	}
	return nil
}

// WriteRankedFeed serializes ranked records with rank/score title prefixes
// and badge descriptions.
func (a *Assembler) WriteRankedFeed(path string, ch Channel, records []domain.ScoredRecord) error {
	entries := make([]entry, 0, len(records))
	dropped := 0
	for _, rec := range records {
		if !rec.Record.Valid() {
			dropped++
			continue
		}
		rank := len(entries) + 1
		entries = append(entries, entry{
			Title:       fmt.Sprintf("#%d [%d/100] %s", rank, rec.Score.Value, rec.Record.Title),
			Link:        rec.Record.URL,
			GUID:        rec.Record.ID,
			Author:      rec.Record.Authors,
			PubDate:     rec.Record.PublishedAt,
			Description: BuildRankedDescription(rec.Record, rec.Score),
		})
	}
	a.logDropped(path, dropped)

	if err := writeAtomic(path, renderFeed(ch, a.now(), entries)); err != nil {
		return fmt.Errorf("write feed %s: %w", path, err)
	}
	return nil
}

func (a *Assembler) logDropped(path string, dropped int) {
	if dropped > 0 && a.logger != nil {
		a.logger.Warn("dropped records without identity", "feed", path, "count", dropped)
	}
}
