package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"PubMedCurator/internal/domain"
	"PubMedCurator/internal/ports"
)

const abstractWindow = 800

// Scorer asks the LLM for a 0-100 importance score plus rationale. Failures
// are fail-closed: the record sinks to the bottom with score zero instead of
// being dropped, so the total record count survives the ranking stage.
type Scorer struct {
	client   *Client
	criteria string
}

var _ ports.Scorer = (*Scorer)(nil)

// NewScorer wires the selection criteria text.
func NewScorer(client *Client, criteria string) *Scorer {
	return &Scorer{client: client, criteria: criteria}
}

// Score evaluates one record. A non-nil error reports that the returned
// score was defaulted; it never aborts the batch.
func (s *Scorer) Score(ctx context.Context, record domain.Record) (domain.Score, error) {
	prompt := fmt.Sprintf(`%s

Paper to evaluate:
Title: %s

Authors: %s

Journal: %s

Abstract: %s

Return your response as a JSON object with:
- "score": A number from 0-100 (where 100 is highest impact/importance)
- "reasoning": A 1-2 sentence explanation of your score`,
		s.criteria, record.Title, record.Authors, record.Journal,
		truncate(record.Abstract, abstractWindow))

	reply, err := s.client.Complete(ctx, prompt, 0.3)
	if err != nil {
		return failedScore(err), fmt.Errorf("score: %w", err)
	}

	// Models occasionally emit fractional scores; accept any number.
	var parsed struct {
		Score     float64 `json:"score"`
		Reasoning string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(reply)), &parsed); err != nil {
		return failedScore(err), fmt.Errorf("score: parse reply: %w", err)
	}

	value := int(math.Round(parsed.Score))
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}

	rationale := parsed.Reasoning
	if rationale == "" {
		rationale = "No reasoning provided"
	}

	return domain.Score{Value: value, Rationale: rationale}, nil
}

func failedScore(err error) domain.Score {
	return domain.Score{
		Value:     0,
		Rationale: fmt.Sprintf("Error during scoring: %v", err),
		Defaulted: true,
	}
}

// stripCodeFence unwraps replies the model wrapped in markdown code blocks.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimPrefix(strings.TrimSpace(s), "json")
	return strings.TrimSpace(s)
}
