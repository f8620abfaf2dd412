package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"PubMedCurator/internal/domain"
	"PubMedCurator/internal/ports"
)

// Classifier asks the LLM for a binary relevance decision. Its on-error
// behavior is a configurable policy: fail-open accepts the record,
// fail-closed rejects it.
type Classifier struct {
	client      *Client
	instruction string
	maxChars    int
	failOpen    bool
}

var _ ports.Classifier = (*Classifier)(nil)

// NewClassifier wires the instruction text and failure policy.
func NewClassifier(client *Client, instruction string, maxChars int, failOpen bool) *Classifier {
	if maxChars <= 0 {
		maxChars = 4000
	}
	return &Classifier{
		client:      client,
		instruction: instruction,
		maxChars:    maxChars,
		failOpen:    failOpen,
	}
}

// Classify returns the relevance decision for the given text. When the
// underlying call fails or the reply is unparseable, the configured default
// decision is returned together with the error for reporting; the error
// never removes the record from the batch.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.Classification, error) {
	prompt := fmt.Sprintf("%s\nAnswer ONLY \"YES\" or \"NO\".\n\nPaper:\n%s",
		c.instruction, truncate(text, c.maxChars))

	reply, err := c.client.Complete(ctx, prompt, 0)
	if err != nil {
		return c.defaulted(fmt.Sprintf("classification failed: %v", err)),
			fmt.Errorf("classify: %w", err)
	}

	switch strings.ToUpper(strings.TrimSpace(reply)) {
	case "YES":
		return domain.Classification{Accepted: true}, nil
	case "NO":
		return domain.Classification{Accepted: false}, nil
	default:
		return c.defaulted(fmt.Sprintf("unexpected classifier reply: %q", truncate(reply, 120))),
			fmt.Errorf("classify: unexpected reply %q", truncate(reply, 120))
	}
}

func (c *Classifier) defaulted(reason string) domain.Classification {
	return domain.Classification{
		Accepted:  c.failOpen,
		Reasoning: reason,
		Defaulted: true,
	}
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
