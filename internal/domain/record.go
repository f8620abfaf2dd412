package domain

import "time"

// Record is a core entity describing one normalized literature item.
type Record struct {
	ID          string
	Title       string
	Abstract    string
	URL         string
	Authors     string
	Journal     string
	DOI         string
	PublishedAt time.Time
}

// Valid reports whether the record carries the identity fields required
// before it may enter a feed. Records failing this check are dropped, not
// emitted with blank fields.
func (r Record) Valid() bool {
	return r.ID != "" && r.URL != "" && r.Title != ""
}

// Normalize fills the free-text defaults and the publication-date fallback.
func (r Record) Normalize(now time.Time) Record {
	if r.Authors == "" {
		r.Authors = "Unknown"
	}
	if r.Journal == "" {
		r.Journal = "Unknown"
	}
	if r.PublishedAt.IsZero() {
		r.PublishedAt = now
	}
	return r
}

// Classification is the transient relevance outcome attached to a record
// during processing. Defaulted marks outcomes substituted by the gateway's
// on-error policy instead of a real classifier answer.
type Classification struct {
	Accepted  bool
	Reasoning string
	Defaulted bool
}

// ClassifiedRecord pairs a record with its relevance outcome.
type ClassifiedRecord struct {
	Record         Record
	Classification Classification
}

// Score is the transient importance outcome produced by the scorer gateway.
type Score struct {
	Value     int
	Rationale string
	Defaulted bool
}

// ScoredRecord pairs a record with its importance outcome.
type ScoredRecord struct {
	Record Record
	Score  Score
}

// Provenance identifies which strategy produced a fetch result.
type Provenance struct {
	Strategy  string
	FromCache bool
	FetchedAt time.Time
}

// Query carries the fetch parameters shared by all strategies.
type Query struct {
	Text         string
	LookbackDays int
	Limit        int
}

// Badge tiers derived from score thresholds, as rendered in the best-of feed.
const (
	BadgeCritical   = "🔥 CRITICAL"
	BadgeHighImpact = "⭐ HIGH IMPACT"
	BadgeNotable    = "✨ NOTABLE"
	BadgeSelected   = "📌 SELECTED"
)

// BadgeFor maps an importance score to its qualitative tier.
func BadgeFor(score int) string {
	switch {
	case score >= 90:
		return BadgeCritical
	case score >= 80:
		return BadgeHighImpact
	case score >= 70:
		return BadgeNotable
	default:
		return BadgeSelected
	}
}
