package feedio

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"PubMedCurator/internal/domain"
)

const (
	journalLabel  = "<b>Journal:</b>"
	doiLabel      = "<b>DOI:</b>"
	abstractLabel = "<b>Abstract:</b><br/>"
)

// BuildDescription renders the structured metadata block carried in each
// item's description. MineDescription is its inverse; the best-of run
// depends on this round trip to recover records from the filtered feed.
func BuildDescription(rec domain.Record) string {
	var b strings.Builder
	b.WriteString(journalLabel)
	b.WriteString(" ")
	b.WriteString(html.EscapeString(rec.Journal))
	b.WriteString("<br/>")
	if rec.DOI != "" {
		b.WriteString(doiLabel)
		b.WriteString(" ")
		b.WriteString(html.EscapeString(rec.DOI))
		b.WriteString("<br/>")
	}
	b.WriteString(abstractLabel)
	b.WriteString(html.EscapeString(rec.Abstract))
	return b.String()
}

// BuildRankedDescription prefixes the metadata block with the importance
// badge and the scorer's rationale.
func BuildRankedDescription(rec domain.Record, score domain.Score) string {
	return fmt.Sprintf("<h3>%s - Score: %d/100</h3><p><b>Why this matters:</b> %s</p><hr/>%s",
		domain.BadgeFor(score.Value), score.Value,
		html.EscapeString(score.Rationale),
		BuildDescription(rec))
}

// MineDescription extracts journal, DOI and abstract back out of a
// description written by BuildDescription.
func MineDescription(desc string) (journal, doi, abstract string) {
	journal = labelValue(desc, journalLabel)
	doi = labelValue(desc, doiLabel)

	if idx := strings.Index(desc, abstractLabel); idx >= 0 {
		abstract = descriptionText(desc[idx+len(abstractLabel):])
	}
	return journal, doi, abstract
}

func labelValue(desc, label string) string {
	start := strings.Index(desc, label)
	if start < 0 {
		return ""
	}
	value := desc[start+len(label):]
	if end := strings.Index(value, "<br/>"); end >= 0 {
		value = value[:end]
	}
	return descriptionText(value)
}

func descriptionText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return html.UnescapeString(fragment)
	}
	return strings.TrimSpace(doc.Text())
}
