package pubmed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"PubMedCurator/internal/domain"
	"PubMedCurator/internal/ports"
)

// RSSStrategy pulls a saved PubMed search via one RSS endpoint. The cascade
// instantiates one strategy per configured mirror; all of them share this
// implementation and differ only in name and URL.
type RSSStrategy struct {
	name   string
	url    string
	client *http.Client
	parser *gofeed.Parser
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.FetchStrategy = (*RSSStrategy)(nil)

// NewRSSStrategy wires an HTTP client; the default carries a 30s timeout.
func NewRSSStrategy(name, url string, client *http.Client, logger *slog.Logger) *RSSStrategy {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RSSStrategy{
		name:   name,
		url:    url,
		client: client,
		parser: gofeed.NewParser(),
		logger: logger,
		now:    time.Now,
	}
}

// Name identifies the strategy in cascade logs and provenance.
func (s *RSSStrategy) Name() string {
	return s.name
}

// Live marks this as an upstream source whose results feed the cache.
func (s *RSSStrategy) Live() bool {
	return true
}

// Fetch downloads and normalizes the feed. A response with zero parseable
// entries is an error: the cascade must not mistake a broken mirror for a
// legitimately empty result.
func (s *RSSStrategy) Fetch(ctx context.Context, query domain.Query) ([]domain.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	// PubMed blocks requests without a browser-like User-Agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; PubMedCurator/1.0)")
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed endpoint returned %s", resp.Status)
	}

	feed, err := s.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	records := make([]domain.Record, 0, len(feed.Items))
	now := s.now().UTC()
	for _, item := range feed.Items {
		record := s.normalizeItem(item, now)
		if !record.Valid() {
			s.debug("skipping item without identity", "title", item.Title)
			continue
		}
		records = append(records, record)
		if query.Limit > 0 && len(records) >= query.Limit {
			break
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", s.name, domain.ErrNoRecords)
	}

	return records, nil
}

func (s *RSSStrategy) normalizeItem(item *gofeed.Item, now time.Time) domain.Record {
	record := domain.Record{
		ID:    item.GUID,
		Title: strings.TrimSpace(item.Title),
		URL:   item.Link,
	}
	if record.ID == "" {
		record.ID = item.Link
	}

	if item.PublishedParsed != nil {
		record.PublishedAt = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		record.PublishedAt = item.UpdatedParsed.UTC()
	}

	if len(item.Authors) > 0 {
		names := make([]string, 0, len(item.Authors))
		for _, a := range item.Authors {
			if a != nil && a.Name != "" {
				names = append(names, a.Name)
			}
		}
		record.Authors = strings.Join(names, ", ")
	}
	// PubMed search feeds carry the journal in dc:source and a
	// "doi: 10.x/y" pair in dc:identifier.
	if dc := item.DublinCoreExt; dc != nil {
		if record.Authors == "" {
			record.Authors = strings.Join(dc.Creator, ", ")
		}
		if len(dc.Source) > 0 {
			record.Journal = strings.TrimSpace(dc.Source[0])
		}
		for _, ident := range dc.Identifier {
			if doi, ok := strings.CutPrefix(strings.TrimSpace(ident), "doi:"); ok {
				record.DOI = strings.TrimSpace(doi)
				break
			}
		}
	}

	abstract := item.Description
	if abstract == "" {
		abstract = item.Content
	}
	record.Abstract = htmlToText(abstract)

	return record.Normalize(now)
}

// htmlToText flattens HTML markup in feed descriptions into plain text.
func htmlToText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" || !strings.Contains(fragment, "<") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.TrimSpace(doc.Text())
}

func (s *RSSStrategy) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
