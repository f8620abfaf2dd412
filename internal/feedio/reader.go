package feedio

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"PubMedCurator/internal/domain"
)

// ReadFeed parses a previously written filtered feed back into records.
// This is the best-of input path: the filter run's accepted artifact is the
// only hand-off between the two variants.
func ReadFeed(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed %s (has the filter run completed?): %w", path, err)
	}
	defer f.Close()

	parsed, err := gofeed.NewParser().Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", path, err)
	}

	now := time.Now().UTC()
	records := make([]domain.Record, 0, len(parsed.Items))
	for _, item := range parsed.Items {
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
		}

		if len(item.Authors) > 0 && item.Authors[0] != nil {
			record.Authors = item.Authors[0].Name
		}

		record.Journal, record.DOI, record.Abstract = MineDescription(item.Description)

		if !record.Valid() {
			continue
		}
		records = append(records, record.Normalize(now))
	}

	return records, nil
}
