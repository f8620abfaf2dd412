package feedio

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"PubMedCurator/internal/domain"
)

func classifiedBatch() []domain.ClassifiedRecord {
	published := time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC)
	mk := func(id string, accepted bool) domain.ClassifiedRecord {
		return domain.ClassifiedRecord{
			Record: domain.Record{
				ID:          id,
				Title:       "Paper " + id,
				URL:         "https://pubmed.ncbi.nlm.nih.gov/" + id + "/",
				Authors:     "Author " + id,
				Journal:     "Journal " + id,
				Abstract:    "Abstract " + id,
				PublishedAt: published,
			},
			Classification: domain.Classification{Accepted: accepted},
		}
	}
	return []domain.ClassifiedRecord{
		mk("1", true), mk("2", false), mk("3", true), mk("4", false), mk("5", true),
	}
}

func TestPartitionIsTotalDisjointCover(t *testing.T) {
	t.Parallel()

	batch := classifiedBatch()
	a := NewAssembler(0, nil)

	accepted, rejected := a.Partition(batch)

	if len(accepted)+len(rejected) != len(batch) {
		t.Fatalf("partition dropped or duplicated records: %d + %d != %d",
			len(accepted), len(rejected), len(batch))
	}

	seen := map[string]int{}
	for _, rec := range accepted {
		seen[rec.Record.ID]++
	}
	for _, rec := range rejected {
		seen[rec.Record.ID]++
	}
	for _, rec := range batch {
		if seen[rec.Record.ID] != 1 {
			t.Fatalf("record %s appears %d times across partitions", rec.Record.ID, seen[rec.Record.ID])
		}
	}

	wantAccepted := []string{"1", "3", "5"}
	for i, id := range wantAccepted {
		if accepted[i].Record.ID != id {
			t.Fatalf("accepted order broken: position %d is %s, want %s", i, accepted[i].Record.ID, id)
		}
	}
}

func TestRankIsStableOnTies(t *testing.T) {
	t.Parallel()

	mk := func(id string, score int) domain.ScoredRecord {
		return domain.ScoredRecord{
			Record: domain.Record{ID: id, Title: "Paper " + id, URL: "https://example.org/" + id},
			Score:  domain.Score{Value: score},
		}
	}
	scored := []domain.ScoredRecord{
		mk("a", 70), mk("b", 95), mk("c", 70), mk("d", 95), mk("e", 10),
	}

	a := NewAssembler(0, nil)
	ranked := a.Rank(scored)

	wantOrder := []string{"b", "d", "a", "c", "e"}
	for i, id := range wantOrder {
		if ranked[i].Record.ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, ranked[i].Record.ID)
		}
	}
}

func TestRankTruncatesToTopN(t *testing.T) {
	t.Parallel()

	var scored []domain.ScoredRecord
	for i := 0; i < 15; i++ {
		scored = append(scored, domain.ScoredRecord{
			Record: domain.Record{ID: string(rune('a' + i)), Title: "P", URL: "u"},
			Score:  domain.Score{Value: i},
		})
	}

	a := NewAssembler(10, nil)
	ranked := a.Rank(scored)

	if len(ranked) != 10 {
		t.Fatalf("expected top 10, got %d", len(ranked))
	}
	if ranked[0].Score.Value != 14 {
		t.Fatalf("expected highest score first, got %d", ranked[0].Score.Value)
	}
}

func TestRankPreservesCountWithFailedScores(t *testing.T) {
	t.Parallel()

	mk := func(id string, score int, defaulted bool) domain.ScoredRecord {
		return domain.ScoredRecord{
			Record: domain.Record{ID: id, Title: "P " + id, URL: "u" + id},
			Score:  domain.Score{Value: score, Defaulted: defaulted},
		}
	}
	scored := []domain.ScoredRecord{
		mk("ok", 60, false), mk("fail1", 0, true), mk("fail2", 0, true),
	}

	a := NewAssembler(0, nil)
	ranked := a.Rank(scored)

	if len(ranked) != 3 {
		t.Fatalf("failed scores must not drop records, got %d of 3", len(ranked))
	}
	if ranked[0].Record.ID != "ok" {
		t.Fatalf("scored record must rank above defaulted zeros, got %s first", ranked[0].Record.ID)
	}
	if ranked[1].Record.ID != "fail1" || ranked[2].Record.ID != "fail2" {
		t.Fatal("defaulted zeros must keep arrival order at the bottom")
	}
}

func TestWriteClassifiedFeedIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	batch := classifiedBatch()

	fixed := time.Date(2026, time.August, 25, 8, 0, 0, 0, time.UTC)
	a := NewAssembler(0, nil)
	a.now = func() time.Time { return fixed }

	ch := Channel{Title: "Accepted", Link: "https://pubmed.ncbi.nlm.nih.gov", Description: "d"}

	first := filepath.Join(dir, "first.xml")
	second := filepath.Join(dir, "second.xml")
	if err := a.WriteClassifiedFeed(first, ch, batch); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := a.WriteClassifiedFeed(second, ch, batch); err != nil {
		t.Fatalf("second write: %v", err)
	}

	a1, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	a2, err := os.ReadFile(second)
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	if !bytes.Equal(a1, a2) {
		t.Fatal("same batch and build time must produce byte-identical artifacts")
	}
}

func TestWriteFeedLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := NewAssembler(0, nil)

	path := filepath.Join(dir, "feed.xml")
	if err := a.WriteClassifiedFeed(path, Channel{Title: "t"}, classifiedBatch()); err != nil {
		t.Fatalf("write: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "feed.xml" {
		t.Fatalf("expected only the published artifact, got %v", entries)
	}
}

func TestWriteDropsRecordsWithoutIdentity(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := NewAssembler(0, nil)

	batch := classifiedBatch()
	batch = append(batch, domain.ClassifiedRecord{
		Record:         domain.Record{Title: "No identity"},
		Classification: domain.Classification{Accepted: true},
	})

	path := filepath.Join(dir, "feed.xml")
	if err := a.WriteClassifiedFeed(path, Channel{Title: "t"}, batch); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(raw), "No identity") {
		t.Fatal("invalid record must be dropped, not emitted with blank fields")
	}
	if got := strings.Count(string(raw), "<item>"); got != 5 {
		t.Fatalf("expected 5 items, got %d", got)
	}
}

func TestWriteRankedFeedRendersBadgesAndRanks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := NewAssembler(0, nil)

	scored := []domain.ScoredRecord{
		{
			Record: domain.Record{ID: "1", Title: "Practice changing trial", URL: "https://example.org/1", Authors: "A", Journal: "NEJM"},
			Score:  domain.Score{Value: 95, Rationale: "Survival benefit."},
		},
		{
			Record: domain.Record{ID: "2", Title: "Interesting cohort", URL: "https://example.org/2", Authors: "B", Journal: "JCO"},
			Score:  domain.Score{Value: 72, Rationale: "Solid methods."},
		},
	}

	path := filepath.Join(dir, "best.xml")
	if err := a.WriteRankedFeed(path, Channel{Title: "Best"}, a.Rank(scored)); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	content := string(raw)

	if !strings.Contains(content, "#1 [95/100] Practice changing trial") {
		t.Fatal("missing rank/score prefix for the top record")
	}
	if !strings.Contains(content, "#2 [72/100] Interesting cohort") {
		t.Fatal("missing rank/score prefix for the second record")
	}
	if !strings.Contains(content, domain.BadgeCritical) {
		t.Fatal("score 95 must render the highest tier badge")
	}
	if !strings.Contains(content, domain.BadgeNotable) {
		t.Fatal("score 72 must render the notable tier badge")
	}
	if strings.Index(content, "Practice changing trial") > strings.Index(content, "Interesting cohort") {
		t.Fatal("ordering must be descending by score")
	}
}
