package cachestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"PubMedCurator/internal/domain"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLoadOnEmptyStoreIsCacheMiss(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	_, err := store.Load(context.Background())
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	published := time.Date(2026, time.August, 20, 9, 30, 0, 0, time.UTC)
	batch := []domain.Record{
		{
			ID:          "40000001",
			Title:       "Signal transduction in oropharyngeal carcinoma",
			Abstract:    "A phase II study.",
			URL:         "https://pubmed.ncbi.nlm.nih.gov/40000001/",
			Authors:     "Rivera M, Chen L",
			Journal:     "J Clin Oncol",
			DOI:         "10.1200/JCO.2026.40000001",
			PublishedAt: published,
		},
		{
			ID:          "40000002",
			Title:       "Adjuvant immunotherapy outcomes",
			URL:         "https://pubmed.ncbi.nlm.nih.gov/40000002/",
			Authors:     "Unknown",
			Journal:     "Unknown",
			PublishedAt: published.Add(time.Hour),
		},
	}

	if err := store.Save(ctx, batch); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(loaded) != len(batch) {
		t.Fatalf("expected %d records, got %d", len(batch), len(loaded))
	}
	for i := range batch {
		if loaded[i] != batch[i] {
			t.Fatalf("record %d mismatch:\n got %+v\nwant %+v", i, loaded[i], batch[i])
		}
	}

	if _, ok := store.SavedAt(ctx); !ok {
		t.Fatal("expected saved_at metadata after Save")
	}
}

func TestSaveOverwritesWholesale(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	first := []domain.Record{
		{ID: "1", Title: "Old A", URL: "https://example.org/1", PublishedAt: time.Unix(0, 0).UTC()},
		{ID: "2", Title: "Old B", URL: "https://example.org/2", PublishedAt: time.Unix(0, 0).UTC()},
		{ID: "3", Title: "Old C", URL: "https://example.org/3", PublishedAt: time.Unix(0, 0).UTC()},
	}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("first Save returned error: %v", err)
	}

	second := []domain.Record{
		{ID: "9", Title: "New", URL: "https://example.org/9", PublishedAt: time.Unix(0, 0).UTC()},
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("second Save returned error: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "9" {
		t.Fatalf("expected only the new batch, got %+v", loaded)
	}
}

func TestLoadPreservesArrivalOrder(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	ids := []string{"c", "a", "b", "z", "m"}
	batch := make([]domain.Record, 0, len(ids))
	for _, id := range ids {
		batch = append(batch, domain.Record{
			ID: id, Title: "T " + id, URL: "https://example.org/" + id,
			PublishedAt: time.Unix(0, 0).UTC(),
		})
	}
	if err := store.Save(ctx, batch); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	for i, id := range ids {
		if loaded[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, loaded[i].ID)
		}
	}
}
