package cachestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"PubMedCurator/internal/domain"
	"PubMedCurator/internal/ports"
)

// SQLiteStore persists the last successful fetch batch wholesale. It keeps
// no freshness policy; staleness judgment belongs to the fetch cascade.
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.CacheStore = (*SQLiteStore)(nil)

// Open creates the database file (and parent directory) if needed.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			position     INTEGER PRIMARY KEY,
			id           TEXT NOT NULL,
			title        TEXT NOT NULL,
			abstract     TEXT NOT NULL DEFAULT '',
			url          TEXT NOT NULL,
			authors      TEXT NOT NULL DEFAULT '',
			journal      TEXT NOT NULL DEFAULT '',
			doi          TEXT NOT NULL DEFAULT '',
			published_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("init cache schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save replaces the stored batch with the given records, preserving their
// arrival order. Overwrite semantics: a partial previous batch never
// survives alongside a new one.
func (s *SQLiteStore) Save(ctx context.Context, records []domain.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	for i, rec := range records {
		query, args, err := sq.Insert("records").
			Columns("position", "id", "title", "abstract", "url", "authors", "journal", "doi", "published_at").
			Values(i, rec.ID, rec.Title, rec.Abstract, rec.URL, rec.Authors, rec.Journal, rec.DOI,
				rec.PublishedAt.UTC().Format(time.RFC3339)).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}

	savedAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES ('saved_at', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, savedAt); err != nil {
		return fmt.Errorf("update saved_at: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cache tx: %w", err)
	}
	return nil
}

// Load returns the last saved batch in its original order, or ErrCacheMiss
// when nothing usable is stored.
func (s *SQLiteStore) Load(ctx context.Context) ([]domain.Record, error) {
	query, args, err := sq.Select("id", "title", "abstract", "url", "authors", "journal", "doi", "published_at").
		From("records").
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query records: %v", domain.ErrCacheMiss, err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var rec domain.Record
		var published string
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Abstract, &rec.URL,
			&rec.Authors, &rec.Journal, &rec.DOI, &published); err != nil {
			return nil, fmt.Errorf("%w: scan record: %v", domain.ErrCacheMiss, err)
		}
		if ts, err := time.Parse(time.RFC3339, published); err == nil {
			rec.PublishedAt = ts
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate records: %v", domain.ErrCacheMiss, err)
	}

	if len(records) == 0 {
		return nil, domain.ErrCacheMiss
	}
	return records, nil
}

// SavedAt reports when the stored batch was written, if one exists.
func (s *SQLiteStore) SavedAt(ctx context.Context) (time.Time, bool) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'saved_at'").Scan(&value)
	if err != nil {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
