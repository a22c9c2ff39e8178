package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/amishk599/jobfacet/internal/model"
)

var _ model.ResultStore = (*SQLiteStore)(nil)

// SQLiteStore keeps enriched postings in a SQLite database. A posting with a
// URL replaces any earlier row for that URL.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// analyzed_postings table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS analyzed_postings (
			id            TEXT PRIMARY KEY,
			url           TEXT NOT NULL DEFAULT '',
			source        TEXT NOT NULL DEFAULT '',
			title         TEXT NOT NULL DEFAULT '',
			company       TEXT NOT NULL DEFAULT '',
			location      TEXT NOT NULL DEFAULT '',
			publish_date  TEXT NOT NULL DEFAULT '',
			description   TEXT NOT NULL DEFAULT '',
			facets_json   TEXT NOT NULL,
			metadata_json TEXT NOT NULL,
			error         TEXT NOT NULL DEFAULT '',
			analyzed_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyzed_postings_url ON analyzed_postings (url)`,
		`CREATE INDEX IF NOT EXISTS idx_analyzed_postings_at ON analyzed_postings (analyzed_at)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating analyzed_postings schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Save writes postings in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, postings []model.EnrichedPosting) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, p := range postings {
		facets, err := json.Marshal(p.Facets)
		if err != nil {
			return fmt.Errorf("marshal facets for %q: %w", p.URL, err)
		}
		meta, err := json.Marshal(p.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %q: %w", p.URL, err)
		}

		if !model.IsMissing(p.URL) {
			if _, err := tx.ExecContext(ctx, "DELETE FROM analyzed_postings WHERE url = ?", p.URL); err != nil {
				return fmt.Errorf("replacing posting %s: %w", p.URL, err)
			}
		}

		analyzedAt := p.Metadata.AnalyzedAt
		if analyzedAt.IsZero() {
			analyzedAt = time.Now()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO analyzed_postings
				(id, url, source, title, company, location, publish_date, description, facets_json, metadata_json, error, analyzed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), p.URL, p.Source, p.Title, p.Company, p.Location, p.PublishDate, p.Description,
			string(facets), string(meta), p.Error, analyzedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("inserting posting %q: %w", p.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Recent returns up to limit postings, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]model.EnrichedPosting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, source, title, company, location, publish_date, description, facets_json, metadata_json, error
		FROM analyzed_postings ORDER BY analyzed_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent postings: %w", err)
	}
	defer rows.Close()

	var out []model.EnrichedPosting
	for rows.Next() {
		var (
			p            model.EnrichedPosting
			facets, meta string
		)
		if err := rows.Scan(&p.URL, &p.Source, &p.Title, &p.Company, &p.Location, &p.PublishDate,
			&p.Description, &facets, &meta, &p.Error); err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}
		if err := json.Unmarshal([]byte(facets), &p.Facets); err != nil {
			return nil, fmt.Errorf("decoding facets for %q: %w", p.URL, err)
		}
		if err := json.Unmarshal([]byte(meta), &p.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for %q: %w", p.URL, err)
		}
		p.Facets = p.Facets.Normalize()
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns the number of stored postings.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analyzed_postings").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting postings: %w", err)
	}
	return count, nil
}

// Cleanup deletes postings analyzed longer ago than olderThan.
func (s *SQLiteStore) Cleanup(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan).UnixNano()
	_, err := s.db.Exec("DELETE FROM analyzed_postings WHERE analyzed_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("cleaning up postings older than %v: %w", olderThan, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
