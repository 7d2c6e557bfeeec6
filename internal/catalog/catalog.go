// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog keeps a SQLite full-text index over the archives of all
// queries so papers can be found across queries.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/snowball/internal/querydir"
)

// FileName is the default database file name under the query root.
const FileName = "catalog.db"

const defaultMaxResults = 20

// Store is the catalog database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the catalog database at path and creates the
// schema if it does not exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			paper_id TEXT NOT NULL,
			title TEXT,
			abstract TEXT,
			tldr TEXT,
			authors TEXT,
			date TEXT,
			tag TEXT,
			UNIQUE(query, paper_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_paper_id ON papers(paper_id)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			query TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='papers_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	// External-content FTS4 table kept in sync by triggers.
	ftsStatements := []string{
		`CREATE VIRTUAL TABLE papers_fts USING fts4(content="papers", title, abstract, tldr)`,
		`CREATE TRIGGER papers_bu BEFORE UPDATE ON papers BEGIN
			DELETE FROM papers_fts WHERE docid=old.rowid;
		END`,
		`CREATE TRIGGER papers_bd BEFORE DELETE ON papers BEGIN
			DELETE FROM papers_fts WHERE docid=old.rowid;
		END`,
		`CREATE TRIGGER papers_au AFTER UPDATE ON papers BEGIN
			INSERT INTO papers_fts(docid, title, abstract, tldr) VALUES (new.rowid, new.title, new.abstract, new.tldr);
		END`,
		`CREATE TRIGGER papers_ai AFTER INSERT ON papers BEGIN
			INSERT INTO papers_fts(docid, title, abstract, tldr) VALUES (new.rowid, new.title, new.abstract, new.tldr);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// IndexSummary holds counts from one indexing run.
type IndexSummary struct {
	Indexed int
	Updated int
	Skipped int
	Removed int
	Failed  int
}

// Total returns the number of query archives processed.
func (s IndexSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Index walks the query directories under root whose names start with
// prefix and re-reads an archive only when its modification time changed
// since the last run. Queries whose directory is gone are dropped.
func (s *Store) Index(ctx context.Context, root, prefix string, w io.Writer) (IndexSummary, error) {
	entries, err := os.ReadDir(root)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return IndexSummary{}, fmt.Errorf("reading query root %s: %w", root, err)
	}

	var summary IndexSummary
	seen := map[string]bool{}

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		name := strings.TrimPrefix(entry.Name(), prefix)
		dir := querydir.New(filepath.Join(root, entry.Name()))
		if !dir.Exists(querydir.Archived) {
			continue
		}
		seen[name] = true
		modTime := dir.ModTime(querydir.Archived).UTC().Format(time.RFC3339Nano)

		var stored string
		err := s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE query = ?`, name,
		).Scan(&stored)
		if err == nil && stored == modTime {
			fmt.Fprintf(w, "skipped  %s\n", name)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		n, err := s.ingest(ctx, name, dir, modTime)
		if err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", name, err)
			summary.Failed++
			continue
		}
		if isUpdate {
			fmt.Fprintf(w, "updated  %s (%d papers)\n", name, n)
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d papers)\n", name, n)
			summary.Indexed++
		}
	}

	removed, err := s.prune(ctx, seen)
	if err != nil {
		return summary, err
	}
	summary.Removed = removed

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, removed: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Removed, summary.Failed)
	return summary, nil
}

func (s *Store) ingest(ctx context.Context, name string, dir querydir.Dir, modTime string) (int, error) {
	papers, err := dir.ReadPapers(querydir.Archived)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM papers WHERE query = ?`, name); err != nil {
		return 0, fmt.Errorf("deleting old papers: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (query, paper_id, title, abstract, tldr, authors, date, tag)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(query, paper_id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range papers {
		if p.PaperID == "" {
			continue
		}
		authors, _ := json.Marshal(p.Details.Authors)
		if _, err := stmt.ExecContext(ctx,
			name, p.PaperID, p.Details.Title, p.Details.Abstract, p.Details.Summary(),
			string(authors), p.Details.PublicationDate, string(p.Tag),
		); err != nil {
			return 0, fmt.Errorf("inserting paper %s: %w", p.PaperID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO indexing_status (query, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(query) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		name, modTime,
	); err != nil {
		return 0, fmt.Errorf("updating indexing status: %w", err)
	}
	return len(papers), tx.Commit()
}

func (s *Store) prune(ctx context.Context, seen map[string]bool) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT query FROM indexing_status`)
	if err != nil {
		return 0, fmt.Errorf("listing indexed queries: %w", err)
	}
	var gone []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning row: %w", err)
		}
		if !seen[name] {
			gone = append(gone, name)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, name := range gone {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM papers WHERE query = ?`, name); err != nil {
			return 0, fmt.Errorf("dropping %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM indexing_status WHERE query = ?`, name); err != nil {
			return 0, fmt.Errorf("dropping %s: %w", name, err)
		}
	}
	return len(gone), nil
}

// Hit is one paper found by Search.
type Hit struct {
	Query   string   `json:"query" yaml:"query"`
	PaperID string   `json:"paper_id" yaml:"paper_id"`
	Title   string   `json:"title" yaml:"title"`
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Date    string   `json:"date,omitempty" yaml:"date,omitempty"`
	Tag     string   `json:"tag" yaml:"tag"`
}

// Search returns papers whose title, abstract or summary match the FTS
// query text. limit <= 0 uses a default of 20.
func (s *Store) Search(ctx context.Context, text string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = defaultMaxResults
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.query, p.paper_id, p.title, p.authors, p.date, p.tag
		 FROM papers_fts
		 JOIN papers p ON p.rowid = papers_fts.docid
		 WHERE papers_fts MATCH ?
		 ORDER BY p.query, p.paper_id
		 LIMIT ?`, text, limit)
	if err != nil {
		return nil, fmt.Errorf("searching catalog: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			h                    Hit
			title, authors, date sql.NullString
			tag                  sql.NullString
		)
		if err := rows.Scan(&h.Query, &h.PaperID, &title, &authors, &date, &tag); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		h.Title, h.Date, h.Tag = title.String, date.String, tag.String
		if authors.Valid {
			json.Unmarshal([]byte(authors.String), &h.Authors)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
