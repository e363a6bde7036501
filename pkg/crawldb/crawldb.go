package crawldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"skinscraper/pkg/crawler"
)

// DB stores crawl runs and the images each run saved
type DB struct {
	db      *sql.DB
	dialect dialect
}

type dialect struct {
	driver   string
	idColumn string
}

func (d dialect) rebind(query string) string {
	if d.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Open opens the crawl history store. Supported drivers are sqlite and postgres.
func Open(driver, dsn string) (*DB, error) {
	var (
		d   dialect
		db  *sql.DB
		err error
	)

	switch driver {
	case "sqlite", "sqlite3":
		d = dialect{driver: "sqlite", idColumn: "INTEGER PRIMARY KEY AUTOINCREMENT"}
		if dsn == "" {
			return nil, fmt.Errorf("sqlite database path is required")
		}
		if dir := filepath.Dir(dsn); dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?mode=rwc"
		}
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// SQLite only supports one writer
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(time.Hour)

		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}

	case "postgres", "postgresql":
		d = dialect{driver: "postgres", idColumn: "BIGSERIAL PRIMARY KEY"}
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	cdb := &DB{db: db, dialect: d}
	if err := cdb.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return cdb, nil
}

// Close closes the database connection
func (c *DB) Close() error {
	return c.db.Close()
}

func (c *DB) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id ` + c.dialect.idColumn + `,
			listing_root TEXT NOT NULL,
			base_url TEXT NOT NULL,
			search_term TEXT NOT NULL DEFAULT '',
			pages INTEGER NOT NULL,
			resumed INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL DEFAULT '',
			images INTEGER NOT NULL DEFAULT 0,
			duplicates INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			pages_attempted INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'running'
		)`,
		`CREATE TABLE IF NOT EXISTS images (
			run_id BIGINT NOT NULL REFERENCES runs(id),
			idx INTEGER NOT NULL,
			source_url TEXT NOT NULL,
			profile_url TEXT NOT NULL,
			page INTEGER NOT NULL,
			tags_json TEXT NOT NULL,
			PRIMARY KEY (run_id, idx)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_images_source ON images(source_url)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(listing_root)`,
	}

	for _, query := range queries {
		if _, err := c.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}
	return nil
}

// BeginRun inserts a run row and returns its id
func (c *DB) BeginRun(ctx context.Context, info crawler.RunInfo) (int64, error) {
	resumed := 0
	if info.Resumed {
		resumed = 1
	}

	var id int64
	err := c.db.QueryRowContext(ctx, c.dialect.rebind(`
		INSERT INTO runs (listing_root, base_url, search_term, pages, resumed, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?, 'running')
		RETURNING id`),
		info.ListingRoot, info.BaseURL, info.SearchTerm, info.Pages, resumed, formatTime(info.StartedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// RecordImage stores one saved image of a run
func (c *DB) RecordImage(ctx context.Context, runID int64, rec crawler.ImageRecord) error {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to serialize tags: %w", err)
	}

	_, err = c.db.ExecContext(ctx, c.dialect.rebind(`
		INSERT INTO images (run_id, idx, source_url, profile_url, page, tags_json)
		VALUES (?, ?, ?, ?, ?, ?)`),
		runID, rec.Index, rec.SourceURL, rec.ProfileURL, rec.Page, string(tagsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert image %d: %w", rec.Index, err)
	}
	return nil
}

// FinishRun stores the final totals and status of a run
func (c *DB) FinishRun(ctx context.Context, runID int64, res *crawler.Result, status string) error {
	_, err := c.db.ExecContext(ctx, c.dialect.rebind(`
		UPDATE runs
		SET finished_at = ?, images = ?, duplicates = ?, skipped = ?, pages_attempted = ?, status = ?
		WHERE id = ?`),
		formatTime(res.FinishedAt), len(res.Records), res.Duplicates, res.Skipped, res.PagesAttempted, status, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run %d: %w", runID, err)
	}
	return nil
}

// Run is one row of crawl history
type Run struct {
	ID             int64
	ListingRoot    string
	BaseURL        string
	SearchTerm     string
	Pages          int
	Resumed        bool
	StartedAt      time.Time
	FinishedAt     time.Time
	Images         int
	Duplicates     int
	Skipped        int
	PagesAttempted int
	Status         string
}

// Duration returns how long the run took, or zero if it never finished
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Runs returns the most recent runs, newest first
func (c *DB) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := c.db.QueryContext(ctx, c.dialect.rebind(`
		SELECT id, listing_root, base_url, search_term, pages, resumed, started_at, finished_at,
		       images, duplicates, skipped, pages_attempted, status
		FROM runs
		ORDER BY id DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			resumed           int
			started, finished string
		)
		if err := rows.Scan(&r.ID, &r.ListingRoot, &r.BaseURL, &r.SearchTerm, &r.Pages, &resumed,
			&started, &finished, &r.Images, &r.Duplicates, &r.Skipped, &r.PagesAttempted, &r.Status); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Resumed = resumed != 0
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Images returns the images saved by a run in index order
func (c *DB) Images(ctx context.Context, runID int64) ([]crawler.ImageRecord, error) {
	rows, err := c.db.QueryContext(ctx, c.dialect.rebind(`
		SELECT idx, source_url, profile_url, page, tags_json
		FROM images
		WHERE run_id = ?
		ORDER BY idx`), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var images []crawler.ImageRecord
	for rows.Next() {
		var (
			rec      crawler.ImageRecord
			tagsJSON string
		)
		if err := rows.Scan(&rec.Index, &rec.SourceURL, &rec.ProfileURL, &rec.Page, &tagsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags of image %d: %w", rec.Index, err)
		}
		images = append(images, rec)
	}
	return images, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
