// Package repository persists local operation history: one row per
// finished upload or download. Purely informational; pipeline failures
// never depend on it.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Record is one finished operation.
type Record struct {
	ID         string
	Kind       string // "upload" or "download"
	Identifier string // bvid for uploads, source url for downloads
	Title      string
	Files      int
	Bytes      int64
	Elapsed    time.Duration
	Line       string // upload line used, empty for downloads
	CreatedAt  time.Time
}

// Operation kinds.
const (
	KindUpload   = "upload"
	KindDownload = "download"
)

// HistoryStore is a sqlite-backed history log.
type HistoryStore struct {
	db *sql.DB
}

// Open opens (and if needed creates) the history database.
func Open(path string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS history (
		id         TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		identifier TEXT NOT NULL,
		title      TEXT NOT NULL DEFAULT '',
		files      INTEGER NOT NULL DEFAULT 0,
		bytes      INTEGER NOT NULL DEFAULT 0,
		elapsed_ms INTEGER NOT NULL DEFAULT 0,
		line       TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_kind_created ON history(kind, created_at DESC);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Add inserts a record, assigning id and timestamp when unset.
func (s *HistoryStore) Add(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (id, kind, identifier, title, files, bytes, elapsed_ms, line, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, rec.Identifier, rec.Title, rec.Files, rec.Bytes,
		rec.Elapsed.Milliseconds(), rec.Line, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

// Recent returns the newest records, optionally filtered by kind.
func (s *HistoryStore) Recent(ctx context.Context, kind string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, kind, identifier, title, files, bytes, elapsed_ms, line, created_at
		FROM history`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var elapsedMS int64
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Identifier, &rec.Title,
			&rec.Files, &rec.Bytes, &elapsedMS, &rec.Line, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}
