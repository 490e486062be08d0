// Package ledger keeps a local SQLite record of ingestion runs. The vector
// store itself never deduplicates; the ledger lets pdfchat warn when a PDF is
// ingested again or when a collection was built with a different embedding
// model than the one currently configured.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Run is one successful ingestion.
type Run struct {
	// ID is the ledger row id.
	ID int64
	// Collection is the vector store collection written to.
	Collection string
	// Source is the absolute path of the ingested PDF.
	Source string
	// Checksum is the hex SHA-256 of the PDF bytes.
	Checksum string
	// Chunks is the number of records written.
	Chunks int
	// EmbeddingProvider is the provider used for the chunk embeddings.
	EmbeddingProvider string
	// EmbeddingModel is the model used for the chunk embeddings.
	EmbeddingModel string
	// CreatedAt is when the run completed.
	CreatedAt time.Time
}

// Ledger persists and queries ingestion runs. Implementations must be safe
// for concurrent use.
type Ledger interface {
	// Record persists a completed run.
	Record(ctx context.Context, run Run) error
	// FindByChecksum returns earlier runs of the same file into collection.
	FindByChecksum(ctx context.Context, collection, checksum string) ([]Run, error)
	// Latest returns the most recent run for collection, or nil if none.
	Latest(ctx context.Context, collection string) (*Run, error)
	// Recent returns the most recent n runs across all collections, newest first.
	Recent(ctx context.Context, n int) ([]Run, error)
	// Close releases any resources held by the ledger.
	Close() error
}

// SQLiteLedger is a Ledger backed by a local SQLite database.
type SQLiteLedger struct {
	db *sql.DB
}

// DefaultDBPath returns ~/.pdfchat/ledger.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("ledger: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".pdfchat")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("ledger: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "ledger.db"), nil
}

// Open opens (or creates) a SQLiteLedger at path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteLedger, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	// One connection: a single writer, and :memory: stays one database.
	db.SetMaxOpenConns(1)

	l := &SQLiteLedger{db: db}
	if err := l.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *SQLiteLedger) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS ingestion_runs (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    collection         TEXT    NOT NULL,
    source             TEXT    NOT NULL,
    checksum           TEXT    NOT NULL,
    chunks             INTEGER NOT NULL,
    embedding_provider TEXT    NOT NULL,
    embedding_model    TEXT    NOT NULL,
    created_at         INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_ingestion_runs_collection_checksum
    ON ingestion_runs (collection, checksum);
`
	if _, err := l.db.Exec(ddl); err != nil {
		return fmt.Errorf("ledger: migrate: %w", err)
	}
	return nil
}

const selectRun = `SELECT id, collection, source, checksum, chunks, embedding_provider, embedding_model, created_at FROM ingestion_runs`

// Record persists a completed run. A zero CreatedAt is stamped with now.
func (l *SQLiteLedger) Record(ctx context.Context, run Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	const q = `INSERT INTO ingestion_runs
        (collection, source, checksum, chunks, embedding_provider, embedding_model, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := l.db.ExecContext(ctx, q,
		run.Collection, run.Source, run.Checksum, run.Chunks,
		run.EmbeddingProvider, run.EmbeddingModel, run.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("ledger: record: %w", err)
	}
	return nil
}

// FindByChecksum returns earlier runs of the same file, oldest first.
func (l *SQLiteLedger) FindByChecksum(ctx context.Context, collection, checksum string) ([]Run, error) {
	return l.query(ctx, selectRun+` WHERE collection = ? AND checksum = ? ORDER BY created_at ASC, id ASC`, collection, checksum)
}

// Latest returns the most recent run for collection, or nil if none.
func (l *SQLiteLedger) Latest(ctx context.Context, collection string) (*Run, error) {
	row := l.db.QueryRowContext(ctx, selectRun+` WHERE collection = ? ORDER BY created_at DESC, id DESC LIMIT 1`, collection)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: latest: %w", err)
	}
	return &run, nil
}

// Recent returns the most recent n runs, newest first.
func (l *SQLiteLedger) Recent(ctx context.Context, n int) ([]Run, error) {
	return l.query(ctx, selectRun+` ORDER BY created_at DESC, id DESC LIMIT ?`, n)
}

func (l *SQLiteLedger) query(ctx context.Context, q string, args ...any) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: query: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: rows: %w", err)
	}
	return runs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run Run
		ts  int64
	)
	err := s.Scan(&run.ID, &run.Collection, &run.Source, &run.Checksum, &run.Chunks,
		&run.EmbeddingProvider, &run.EmbeddingModel, &ts)
	if err != nil {
		return Run{}, err
	}
	run.CreatedAt = time.Unix(ts, 0)
	return run, nil
}

// Close releases the database connection pool.
func (l *SQLiteLedger) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("ledger: close: %w", err)
	}
	return nil
}
