package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matsen/diario/internal/record"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// selectRecordFields contains the standard field list for SELECT queries.
const selectRecordFields = `id, source, text, timestamp`

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			text TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			ts_unix INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_records_source ON records(source);
		CREATE INDEX IF NOT EXISTS idx_records_ts ON records(ts_unix);

		-- Full-text search virtual table (standalone, not external content)
		CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
			id UNINDEXED,
			text
		);

		-- Embedding metadata for semantic index staleness detection
		CREATE TABLE IF NOT EXISTS embedding_metadata (
			record_id TEXT PRIMARY KEY,
			model_name TEXT NOT NULL,
			indexed_at INTEGER NOT NULL,
			text_hash TEXT NOT NULL
		);
	`

	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return createAssignmentsSchema(db)
}

// RebuildFromJSONL clears the records tables and rebuilds them from a JSONL file.
func (d *DB) RebuildFromJSONL(jsonlPath string) (int, error) {
	records, err := ReadAll(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading JSONL: %w", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM records"); err != nil {
		return 0, fmt.Errorf("clearing records table: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM records_fts"); err != nil {
		return 0, fmt.Errorf("clearing records_fts table: %w", err)
	}

	recordsStmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO records (id, source, text, timestamp, ts_unix)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing records insert: %w", err)
	}
	defer recordsStmt.Close()

	ftsStmt, err := tx.Prepare(`INSERT INTO records_fts (id, text) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for _, r := range records {
		ts := r.Timestamp.UTC()
		if _, err := recordsStmt.Exec(r.ID, r.Source, r.Text, ts.Format(time.RFC3339Nano), ts.Unix()); err != nil {
			return 0, fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
		if _, err := ftsStmt.Exec(r.ID, r.Text); err != nil {
			return 0, fmt.Errorf("inserting fts for %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}

	return len(records), nil
}

// GetByID retrieves a record by its ID. Returns nil if not found.
func (d *DB) GetByID(id string) (*record.Record, error) {
	row := d.db.QueryRow(`SELECT `+selectRecordFields+` FROM records WHERE id = ?`, id)
	return scanRecord(row)
}

// Search performs a full-text search and returns matching records, best match first.
func (d *DB) Search(query string, limit int) ([]record.Record, error) {
	ftsQuery := prepareFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	rows, err := d.db.Query(`
		SELECT r.id, r.source, r.text, r.timestamp
		FROM records_fts
		JOIN records r ON r.id = records_fts.id
		WHERE records_fts MATCH ?
		ORDER BY records_fts.rank
		LIMIT ?`, ftsQuery, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListAll returns all records in chronological order, optionally limited.
func (d *DB) ListAll(limit int) ([]record.Record, error) {
	return d.list("", limit)
}

// ListBySource returns the records of one source in chronological order.
func (d *DB) ListBySource(source string, limit int) ([]record.Record, error) {
	return d.list(source, limit)
}

func (d *DB) list(source string, limit int) ([]record.Record, error) {
	query := `SELECT ` + selectRecordFields + ` FROM records`
	var args []interface{}

	if source != "" {
		query += " WHERE source = ?"
		args = append(args, source)
	}
	query += " ORDER BY ts_unix, rowid LIMIT ?"
	args = append(args, limitOrAll(limit))

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Count returns the total number of records.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&count)
	return count, err
}

// CountBySource returns the number of records per source.
func (d *DB) CountBySource() (map[string]int, error) {
	rows, err := d.db.Query("SELECT source, COUNT(*) FROM records GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, err
		}
		counts[source] = n
	}
	return counts, rows.Err()
}

// limitOrAll maps a non-positive limit to SQLite's "no limit".
func limitOrAll(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*record.Record, error) {
	var r record.Record
	var ts string

	if err := s.Scan(&r.ID, &r.Source, &r.Text, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp for %s: %w", r.ID, err)
	}
	r.Timestamp = parsed

	return &r, nil
}

func scanRecords(rows *sql.Rows) ([]record.Record, error) {
	var records []record.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if r != nil {
			records = append(records, *r)
		}
	}
	return records, rows.Err()
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	// For simple queries, just quote the terms
	// FTS5 uses double quotes for phrase matching
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// If query contains special chars, quote it
	if strings.ContainsAny(query, "\"*+-:(){}[]^~.,'?!/") {
		// Escape internal quotes and wrap in quotes
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}

// EmbeddingMetadata represents embedding metadata stored in the database.
type EmbeddingMetadata struct {
	RecordID  string
	ModelName string
	IndexedAt int64  // Unix timestamp
	TextHash  string // BLAKE2b-256 of the record text, hex
}

// SaveEmbeddingMetadata saves or updates embedding metadata for a record.
func (d *DB) SaveEmbeddingMetadata(meta EmbeddingMetadata) error {
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO embedding_metadata (record_id, model_name, indexed_at, text_hash)
		VALUES (?, ?, ?, ?)
	`, meta.RecordID, meta.ModelName, meta.IndexedAt, meta.TextHash)
	return err
}

// SaveEmbeddingMetadataBatch replaces all embedding metadata in one transaction.
func (d *DB) SaveEmbeddingMetadataBatch(metas []EmbeddingMetadata) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM embedding_metadata"); err != nil {
		return fmt.Errorf("clearing embedding metadata: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO embedding_metadata (record_id, model_name, indexed_at, text_hash)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing metadata insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range metas {
		if _, err := stmt.Exec(m.RecordID, m.ModelName, m.IndexedAt, m.TextHash); err != nil {
			return fmt.Errorf("inserting metadata for %s: %w", m.RecordID, err)
		}
	}

	return tx.Commit()
}

// GetEmbeddingMetadata retrieves embedding metadata for a record.
func (d *DB) GetEmbeddingMetadata(recordID string) (*EmbeddingMetadata, error) {
	var meta EmbeddingMetadata
	err := d.db.QueryRow(`
		SELECT record_id, model_name, indexed_at, text_hash
		FROM embedding_metadata
		WHERE record_id = ?
	`, recordID).Scan(&meta.RecordID, &meta.ModelName, &meta.IndexedAt, &meta.TextHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &meta, nil
}

// ListEmbeddingMetadata returns all embedding metadata keyed by record ID.
func (d *DB) ListEmbeddingMetadata() (map[string]EmbeddingMetadata, error) {
	rows, err := d.db.Query(`SELECT record_id, model_name, indexed_at, text_hash FROM embedding_metadata`)
	if err != nil {
		return nil, fmt.Errorf("listing embedding metadata: %w", err)
	}
	defer rows.Close()

	metas := make(map[string]EmbeddingMetadata)
	for rows.Next() {
		var m EmbeddingMetadata
		if err := rows.Scan(&m.RecordID, &m.ModelName, &m.IndexedAt, &m.TextHash); err != nil {
			return nil, err
		}
		metas[m.RecordID] = m
	}
	return metas, rows.Err()
}

// ClearEmbeddingMetadata removes all embedding metadata.
func (d *DB) ClearEmbeddingMetadata() error {
	_, err := d.db.Exec("DELETE FROM embedding_metadata")
	return err
}

// CountEmbeddingMetadata returns the number of records with embedding metadata.
func (d *DB) CountEmbeddingMetadata() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM embedding_metadata").Scan(&count)
	return count, err
}
