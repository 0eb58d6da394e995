package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/archiver/internal/apperr"
	"github.com/starford/archiver/internal/fingerprint"
	"github.com/starford/archiver/internal/models"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS books (
	fingerprint TEXT PRIMARY KEY,
	title       BLOB NOT NULL,
	author      BLOB NOT NULL,
	content_ref BLOB NOT NULL,
	submitter   TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_books_created_at ON books(created_at);
`

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}
	if _, err := conn.Exec(sqliteSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply sqlite schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Insert implements Store. ON CONFLICT DO NOTHING makes the existence check
// and the write a single statement.
func (s *SQLite) Insert(ctx context.Context, fp fingerprint.Fingerprint, rec models.Record) error {
	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO books (fingerprint, title, author, content_ref, submitter, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`, fp.Hex(), blob(rec.Title), blob(rec.Author), blob(rec.ContentRef), rec.Submitter, int64(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", fp, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: insert %s: rows affected: %w", fp, err)
	}
	if n == 0 {
		return fmt.Errorf("store: insert %s: %w", fp, apperr.ErrAlreadyExists)
	}
	return nil
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, fp fingerprint.Fingerprint) (models.Record, bool, error) {
	var (
		rec       models.Record
		createdAt int64
	)
	err := s.conn.QueryRowContext(ctx, `
		SELECT title, author, content_ref, submitter, created_at
		FROM books WHERE fingerprint = ?
	`, fp.Hex()).Scan(&rec.Title, &rec.Author, &rec.ContentRef, &rec.Submitter, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, false, nil
	}
	if err != nil {
		return models.Record{}, false, fmt.Errorf("store: get %s: %w", fp, err)
	}
	rec.CreatedAt = uint64(createdAt)
	return rec, true, nil
}

// Exists implements Store.
func (s *SQLite) Exists(ctx context.Context, fp fingerprint.Fingerprint) (bool, error) {
	var one int
	err := s.conn.QueryRowContext(ctx, `SELECT 1 FROM books WHERE fingerprint = ?`, fp.Hex()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: exists %s: %w", fp, err)
	}
	return true, nil
}

// Stats implements Store.
func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	var (
		st   Stats
		last int64
	)
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(MAX(created_at), 0) FROM books`).Scan(&st.Records, &last)
	if err != nil {
		return Stats{}, fmt.Errorf("store: stats: %w", err)
	}
	st.LastCreatedAt = uint64(last)
	return st, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// blob keeps empty fields out of NOT NULL columns as NULL.
func blob(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
