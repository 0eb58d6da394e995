package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/starford/archiver/internal/apperr"
	"github.com/starford/archiver/internal/fingerprint"
	"github.com/starford/archiver/internal/models"
	"github.com/starford/archiver/internal/store/migrations"
)

// Postgres is a Store backed by PostgreSQL through the pgx stdlib driver.
type Postgres struct {
	db *sql.DB
}

// gooseUpContext is a seam for tests.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// OpenPostgres connects to dsn and applies the embedded migrations.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return NewPostgres(db), nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("store: goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// NewPostgres wraps an already migrated connection.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Insert implements Store.
func (p *Postgres) Insert(ctx context.Context, fp fingerprint.Fingerprint, rec models.Record) error {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO books (fingerprint, title, author, content_ref, submitter, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (fingerprint) DO NOTHING`,
		fp[:], blob(rec.Title), blob(rec.Author), blob(rec.ContentRef), rec.Submitter, int64(rec.CreatedAt))
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
func (p *Postgres) Get(ctx context.Context, fp fingerprint.Fingerprint) (models.Record, bool, error) {
	var (
		rec       models.Record
		createdAt int64
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT title, author, content_ref, submitter, created_at
		FROM books WHERE fingerprint = $1`, fp[:]).
		Scan(&rec.Title, &rec.Author, &rec.ContentRef, &rec.Submitter, &createdAt)
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
func (p *Postgres) Exists(ctx context.Context, fp fingerprint.Fingerprint) (bool, error) {
	var ok bool
	err := p.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE fingerprint = $1)`, fp[:]).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("store: exists %s: %w", fp, err)
	}
	return ok, nil
}

// Stats implements Store.
func (p *Postgres) Stats(ctx context.Context) (Stats, error) {
	var (
		st   Stats
		last int64
	)
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(MAX(created_at), 0) FROM books`).Scan(&st.Records, &last)
	if err != nil {
		return Stats{}, fmt.Errorf("store: stats: %w", err)
	}
	st.LastCreatedAt = uint64(last)
	return st, nil
}

// Close implements Store.
func (p *Postgres) Close() error {
	return p.db.Close()
}
