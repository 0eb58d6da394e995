package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"

	"github.com/starford/archiver/internal/apperr"
	"github.com/starford/archiver/internal/fingerprint"
)

func newPostgresWithMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

var insertQuery = regexp.QuoteMeta(`INSERT INTO books (fingerprint, title, author, content_ref, submitter, created_at)`)

func TestPostgresInsert_Success(t *testing.T) {
	p, mock := newPostgresWithMock(t)
	fp := fingerprint.Derive([]byte("title"), []byte("author"))

	mock.ExpectExec(insertQuery).
		WithArgs(fp[:], []byte("title"), []byte("author"), []byte("ipfs://x"), "C1", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := p.Insert(context.Background(), fp, sampleRecord()); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresInsert_Conflict(t *testing.T) {
	p, mock := newPostgresWithMock(t)
	fp := fingerprint.Derive([]byte("title"), []byte("author"))

	mock.ExpectExec(insertQuery).WillReturnResult(sqlmock.NewResult(0, 0))

	err := p.Insert(context.Background(), fp, sampleRecord())
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestPostgresInsert_DBErrorPassesThrough(t *testing.T) {
	p, mock := newPostgresWithMock(t)
	fp := fingerprint.Derive([]byte("title"), []byte("author"))
	boom := errors.New("disk full")

	mock.ExpectExec(insertQuery).WillReturnError(boom)

	err := p.Insert(context.Background(), fp, sampleRecord())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatal("storage failure must not look like a duplicate")
	}
}

func TestPostgresGet(t *testing.T) {
	p, mock := newPostgresWithMock(t)
	fp := fingerprint.Derive([]byte("title"), []byte("author"))
	q := `(?s)SELECT\s+title,\s*author,\s*content_ref,\s*submitter,\s*created_at\s+FROM\s+books\s+WHERE\s+fingerprint\s*=\s*\$1`

	rows := sqlmock.NewRows([]string{"title", "author", "content_ref", "submitter", "created_at"}).
		AddRow([]byte("title"), []byte("author"), []byte("ipfs://x"), "C1", int64(5))
	mock.ExpectQuery(q).WithArgs(fp[:]).WillReturnRows(rows)

	got, ok, err := p.Get(context.Background(), fp)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if !got.Equal(sampleRecord()) {
		t.Errorf("got %+v", got)
	}

	mock.ExpectQuery(q).WithArgs(fp[:]).WillReturnError(sql.ErrNoRows)
	if _, ok, err := p.Get(context.Background(), fp); ok || err != nil {
		t.Errorf("missing record: ok=%v err=%v", ok, err)
	}
}

func TestPostgresExistsAndStats(t *testing.T) {
	p, mock := newPostgresWithMock(t)
	fp := fingerprint.Derive([]byte("title"), []byte("author"))

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(fp[:]).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := p.Exists(context.Background(), fp)
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "max"}).AddRow(int64(3), int64(42)))
	st, err := p.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st != (Stats{Records: 3, LastCreatedAt: 42}) {
		t.Errorf("stats = %+v", st)
	}
}

func TestRunMigrationsUsesEmbeddedFS(t *testing.T) {
	called := false
	orig := gooseUpContext
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		called = true
		if dir != "." {
			t.Errorf("dir = %q, want .", dir)
		}
		return nil
	}
	t.Cleanup(func() { gooseUpContext = orig })

	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := runMigrations(context.Background(), db); err != nil {
		t.Fatalf("runMigrations: %v", err)
	}
	if !called {
		t.Fatal("goose was not invoked")
	}
}

func TestRunMigrationsWrapsError(t *testing.T) {
	orig := gooseUpContext
	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	t.Cleanup(func() { gooseUpContext = orig })

	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := runMigrations(context.Background(), db); err == nil {
		t.Fatal("expected error")
	}
}
