package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/archiver/internal/apperr"
	"github.com/starford/archiver/internal/fingerprint"
	"github.com/starford/archiver/internal/models"
)

func testSQLite(t *testing.T) *SQLite {
	t.Helper()
	f, err := os.CreateTemp("", "archiver-test-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	s, err := OpenSQLite(f.Name())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testFS(t *testing.T) *FS {
	t.Helper()
	s, err := OpenFS(filepath.Join(t.TempDir(), "records"))
	require.NoError(t, err)
	return s
}

// backends lists every Store that runs without external services.
func backends(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		DriverMemory: func() Store { return NewMemory() },
		DriverSQLite: func() Store { return testSQLite(t) },
		DriverFS:     func() Store { return testFS(t) },
	}
}

func sampleRecord() models.Record {
	return models.Record{
		Title:      []byte("title"),
		Author:     []byte("author"),
		ContentRef: []byte("ipfs://x"),
		Submitter:  "C1",
		CreatedAt:  5,
	}
}

func TestStoreContract(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open()
			fp := fingerprint.Derive([]byte("title"), []byte("author"))

			_, ok, err := s.Get(ctx, fp)
			require.NoError(t, err)
			assert.False(t, ok, "record present before insert")

			exists, err := s.Exists(ctx, fp)
			require.NoError(t, err)
			assert.False(t, exists)

			rec := sampleRecord()
			require.NoError(t, s.Insert(ctx, fp, rec))

			got, ok, err := s.Get(ctx, fp)
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, rec.Equal(got), "got %+v", got)

			exists, err = s.Exists(ctx, fp)
			require.NoError(t, err)
			assert.True(t, exists)

			dup := rec
			dup.ContentRef = []byte("ipfs://y")
			dup.Submitter = "C2"
			err = s.Insert(ctx, fp, dup)
			require.ErrorIs(t, err, apperr.ErrAlreadyExists)

			got, _, err = s.Get(ctx, fp)
			require.NoError(t, err)
			assert.Equal(t, "ipfs://x", string(got.ContentRef), "duplicate insert overwrote the record")

			st, err := s.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, Stats{Records: 1, LastCreatedAt: 5}, st)
		})
	}
}

func TestStoreEmptyFields(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open()
			fp := fingerprint.Derive(nil, nil)

			require.NoError(t, s.Insert(ctx, fp, models.Record{Submitter: "C1", CreatedAt: 1}))
			got, ok, err := s.Get(ctx, fp)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Empty(t, got.Title)
			assert.Empty(t, got.Author)
			assert.Empty(t, got.ContentRef)
			assert.Equal(t, "C1", got.Submitter)
		})
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open()
			fp := fingerprint.Derive([]byte("title"), []byte("author"))

			rec := sampleRecord()
			require.NoError(t, s.Insert(ctx, fp, rec))
			rec.Title[0] = 'X'

			got, _, err := s.Get(ctx, fp)
			require.NoError(t, err)
			got.ContentRef[0] = 'Z'

			again, _, err := s.Get(ctx, fp)
			require.NoError(t, err)
			assert.Equal(t, "title", string(again.Title))
			assert.Equal(t, "ipfs://x", string(again.ContentRef))
		})
	}
}

func TestStoreConcurrentInsert(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open()
			fp := fingerprint.Derive([]byte("race"), []byte("condition"))

			const n = 32
			var (
				wins, dups atomic.Int32
				wg         sync.WaitGroup
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					rec := sampleRecord()
					rec.Submitter = fmt.Sprintf("caller-%d", i)
					err := s.Insert(ctx, fp, rec)
					switch {
					case err == nil:
						wins.Add(1)
					case errors.Is(err, apperr.ErrAlreadyExists):
						dups.Add(1)
					default:
						t.Errorf("insert: %v", err)
					}
				}(i)
			}
			wg.Wait()

			assert.EqualValues(t, 1, wins.Load())
			assert.EqualValues(t, n-1, dups.Load())
		})
	}
}

func TestStatsTracksHighestCreatedAt(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open()
			for i, at := range []uint64{7, 3, 11} {
				fp := fingerprint.Derive([]byte(fmt.Sprintf("t%d", i)), []byte("a"))
				require.NoError(t, s.Insert(ctx, fp, models.Record{Submitter: "c", CreatedAt: at}))
			}
			st, err := s.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, Stats{Records: 3, LastCreatedAt: 11}, st)
		})
	}
}

func TestFSLayout(t *testing.T) {
	s := testFS(t)
	fp := fingerprint.Derive([]byte("title"), []byte("author"))
	require.NoError(t, s.Insert(context.Background(), fp, sampleRecord()))

	h := fp.Hex()
	_, err := os.Stat(filepath.Join(s.root, h[:2], h+".cbor"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(s.root, h[:2]))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "etcd"})
	require.Error(t, err)
}

func TestOpenMemory(t *testing.T) {
	s, err := Open(context.Background(), Config{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
}
