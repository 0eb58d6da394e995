// Package testutil provides shared test helpers for stores, registries and events.
package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/archiver/internal/clock"
	"github.com/starford/archiver/internal/models"
	"github.com/starford/archiver/internal/registry"
	"github.com/starford/archiver/internal/store"
)

// TestSQLite creates a temporary SQLite store that is automatically cleaned up.
func TestSQLite(t *testing.T) *store.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "archiver-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	s, err := store.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestFS creates a file-system store under a temporary directory.
func TestFS(t *testing.T) *store.FS {
	t.Helper()
	s, err := store.OpenFS(filepath.Join(t.TempDir(), "records"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// Stores returns constructors for every backend that needs no external service.
func Stores(t *testing.T) map[string]func() store.Store {
	return map[string]func() store.Store{
		store.DriverMemory: func() store.Store { return store.NewMemory() },
		store.DriverSQLite: func() store.Store { return TestSQLite(t) },
		store.DriverFS:     func() store.Store { return TestFS(t) },
	}
}

// Events records BookArchived notifications. Safe for concurrent use.
type Events struct {
	mu     sync.Mutex
	events []models.BookArchived
}

// PublishArchived implements registry.EventSink.
func (e *Events) PublishArchived(ev models.BookArchived) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

// All returns a snapshot of the recorded events.
func (e *Events) All() []models.BookArchived {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.BookArchived(nil), e.events...)
}

// TestRegistry returns an in-memory registry with a sequence clock and an
// event recorder.
func TestRegistry(t *testing.T) (*registry.Registry, *Events) {
	t.Helper()
	events := &Events{}
	reg := registry.New(store.NewMemory(), clock.NewSequence(0), registry.WithSink(events))
	return reg, events
}
