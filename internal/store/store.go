// Package store persists archived records keyed by fingerprint.
//
// Every backend implements Insert as an atomic insert-if-absent: of any
// number of concurrent insertions for one fingerprint exactly one succeeds
// and the rest fail with apperr.ErrAlreadyExists. There is no update or
// delete.
package store

import (
	"context"
	"fmt"

	"github.com/starford/archiver/internal/fingerprint"
	"github.com/starford/archiver/internal/models"
)

// Store is the durable fingerprint -> record mapping.
type Store interface {
	// Insert stores rec under fp unless fp is already present.
	Insert(ctx context.Context, fp fingerprint.Fingerprint, rec models.Record) error
	// Get returns a copy of the record stored under fp.
	Get(ctx context.Context, fp fingerprint.Fingerprint) (models.Record, bool, error)
	// Exists reports whether fp is present.
	Exists(ctx context.Context, fp fingerprint.Fingerprint) (bool, error)
	// Stats summarises the stored set.
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Stats describes the current contents of a store.
type Stats struct {
	Records       int64  `json:"records"`
	LastCreatedAt uint64 `json:"last_created_at"`
}

// Drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverFS       = "fs"
	DriverPostgres = "postgres"
)

// Config selects and parameterises a backend.
type Config struct {
	Driver string
	// Path is the SQLite database file or the fs root directory.
	Path string
	// DSN is the PostgreSQL connection string.
	DSN string
}

// Open constructs the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(cfg.Path)
	case DriverFS:
		return OpenFS(cfg.Path)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
