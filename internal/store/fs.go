package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/starford/archiver/internal/apperr"
	"github.com/starford/archiver/internal/fingerprint"
	"github.com/starford/archiver/internal/models"
)

const fsRecordExt = ".cbor"

// encMode produces Core Deterministic CBOR, so one record always has one
// byte representation on disk.
var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}
	return em
}()

type fsRecord struct {
	Title      []byte `cbor:"1,keyasint"`
	Author     []byte `cbor:"2,keyasint"`
	ContentRef []byte `cbor:"3,keyasint"`
	Submitter  string `cbor:"4,keyasint"`
	CreatedAt  uint64 `cbor:"5,keyasint"`
}

// FS is a Store that keeps one CBOR file per fingerprint under a root
// directory: <root>/<first two hex digits>/<hex>.cbor.
type FS struct {
	root string // absolute path
}

// OpenFS creates root if needed and returns an FS store rooted there.
func OpenFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("store: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("store: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

func (f *FS) path(fp fingerprint.Fingerprint) string {
	h := fp.Hex()
	return filepath.Join(f.root, h[:2], h+fsRecordExt)
}

// Insert implements Store. The record is written to a temp file, fsynced and
// hard-linked into place; link fails if the target exists, which makes the
// insert atomic across goroutines and processes.
func (f *FS) Insert(_ context.Context, fp fingerprint.Fingerprint, rec models.Record) error {
	data, err := encMode.Marshal(fsRecord(rec))
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", fp, err)
	}

	final := f.path(fp)
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".archiver-tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp: %w", err)
	}

	if err := os.Link(tmpName, final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("store: insert %s: %w", fp, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("store: link: %w", err)
	}
	return nil
}

// Get implements Store.
func (f *FS) Get(_ context.Context, fp fingerprint.Fingerprint) (models.Record, bool, error) {
	rec, err := f.read(f.path(fp))
	if errors.Is(err, fs.ErrNotExist) {
		return models.Record{}, false, nil
	}
	if err != nil {
		return models.Record{}, false, fmt.Errorf("store: get %s: %w", fp, err)
	}
	return rec, true, nil
}

func (f *FS) read(p string) (models.Record, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return models.Record{}, err
	}
	var r fsRecord
	if err := cbor.Unmarshal(data, &r); err != nil {
		return models.Record{}, fmt.Errorf("decode %s: %w", filepath.Base(p), err)
	}
	return models.Record(r), nil
}

// Exists implements Store.
func (f *FS) Exists(_ context.Context, fp fingerprint.Fingerprint) (bool, error) {
	_, err := os.Stat(f.path(fp))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: exists %s: %w", fp, err)
	}
	return true, nil
}

// Stats implements Store by walking the root.
func (f *FS) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), fsRecordExt) {
			return nil
		}
		rec, err := f.read(p)
		if err != nil {
			return err
		}
		st.Records++
		st.LastCreatedAt = max(st.LastCreatedAt, rec.CreatedAt)
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("store: stats: %w", err)
	}
	return st, nil
}

// Close implements Store.
func (f *FS) Close() error { return nil }
