package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/starford/archiver/internal/apperr"
	"github.com/starford/archiver/internal/fingerprint"
	"github.com/starford/archiver/internal/models"
)

// Memory is a process-local Store. Records are cloned on the way in and out.
type Memory struct {
	mu      sync.RWMutex
	records map[fingerprint.Fingerprint]models.Record
	last    uint64
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[fingerprint.Fingerprint]models.Record)}
}

// Insert implements Store.
func (m *Memory) Insert(_ context.Context, fp fingerprint.Fingerprint, rec models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[fp]; ok {
		return fmt.Errorf("store: insert %s: %w", fp, apperr.ErrAlreadyExists)
	}
	m.records[fp] = rec.Clone()
	m.last = max(m.last, rec.CreatedAt)
	return nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, fp fingerprint.Fingerprint) (models.Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[fp]
	if !ok {
		return models.Record{}, false, nil
	}
	return rec.Clone(), true, nil
}

// Exists implements Store.
func (m *Memory) Exists(_ context.Context, fp fingerprint.Fingerprint) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[fp]
	return ok, nil
}

// Stats implements Store.
func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Records: int64(len(m.records)), LastCreatedAt: m.last}, nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }
