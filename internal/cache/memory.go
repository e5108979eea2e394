package cache

import (
	"context"
	"sync"

	"github.com/vk/dagflow/internal/fingerprint"
	"github.com/vk/dagflow/internal/resultstore"
)

// MemoryStore keeps entries for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[fingerprint.Fingerprint]*resultstore.Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[fingerprint.Fingerprint]*resultstore.Record)}
}

func (m *MemoryStore) Lookup(_ context.Context, fp fingerprint.Fingerprint) (*resultstore.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.entries[fp]
	if !ok {
		return nil, nil
	}
	if rec.Fingerprint != fp {
		return nil, &CorruptionError{Fingerprint: fp, Reason: "entry fingerprint does not match its key"}
	}
	return rec, nil
}

func (m *MemoryStore) Put(_ context.Context, rec *resultstore.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.entries[rec.Fingerprint]; ok && !rec.CompletedAt.After(old.CompletedAt) {
		return nil
	}
	cp := *rec
	cp.FromCache = false
	m.entries[rec.Fingerprint] = &cp
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
