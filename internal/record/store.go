package record

import (
	"context"
	"sort"
	"sync"
)

// Store persists transaction records. The managed variant backs this
// with DynamoDB; tests and the local variant use the in-memory store.
type Store interface {
	// Put stores one record, replacing any existing record with the
	// same ID.
	Put(ctx context.Context, rec Record) error

	// Scan returns every stored record. Implementations follow
	// pagination internally; callers always see the full set.
	Scan(ctx context.Context) ([]Record, error)
}

// MemoryStore is an in-memory record store
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Put stores one record
func (m *MemoryStore) Put(_ context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}

// Scan returns all records ordered by ID for stable output
func (m *MemoryStore) Scan(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

var _ Store = (*MemoryStore)(nil)
