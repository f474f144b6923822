// Package store persists the Huly<->beads mapping rows used for reconciliation.
//
// Two implementations are provided: DB, a local SQLite file opened with the
// ncruces/go-sqlite3 driver in WAL mode, and Memory, used by tests and dry runs.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/hulysync/beads-bridge/internal/types"
)

// Store is the local database contract consumed by reconciliation.
type Store interface {
	// GetIssue returns the record for a Huly identifier, or nil if none exists.
	GetIssue(ctx context.Context, identifier string) (*types.DbRecord, error)

	// GetAllIssues returns every record ordered by identifier.
	GetAllIssues(ctx context.Context) ([]types.DbRecord, error)

	// UpsertIssue inserts or replaces the record with rec.Identifier.
	UpsertIssue(ctx context.Context, rec types.DbRecord) error
}

// Memory is an in-memory Store.
type Memory struct {
	mu      sync.Mutex
	records map[string]types.DbRecord
}

// NewMemory returns an empty Memory store seeded with recs.
func NewMemory(recs ...types.DbRecord) *Memory {
	m := &Memory{records: make(map[string]types.DbRecord, len(recs))}
	for _, r := range recs {
		m.records[r.Identifier] = r
	}
	return m
}

// GetIssue implements Store.
func (m *Memory) GetIssue(ctx context.Context, identifier string) (*types.DbRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[identifier]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// GetAllIssues implements Store.
func (m *Memory) GetAllIssues(ctx context.Context) ([]types.DbRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.DbRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out, nil
}

// UpsertIssue implements Store.
func (m *Memory) UpsertIssue(ctx context.Context, rec types.DbRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Identifier] = rec
	return nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
