package storage

import (
	"context"
	"sync"

	"cpathways/cprules/pkg/audit"
)

// MemoryStorage implements audit.Storage using an in-memory map.
type MemoryStorage struct {
	records map[string]*audit.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*audit.Record),
	}
}

// Store persists a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	if record == nil || record.ID == "" {
		return audit.NewStorageError("memory", "store", errMissingID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *record
	s.records[record.ID] = &recordCopy
	return nil
}

// Query retrieves records matching the query filters. A zero limit returns every match.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	if query == nil {
		query = &audit.Query{}
	}

	s.mu.RLock()
	results := make([]*audit.Record, 0)
	for _, record := range s.records {
		if matchesQuery(record, query) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}
	s.mu.RUnlock()

	sortRecords(results, query.SortOrder)
	return paginate(results, query), nil
}

// Count returns the number of records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	if query != nil && len(query.IDs) > 0 {
		for _, id := range query.IDs {
			record, ok := s.records[id]
			if ok && matchesQuery(record, query) {
				delete(s.records, id)
				deleted++
			}
		}
		return deleted, nil
	}

	for id, record := range s.records {
		if matchesQuery(record, query) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close drops all records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*audit.Record)
	return nil
}

// GetByID retrieves a single record by ID, or nil.
func (s *MemoryStorage) GetByID(id string) *audit.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil
	}
	recordCopy := *record
	return &recordCopy
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}
