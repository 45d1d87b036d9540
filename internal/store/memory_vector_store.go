package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"page-harvester/internal/models"
)

// MemoryVectorStore is an in-memory VectorStore for tests and dry runs
// against snapshots. Safe for concurrent use.
type MemoryVectorStore struct {
	mu      sync.RWMutex
	records []models.EmbeddingRecord
}

// NewMemoryVectorStore builds a store pre-seeded with the given records.
func NewMemoryVectorStore(records ...models.EmbeddingRecord) *MemoryVectorStore {
	s := &MemoryVectorStore{}
	s.records = append(s.records, records...)
	return s
}

// List returns a copy of all records in insertion order.
func (s *MemoryVectorStore) List(_ context.Context) ([]models.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.EmbeddingRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Delete removes the record with the given id, or ErrNotFound.
func (s *MemoryVectorStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.records {
		if rec.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Create appends a new record and returns its generated id.
func (s *MemoryVectorStore) Create(_ context.Context, content, title string, vector []float64, metadata map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := models.EmbeddingRecord{
		ID:        uuid.New().String(),
		Vector:    append([]float64(nil), vector...),
		Content:   content,
		Title:     title,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	s.records = append(s.records, rec)
	return rec.ID, nil
}
