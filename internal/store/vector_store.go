// Package store holds the persistence collaborators the crawler and dedup
// engine talk to: the embedding vector store and the crawl status store.
package store

import (
	"context"
	"errors"

	"page-harvester/internal/models"
)

// ErrNotFound is returned when a record id does not exist in the store.
// Dedup passes treat it as "already removed", not as a failure.
var ErrNotFound = errors.New("record not found")

// VectorStore is the embedding persistence contract. The dedup engine only
// ever lists, deletes, and creates records.
type VectorStore interface {
	List(ctx context.Context) ([]models.EmbeddingRecord, error)
	Delete(ctx context.Context, id string) error
	Create(ctx context.Context, content, title string, vector []float64, metadata map[string]string) (string, error)
}
