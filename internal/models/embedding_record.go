package models

import "time"

// EmbeddingRecord is one stored content vector. The dedup engine reads and
// deletes these; the vector and content are only overwritten on the explicit
// exact-duplicate replacement path.
type EmbeddingRecord struct {
	ID        string            `json:"id"`
	Vector    []float64         `json:"vector"`
	Content   string            `json:"content"`
	Title     string            `json:"title,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
