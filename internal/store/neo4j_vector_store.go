package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"page-harvester/internal/models"
)

// SessionRunner abstracts neo4j.SessionWithContext.
type SessionRunner interface {
	ExecuteRead(ctx context.Context, work neo4j.ManagedTransactionWork, configurers ...func(*neo4j.TransactionConfig)) (any, error)
	ExecuteWrite(ctx context.Context, work neo4j.ManagedTransactionWork, configurers ...func(*neo4j.TransactionConfig)) (any, error)
	Close(ctx context.Context) error
}

// DriverSessioner abstracts neo4j.DriverWithContext.
type DriverSessioner interface {
	NewSession(ctx context.Context, config neo4j.SessionConfig) SessionRunner
	Close(ctx context.Context) error
}

type neo4jDriver struct {
	driver neo4j.DriverWithContext
}

func (d *neo4jDriver) NewSession(ctx context.Context, config neo4j.SessionConfig) SessionRunner {
	return d.driver.NewSession(ctx, config)
}

func (d *neo4jDriver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

// Neo4jVectorStore persists embedding records as (:Embedding) nodes.
type Neo4jVectorStore struct {
	driver DriverSessioner
}

// NewNeo4jVectorStore connects to Neo4j with basic auth.
func NewNeo4jVectorStore(uri, user, password string) (*Neo4jVectorStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	return &Neo4jVectorStore{driver: &neo4jDriver{driver: driver}}, nil
}

// NewNeo4jVectorStoreWithDriver builds a store over a custom driver (tests).
func NewNeo4jVectorStoreWithDriver(driver DriverSessioner) *Neo4jVectorStore {
	return &Neo4jVectorStore{driver: driver}
}

// Close shuts down the underlying driver.
func (s *Neo4jVectorStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// List returns all embedding records ordered by creation time.
func (s *Neo4jVectorStore) List(ctx context.Context) ([]models.EmbeddingRecord, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer func() { _ = session.Close(ctx) }()

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (e:Embedding)
			 RETURN e.id AS id, e.vector AS vector, e.content AS content,
			        e.title AS title, e.metadata AS metadata, e.created_at AS created_at
			 ORDER BY e.created_at`,
			nil)
		if err != nil {
			return nil, err
		}

		var records []models.EmbeddingRecord
		for res.Next(ctx) {
			rec, err := recordFromRow(res.Record().AsMap())
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		return records, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}

	records, _ := result.([]models.EmbeddingRecord)
	return records, nil
}

// Delete removes the embedding node with the given id. Returns ErrNotFound
// when no node was deleted, which callers treat as already-removed.
func (s *Neo4jVectorStore) Delete(ctx context.Context, id string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() { _ = session.Close(ctx) }()

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (e:Embedding {id: $id}) DETACH DELETE e`,
			map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return summary.Counters().NodesDeleted(), nil
	})
	if err != nil {
		return fmt.Errorf("delete embedding %s: %w", id, err)
	}

	if deleted, _ := result.(int); deleted == 0 {
		return ErrNotFound
	}
	return nil
}

// Create stores a new embedding node and returns its generated id.
func (s *Neo4jVectorStore) Create(ctx context.Context, content, title string, vector []float64, metadata map[string]string) (string, error) {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}

	id := uuid.New().String()
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() { _ = session.Close(ctx) }()

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`CREATE (e:Embedding {id: $id, vector: $vector, content: $content,
			                      title: $title, metadata: $metadata, created_at: $created_at})`,
			map[string]any{
				"id":         id,
				"vector":     vector,
				"content":    content,
				"title":      title,
				"metadata":   string(metaJSON),
				"created_at": time.Now().UTC(),
			})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return "", fmt.Errorf("create embedding: %w", err)
	}
	return id, nil
}

func recordFromRow(row map[string]any) (models.EmbeddingRecord, error) {
	rec := models.EmbeddingRecord{}

	id, ok := row["id"].(string)
	if !ok {
		return rec, fmt.Errorf("embedding row missing id")
	}
	rec.ID = id
	rec.Content, _ = row["content"].(string)
	rec.Title, _ = row["title"].(string)

	if raw, ok := row["vector"].([]any); ok {
		rec.Vector = make([]float64, 0, len(raw))
		for _, v := range raw {
			f, ok := v.(float64)
			if !ok {
				return rec, fmt.Errorf("embedding %s: non-numeric vector component", id)
			}
			rec.Vector = append(rec.Vector, f)
		}
	}

	if metaJSON, ok := row["metadata"].(string); ok && metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
			return rec, fmt.Errorf("embedding %s: decode metadata: %w", id, err)
		}
	}

	if createdAt, ok := row["created_at"].(time.Time); ok {
		rec.CreatedAt = createdAt
	}
	return rec, nil
}
